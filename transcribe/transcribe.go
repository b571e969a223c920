// Package transcribe converts voice messages to text via a
// whisper-compatible HTTP service.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Failure classes surface as distinct user-facing messages, so callers
// check them with errors.Is.
var (
	ErrConnection  = errors.New("transcription service unreachable")
	ErrRateLimited = errors.New("transcription service rate limited")
	ErrService     = errors.New("transcription service failed")
	ErrEmptyAudio  = errors.New("empty audio payload")
)

type Client interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Unavailable stands in when no transcription endpoint is configured.
// Every call fails as a connection error, which callers already turn
// into a polite user message.
type Unavailable struct{}

func (Unavailable) Transcribe(context.Context, []byte, string) (string, error) {
	return "", fmt.Errorf("no transcriber configured: %w", ErrConnection)
}

// HTTPClient posts audio as multipart form data to a whisper.cpp server
// endpoint and reads back {"text": "..."}.
type HTTPClient struct {
	URL      string
	Language string

	HTTP         *http.Client
	MaxRetries   int
	RetryBackoff time.Duration
}

func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		URL:          url,
		Language:     "ru",
		HTTP:         &http.Client{Timeout: 60 * time.Second},
		MaxRetries:   2,
		RetryBackoff: time.Second,
	}
}

func (c *HTTPClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if filename == "" {
		filename = "voice.ogg"
	}

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrConnection, ctx.Err())
			case <-time.After(time.Duration(attempt) * c.RetryBackoff):
			}
		}

		text, retryable, err := c.doOnce(ctx, audio, filename)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (c *HTTPClient) doOnce(ctx context.Context, audio []byte, filename string) (string, bool, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", false, fmt.Errorf("%w: build form: %v", ErrService, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", false, fmt.Errorf("%w: write form: %v", ErrService, err)
	}
	if c.Language != "" {
		if err := w.WriteField("language", c.Language); err != nil {
			return "", false, fmt.Errorf("%w: write form: %v", ErrService, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", false, fmt.Errorf("%w: close form: %v", ErrService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrService, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, fmt.Errorf("%w: read response: %v", ErrConnection, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", false, ErrRateLimited
	case resp.StatusCode >= 500:
		return "", true, fmt.Errorf("%w: status %d", ErrService, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", false, fmt.Errorf("%w: status %d", ErrService, resp.StatusCode)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		// Plain-text servers return the transcript directly.
		return strings.TrimSpace(string(data)), false, nil
	}
	return strings.TrimSpace(parsed.Text), false, nil
}
