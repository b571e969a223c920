package openai

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/quailyquaily/mira/llm"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func fakeResponse(status int, body string, r *http.Request) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func TestChatParsesResponse(t *testing.T) {
	validJSON := `{"choices":[{"message":{"content":"привет"}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`

	c := New("http://fake.test/v1", "key")
	c.HTTP = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("auth header = %q", got)
		}
		return fakeResponse(200, validJSON, r), nil
	})}

	res, err := c.Chat(context.Background(), llm.Request{
		Model:    "test",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Text != "привет" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Usage.TotalTokens != 5 {
		t.Fatalf("total tokens = %d", res.Usage.TotalTokens)
	}
}

func TestChatResponseBodyTruncated(t *testing.T) {
	const limit int64 = 256
	bigBody := strings.Repeat("x", int(limit)+100)

	c := New("http://fake.test", "key")
	c.MaxResponseBytes = limit
	c.MaxRetries = 0
	c.HTTP = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return fakeResponse(200, bigBody, r), nil
	})}

	// The oversized body is cut at the limit; the resulting parse failure
	// proves no more than limit bytes were read.
	_, err := c.Chat(context.Background(), llm.Request{
		Model:    "test",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error from truncated JSON, got nil")
	}
	if !strings.Contains(err.Error(), "unmarshal") && !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("expected JSON parse error, got: %v", err)
	}
}

func TestChatRetriesOnServerError(t *testing.T) {
	calls := 0
	c := New("http://fake.test", "key")
	c.MaxRetries = 2
	c.RetryBackoff = 0
	c.HTTP = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return fakeResponse(503, `{"error":{"message":"overloaded"}}`, r), nil
		}
		return fakeResponse(200, `{"choices":[{"message":{"content":"ok"}}]}`, r), nil
	})}

	res, err := c.Chat(context.Background(), llm.Request{
		Model:    "test",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if res.Text != "ok" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestChatClientErrorNotRetried(t *testing.T) {
	calls := 0
	c := New("http://fake.test", "key")
	c.MaxRetries = 2
	c.HTTP = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return fakeResponse(401, `{"error":{"message":"bad key"}}`, r), nil
	})}

	_, err := c.Chat(context.Background(), llm.Request{
		Model:    "test",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
