package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quailyquaily/mira/internal/jsonutil"
	"github.com/quailyquaily/mira/llm"
	"github.com/quailyquaily/mira/search"
)

// ParsedEntity is one keyword the model extracted from a search query.
type ParsedEntity struct {
	Original   string   `json:"original"`
	Normalized string   `json:"normalized"`
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	Synonyms   []string `json:"synonyms"`
}

type queryReply struct {
	Intent         string         `json:"intent"`
	MainTopic      string         `json:"main_topic"`
	Entities       []ParsedEntity `json:"entities"`
	SearchKeywords []string       `json:"search_keywords"`
	Confidence     float64        `json:"confidence"`
}

const queryParserSystemPrompt = `Ты - умный парсер запросов для персонального ассистента. Твоя задача - анализировать запросы пользователя и извлекать структурированную информацию для поиска.

ТИПЫ СУЩНОСТЕЙ: person (люди), place (места), object (вещи), event (события), task (задачи), reminder (напоминания).

ИНСТРУКЦИИ:
1. Проанализируй запрос пользователя
2. Извлеки ключевые слова и определи их типы
3. Нормализуй слова (приведи к базовой форме: васе → вася, машине → машина)
4. Найди синонимы и связанные понятия (авто → машина, автомобиль)

ФОРМАТ ОТВЕТА (строго JSON):
{
    "intent": "search",
    "main_topic": "основная тема запроса",
    "entities": [
        {"original": "оригинальное слово", "normalized": "нормализованная форма", "type": "person|place|object|event|task|reminder", "confidence": 0.9, "synonyms": ["синоним1"]}
    ],
    "search_keywords": ["ключевое_слово1", "ключевое_слово2"],
    "confidence": 0.8
}

ВАЖНО:
- Отвечай ТОЛЬКО валидным JSON
- Не добавляй никакого текста кроме JSON
- Используй русский язык`

// QueryParser delegates query understanding to the model. It satisfies
// search.QueryParser; the rule-based lexicon parser remains the fallback
// inside the search engine.
type QueryParser struct {
	LLM    llm.Client
	Model  string
	Logger *slog.Logger
}

func NewQueryParser(client llm.Client, model string, logger *slog.Logger) *QueryParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryParser{LLM: client, Model: model, Logger: logger}
}

func (p *QueryParser) Parse(ctx context.Context, query string) (search.ParsedQuery, error) {
	if p.LLM == nil {
		return nil, fmt.Errorf("no completion client configured")
	}
	res, err := p.LLM.Chat(ctx, llm.Request{
		Model: p.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: queryParserSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Проанализируй этот запрос: %s", query)},
		},
		ForceJSON:   true,
		Temperature: 0.1,
		MaxTokens:   800,
	})
	if err != nil {
		return nil, fmt.Errorf("query parse request: %w", err)
	}

	var reply queryReply
	if err := jsonutil.DecodeObject(res.Text, &reply); err != nil {
		return nil, fmt.Errorf("query parse reply: %w", err)
	}
	return bucketReply(reply), nil
}

// bucketReply converts the model's entity list into search keyword
// buckets, mirroring the rule parser's shape (typed buckets + general).
func bucketReply(reply queryReply) search.ParsedQuery {
	out := make(search.ParsedQuery)
	known := make(map[string]bool)
	for _, t := range search.EntityTypes {
		known[t] = true
	}

	seen := make(map[string]map[string]bool)
	add := func(bucket, word string) {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			return
		}
		if seen[bucket] == nil {
			seen[bucket] = make(map[string]bool)
		}
		if seen[bucket][word] {
			return
		}
		seen[bucket][word] = true
		out[bucket] = append(out[bucket], word)
	}

	claimed := make(map[string]bool)
	for _, e := range reply.Entities {
		bucket := e.Type
		if !known[bucket] {
			bucket = "object"
		}
		if w := strings.ToLower(strings.TrimSpace(e.Normalized)); w != "" {
			add(bucket, w)
			claimed[w] = true
		}
		for _, syn := range e.Synonyms {
			if w := strings.ToLower(strings.TrimSpace(syn)); w != "" {
				add(bucket, w)
				claimed[w] = true
			}
		}
	}
	for _, kw := range reply.SearchKeywords {
		if w := strings.ToLower(strings.TrimSpace(kw)); w != "" && !claimed[w] {
			add(search.GeneralBucket, w)
		}
	}
	return out
}
