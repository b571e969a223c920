// Package brain holds the LLM collaborators: categorization of new
// entries, query parsing for search, and answer generation. Every
// collaborator validates the model's JSON and has a deterministic
// fallback, so a model failure never reaches the conversation.
package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quailyquaily/mira/internal/jsonutil"
	"github.com/quailyquaily/mira/llm"
)

// CategorizedEntity is one entity the model extracted from an utterance.
type CategorizedEntity struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Subcategory string  `json:"subcategory"`
	Confidence  float64 `json:"confidence"`
}

type CategorizedReminder struct {
	Text    string `json:"text"`
	Trigger string `json:"trigger"`
}

type CategorizedTemporal struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Categorization is the validated model output. Fallback is a boolean
// marker, not an error: callers treat the fallback result as a normal
// low-confidence categorization.
type Categorization struct {
	Categories   []string              `json:"categories"`
	Entities     []CategorizedEntity   `json:"entities"`
	Tags         []string              `json:"tags"`
	TemporalInfo *CategorizedTemporal  `json:"temporal_info"`
	Reminders    []CategorizedReminder `json:"reminders"`
	Confidence   float64               `json:"confidence"`
	Fallback     bool                  `json:"-"`
}

const categorizeSystemPrompt = `Ты - умный ассистент для категоризации личных записей. Твоя задача - анализировать текст и извлекать из него структурированную информацию.

КАТЕГОРИИ (твои "полки"): people, places, objects, events, tasks, reminders, health, work, finance, ideas, projects, goals, unclassified.

ИНСТРУКЦИИ:
1. Проанализируй текст и определи, к каким категориям он относится
2. Извлеки все сущности (люди, места, объекты, события)
3. Определи теги на основе категорий
4. Если есть временная информация - выдели её
5. Если текст не подходит ни под одну категорию - используй "unclassified"

ФОРМАТ ОТВЕТА (строго JSON):
{
    "categories": ["category1", "category2"],
    "entities": [
        {"name": "название сущности", "type": "person|place|object|event|task|reminder|health|work|finance|unclassified", "subcategory": "подкатегория", "confidence": 0.9}
    ],
    "tags": ["#тег1", "#тег2"],
    "temporal_info": {"type": "date|time|duration|condition", "value": "конкретное значение", "confidence": 0.8},
    "reminders": [
        {"text": "текст напоминания", "trigger": "условие срабатывания"}
    ],
    "confidence": 0.9
}

ВАЖНО:
- Отвечай ТОЛЬКО валидным JSON
- Не добавляй никакого текста кроме JSON
- Будь точным в извлечении сущностей
- Используй русские названия для тегов
- Если не уверен - снижай confidence`

// Categorizer asks the model to shelve an utterance.
type Categorizer struct {
	LLM    llm.Client
	Model  string
	Logger *slog.Logger
}

func NewCategorizer(client llm.Client, model string, logger *slog.Logger) *Categorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Categorizer{LLM: client, Model: model, Logger: logger}
}

// Categorize never fails: model or parse errors return the fallback
// result (unclassified, low confidence).
func (c *Categorizer) Categorize(ctx context.Context, text string) Categorization {
	if c.LLM == nil {
		return fallbackCategorization()
	}
	res, err := c.LLM.Chat(ctx, llm.Request{
		Model: c.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: categorizeSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Проанализируй этот текст: %s", text)},
		},
		ForceJSON:   true,
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		c.Logger.Warn("categorization request failed", "error", err)
		return fallbackCategorization()
	}

	var out Categorization
	if err := jsonutil.DecodeObject(res.Text, &out); err != nil {
		c.Logger.Warn("categorization reply not parseable", "error", err)
		return fallbackCategorization()
	}
	validateCategorization(&out)
	return out
}

func validateCategorization(c *Categorization) {
	if len(c.Categories) == 0 {
		c.Categories = []string{"unclassified"}
	}
	if c.Confidence == 0 {
		c.Confidence = 0.5
	}
	kept := c.Entities[:0]
	for _, e := range c.Entities {
		e.Name = strings.ToLower(strings.TrimSpace(e.Name))
		if e.Name == "" {
			continue
		}
		if e.Type == "" {
			e.Type = "object"
		}
		if e.Confidence == 0 {
			e.Confidence = 0.7
		}
		kept = append(kept, e)
	}
	c.Entities = kept
}

func fallbackCategorization() Categorization {
	return Categorization{
		Categories: []string{"unclassified"},
		Tags:       []string{"#неразобранное"},
		Confidence: 0.1,
		Fallback:   true,
	}
}
