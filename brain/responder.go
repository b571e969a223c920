package brain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quailyquaily/mira/internal/jsonutil"
	"github.com/quailyquaily/mira/llm"
)

// Digest is the compact structured summary of a search fed to the model.
// Building it from a search bundle is the composer's job.
type Digest struct {
	Topic            string
	Summary          string
	StructuredData   string
	TemporalAnalysis string
	TotalEntities    int
	TotalEntries     int
	SearchTypes      []string
	HasInfo          bool
}

// Response is the validated model answer.
type Response struct {
	Text       string  `json:"response"`
	Tone       string  `json:"tone"`
	HasInfo    bool    `json:"has_info"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"-"`
}

const (
	ToneCaring      = "caring"
	ToneInformative = "informative"
)

const respondSystemPrompt = `Ты - персональный ассистент "Мира". Твоя задача - анализировать найденную информацию и генерировать полезные, информативные ответы.

СТИЛЬ ОБЩЕНИЯ:
- Нейтральный, профессиональный тон
- Короткие, понятные предложения
- Минимум эмодзи (только для структурирования)
- Личное обращение "ты"
- Фактический подход

ПРИНЦИПЫ:
1. Если есть информация - расскажи кратко и по делу
2. Если информации нет - сообщи об этом нейтрально
3. Используй найденные данные для контекста
4. НЕ добавляй фразы типа "Эта информация сохранена в системе"
5. НЕ добавляй рекомендации типа "Рекомендую отслеживать динамику"
6. НЕ предлагай дополнительные действия
7. НЕ указывай количество найденных записей отдельно
8. Отвечай ТОЛЬКО релевантной информацией

ОСОБЫЕ СЛУЧАИ:
- Для аналитических запросов (вес, расходы, ремонт) - структурируй ответ
- Для временных запросов - группируй по датам/периодам
- Для поиска локаций - выделяй места
- Извлекай числа, даты, суммы когда возможно

ФОРМАТ ОТВЕТА (строго JSON):
{"response": "основной ответ пользователю", "tone": "caring|informative", "has_info": true, "confidence": 0.8}

ВАЖНО:
- Отвечай ТОЛЬКО валидным JSON
- Не добавляй никакого текста кроме JSON
- Используй русский язык
- Максимум 3-4 предложения в ответе`

// Responder turns a search digest into prose.
type Responder struct {
	LLM    llm.Client
	Model  string
	Logger *slog.Logger
}

func NewResponder(client llm.Client, model string, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{LLM: client, Model: model, Logger: logger}
}

// Generate never fails; model or parse errors yield a deterministic
// fallback marked as such, so the composer can switch to templates.
func (r *Responder) Generate(ctx context.Context, query string, d Digest) Response {
	if r.LLM == nil {
		return fallbackResponse(d)
	}

	res, err := r.LLM.Chat(ctx, llm.Request{
		Model: r.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: respondSystemPrompt},
			{Role: llm.RoleUser, Content: buildContext(query, d)},
		},
		ForceJSON:   true,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		r.Logger.Warn("response generation failed", "error", err)
		return fallbackResponse(d)
	}

	var out Response
	if err := jsonutil.DecodeObject(res.Text, &out); err != nil {
		r.Logger.Warn("response reply not parseable", "error", err)
		return fallbackResponse(d)
	}
	validateResponse(&out, d)
	return out
}

func buildContext(query string, d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ЗАПРОС ПОЛЬЗОВАТЕЛЯ: %q\n", query)
	fmt.Fprintf(&b, "ТЕМА: %s\n", d.Topic)
	fmt.Fprintf(&b, "ЕСТЬ ЛИ ИНФОРМАЦИЯ: %v\n\n", d.HasInfo)
	fmt.Fprintf(&b, "ДАННЫЕ ИЗ ПОИСКА:\n%s\n\n", d.Summary)
	fmt.Fprintf(&b, "СТАТИСТИКА ПОИСКА:\n- Найдено сущностей: %d\n- Найдено записей: %d\n- Типы поиска: %s\n\n",
		d.TotalEntities, d.TotalEntries, strings.Join(d.SearchTypes, ", "))
	fmt.Fprintf(&b, "СТРУКТУРИРОВАННЫЕ ДАННЫЕ:\n%s\n\n", d.StructuredData)
	fmt.Fprintf(&b, "ВРЕМЕННОЙ АНАЛИЗ:\n%s\n", d.TemporalAnalysis)
	return b.String()
}

func validateResponse(r *Response, d Digest) {
	if strings.TrimSpace(r.Text) == "" {
		r.Text = fallbackText(d)
	}
	if r.Tone != ToneCaring && r.Tone != ToneInformative {
		if d.HasInfo {
			r.Tone = ToneInformative
		} else {
			r.Tone = ToneCaring
		}
	}
	if r.Confidence == 0 {
		if d.HasInfo {
			r.Confidence = 0.8
		} else {
			r.Confidence = 0.6
		}
	}
}

func fallbackText(d Digest) string {
	if d.HasInfo {
		return fmt.Sprintf("Вот что я знаю о %s 📚", d.Topic)
	}
	return fmt.Sprintf("Пока я ничего не знаю о %s, но готова запомнить! 💭", d.Topic)
}

func fallbackResponse(d Digest) Response {
	tone := ToneCaring
	if d.HasInfo {
		tone = ToneInformative
	}
	return Response{
		Text:       fallbackText(d),
		Tone:       tone,
		HasInfo:    d.HasInfo,
		Confidence: 0.5,
		Fallback:   true,
	}
}
