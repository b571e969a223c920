// Package intent classifies one incoming message into exactly one action
// for the conversation handler.
package intent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/quailyquaily/mira/internal/jsonutil"
	"github.com/quailyquaily/mira/llm"
)

type Kind string

const (
	SaveInfo      Kind = "save_info"
	SearchInfo    Kind = "search_info"
	ShowStats     Kind = "show_stats"
	ShowInsights  Kind = "show_insights"
	ShowReminders Kind = "show_reminders"
	Greeting      Kind = "greeting"
)

// Classification is the routing decision for one message. Topic carries
// the search subject for SearchInfo; it is empty otherwise.
type Classification struct {
	Kind  Kind
	Topic string
}

// Router delegates to the LLM when configured and falls back to keyword
// rules. Unclassifiable input always degrades to SaveInfo: the system
// biases toward "remember it" over dropping user input.
type Router struct {
	LLM    llm.Client // optional
	Model  string
	Logger *slog.Logger
}

func NewRouter(client llm.Client, model string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{LLM: client, Model: model, Logger: logger}
}

const classifySystemPrompt = `Ты - классификатор сообщений персонального ассистента. Определи намерение пользователя.

ВАРИАНТЫ:
- save_info: пользователь сообщает факт, который нужно запомнить
- search_info: пользователь спрашивает, что ассистент знает о чем-то
- show_stats: пользователь просит статистику памяти
- show_insights: пользователь просит инсайты/анализ
- show_reminders: пользователь просит список напоминаний
- greeting: приветствие или светская фраза без содержания

ФОРМАТ ОТВЕТА (строго JSON):
{"intent": "save_info|search_info|show_stats|show_insights|show_reminders|greeting", "topic": "тема поиска или пустая строка"}

ВАЖНО:
- Отвечай ТОЛЬКО валидным JSON
- Если сомневаешься, выбирай save_info`

type classifyReply struct {
	Intent string `json:"intent"`
	Topic  string `json:"topic"`
}

// Classify routes one message. It never fails: LLM absence or any error
// falls through to the keyword rules.
func (r *Router) Classify(ctx context.Context, text string) Classification {
	if r.LLM != nil {
		if c, ok := r.classifyLLM(ctx, text); ok {
			return c
		}
	}
	return classifyHeuristic(text)
}

func (r *Router) classifyLLM(ctx context.Context, text string) (Classification, bool) {
	res, err := r.LLM.Chat(ctx, llm.Request{
		Model: r.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: classifySystemPrompt},
			{Role: llm.RoleUser, Content: text},
		},
		ForceJSON:   true,
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		r.Logger.Warn("intent classification failed, using rules", "error", err)
		return Classification{}, false
	}

	var reply classifyReply
	if err := jsonutil.DecodeObject(res.Text, &reply); err != nil {
		r.Logger.Warn("intent reply not parseable, using rules", "error", err)
		return Classification{}, false
	}

	kind, ok := parseKind(reply.Intent)
	if !ok {
		return Classification{}, false
	}
	return Classification{Kind: kind, Topic: strings.TrimSpace(reply.Topic)}, true
}

func parseKind(s string) (Kind, bool) {
	switch Kind(strings.TrimSpace(strings.ToLower(s))) {
	case SaveInfo:
		return SaveInfo, true
	case SearchInfo:
		return SearchInfo, true
	case ShowStats:
		return ShowStats, true
	case ShowInsights:
		return ShowInsights, true
	case ShowReminders:
		return ShowReminders, true
	case Greeting:
		return Greeting, true
	}
	return SaveInfo, false
}

var greetingWords = []string{"привет", "здравствуй", "добрый день", "доброе утро", "добрый вечер", "hello", "hi мира", "хай"}

func classifyHeuristic(text string) Classification {
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(lower, "расскажи"), strings.Contains(lower, "что знаешь"),
		strings.Contains(lower, "tell me"), strings.Contains(lower, "show me"):
		return Classification{Kind: SearchInfo, Topic: extractTopic(lower)}
	case strings.Contains(lower, "статистика"), strings.Contains(lower, "stats"):
		return Classification{Kind: ShowStats}
	case strings.Contains(lower, "инсайт"):
		return Classification{Kind: ShowInsights}
	case isReminderListQuery(lower):
		return Classification{Kind: ShowReminders}
	case isGreeting(lower):
		return Classification{Kind: Greeting}
	}
	return Classification{Kind: SaveInfo}
}

// isReminderListQuery separates "покажи напоминания" from "напомни мне
// завтра": only the former lists, the latter creates.
func isReminderListQuery(lower string) bool {
	if !strings.Contains(lower, "напоминани") {
		return false
	}
	return strings.Contains(lower, "покажи") || strings.Contains(lower, "какие") ||
		strings.Contains(lower, "список") || strings.Contains(lower, "мои напоминания")
}

func isGreeting(lower string) bool {
	// A greeting word inside a longer sentence still carries content worth
	// saving, so only short messages count.
	if len([]rune(lower)) > 30 {
		return false
	}
	for _, w := range greetingWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

var topicStopWords = map[string]bool{
	"расскажи": true, "о": true, "про": true, "что": true,
	"знаешь": true, "ли": true, "покажи": true, "есть": true,
}

// extractTopic drops service words and keeps the first three meaningful
// words of the query.
func extractTopic(lower string) string {
	var kept []string
	for _, w := range strings.Fields(lower) {
		if topicStopWords[w] || len([]rune(w)) <= 2 {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 3 {
			break
		}
	}
	return strings.Join(kept, " ")
}
