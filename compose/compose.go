// Package compose renders user-facing answer text: digests for the model,
// template fallbacks when the model is unavailable, and the final
// formatting pass over generated prose.
package compose

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/quailyquaily/mira/brain"
	"github.com/quailyquaily/mira/internal/strutil"
	"github.com/quailyquaily/mira/search"
	"github.com/quailyquaily/mira/temporal"
)

// ErrorResponse is shown when search itself failed.
const ErrorResponse = "Извини, произошла ошибка при поиске информации. Попробуй еще раз! 😔"

var topicStopWords = map[string]bool{
	"расскажи": true, "о": true, "про": true, "что": true,
	"знаешь": true, "ли": true, "покажи": true, "есть": true,
}

// ExtractTopic keeps the first three meaningful words of a query.
func ExtractTopic(query string) string {
	var kept []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
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

// Composer renders answers. The random source is injectable so tests can
// pin template choice. One Composer is shared by every chat worker, and
// rand.Rand is not safe for concurrent use, so pick holds a lock.
type Composer struct {
	Formatter *temporal.Formatter
	Rand      *rand.Rand

	mu sync.Mutex
}

func NewComposer(f *temporal.Formatter) *Composer {
	return &Composer{
		Formatter: f,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Composer) pick(options []string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return options[c.Rand.Intn(len(options))]
}

// BuildDigest condenses a search bundle into the context the model sees.
func (c *Composer) BuildDigest(query string, b search.Bundle, now time.Time) brain.Digest {
	topic := ExtractTopic(query)
	if topic == "" {
		topic = query
	}
	return brain.Digest{
		Topic:            topic,
		Summary:          c.summarize(b),
		StructuredData:   formatStructuredData(b),
		TemporalAnalysis: c.temporalAnalysis(b, now),
		TotalEntities:    b.Stats.TotalEntities,
		TotalEntries:     b.Stats.TotalEntries,
		SearchTypes:      b.Stats.SearchTypesUsed,
		HasInfo:          len(b.Entities) > 0 || len(b.Entries) > 0,
	}
}

func (c *Composer) summarize(b search.Bundle) string {
	var parts []string

	if len(b.Entities) > 0 {
		var names []string
		for _, e := range top(b.Entities, 3) {
			names = append(names, fmt.Sprintf("%s (%s)", e.Name, e.Type))
		}
		parts = append(parts, "Найденные сущности: "+strings.Join(names, ", "))
	}
	if len(b.Entries) > 0 {
		var quoted []string
		for _, en := range b.Entries[:min(3, len(b.Entries))] {
			quoted = append(quoted, fmt.Sprintf("%q", strutil.TruncateRunes(en.OriginalText, 100)))
		}
		parts = append(parts, "Записи: "+strings.Join(quoted, "; "))
	}
	if len(b.RelatedEntities) > 0 {
		var names []string
		for _, e := range b.RelatedEntities[:min(2, len(b.RelatedEntities))] {
			names = append(names, e.Name)
		}
		parts = append(parts, "Связанные сущности: "+strings.Join(names, ", "))
	}
	if len(b.RecentEntries) > 0 {
		var quoted []string
		for _, en := range b.RecentEntries[:min(2, len(b.RecentEntries))] {
			quoted = append(quoted, fmt.Sprintf("%q", strutil.TruncateRunes(en.OriginalText, 80)))
		}
		parts = append(parts, "Недавние записи: "+strings.Join(quoted, "; "))
	}
	return strings.Join(parts, "\n")
}

var (
	weightRe = regexp.MustCompile(`(\d+)\s*(?:кг|килограмм)`)
	amountRe = regexp.MustCompile(`(\d+)\s*(?:руб|рублей|₽)`)

	actionWords   = []string{"менял", "починил", "ремонтировал", "купил"}
	locationWords = []string{"улица", "гараж", "сервис", "офис"}
)

// formatStructuredData scans entry text for numbers worth surfacing:
// weights, money amounts, maintenance actions, locations.
func formatStructuredData(b search.Bundle) string {
	var measurements, actions, amounts, locations []string

	for _, en := range b.Entries {
		text := en.OriginalText
		lower := strings.ToLower(text)

		if m := weightRe.FindStringSubmatch(lower); m != nil {
			measurements = append(measurements, fmt.Sprintf("- weight: %skg", m[1]))
		}
		if m := amountRe.FindStringSubmatch(lower); m != nil {
			amounts = append(amounts, fmt.Sprintf("- %s RUB", m[1]))
		}
		if containsAny(lower, actionWords) {
			actions = append(actions, "- "+text)
		}
		if containsAny(lower, locationWords) {
			locations = append(locations, "- "+text)
		}
	}

	var out []string
	if len(measurements) > 0 {
		out = append(out, "ИЗМЕРЕНИЯ:")
		out = append(out, measurements...)
	}
	if len(actions) > 0 {
		out = append(out, "ДЕЙСТВИЯ:")
		out = append(out, actions...)
	}
	if len(amounts) > 0 {
		out = append(out, "СУММЫ:")
		out = append(out, amounts...)
	}
	if len(locations) > 0 {
		out = append(out, "ЛОКАЦИИ:")
		out = append(out, locations...)
	}
	if len(out) == 0 {
		return "Структурированных данных не найдено"
	}
	return strings.Join(out, "\n")
}

// temporalAnalysis lays entries out on a timeline using their parsed
// dates (stored in metadata) with creation time as fallback.
func (c *Composer) temporalAnalysis(b search.Bundle, now time.Time) string {
	if c.Formatter == nil || len(b.Entries) == 0 {
		return "Временной анализ не выполнен"
	}
	var lines []string
	lines = append(lines, "ВРЕМЕННАЯ ЛИНИЯ:")
	for _, en := range b.Entries[:min(5, len(b.Entries))] {
		meta := ""
		if en.Metadata != nil {
			meta = *en.Metadata
		}
		when, _ := c.Formatter.ExtractEntryDate(meta, time.Unix(en.CreatedAt, 0))
		lines = append(lines, fmt.Sprintf("- %s: %s",
			c.Formatter.FormatRelative(when, now),
			strutil.TruncateRunes(en.OriginalText, 60)))
	}
	return strings.Join(lines, "\n")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func top(hits []search.RankedEntity, n int) []search.RankedEntity {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
