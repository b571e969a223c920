package compose

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/mira/brain"
	"github.com/quailyquaily/mira/internal/strutil"
	"github.com/quailyquaily/mira/search"
)

var noDataTemplates = []string{
	"Пока я ничего не знаю об этом, но я внимательно слушаю и запоминаю все, что ты говоришь! 💭",
	"Моя память об этом пока чиста. Расскажи мне что-нибудь, и я запомню! ✨",
	"Пока у меня нет информации об этом. Но я готова учиться и запоминать! 📚",
}

var foundDataHeaders = []string{
	"Вот что я знаю:",
	"Нашла информацию:",
	"Вот что удалось найти:",
}

var noDataSuggestions = []string{
	"Расскажи мне что-нибудь об этом!",
	"Поделись историей!",
	"Что бы ты хотел, чтобы я запомнила?",
}

var foundDataSuggestions = []string{
	"Хочешь узнать больше деталей?",
	"Расскажи что-то новое об этом!",
	"Есть еще вопросы?",
}

// Phrases the model is told not to produce; any sentence containing one
// is removed from the final text anyway.
var unwantedPhrases = []string{
	"Эта информация сохранена в системе",
	"Рекомендую отслеживать динамику",
	"Рекомендую продолжить мониторинг",
	"Советую обратить внимание",
	"Рекомендую",
	"Советую",
	"Стоит",
	"Желательно",
}

// FormatFinal applies the outgoing polish: a chart marker for
// informative answers and removal of sentences with unwanted phrases.
func FormatFinal(r brain.Response) string {
	text := r.Text
	if r.Tone == brain.ToneInformative {
		text = "📊 " + text
	}
	return stripUnwanted(text)
}

func stripUnwanted(text string) string {
	for _, phrase := range unwantedPhrases {
		if !strings.Contains(text, phrase) {
			continue
		}
		lowerPhrase := strings.ToLower(phrase)
		var kept []string
		for _, sentence := range strings.Split(text, ".") {
			if strings.Contains(strings.ToLower(sentence), lowerPhrase) {
				continue
			}
			kept = append(kept, sentence)
		}
		text = strings.TrimSpace(strings.Join(kept, "."))
		if text != "" && !strings.HasSuffix(text, ".") {
			text += "."
		}
	}
	return text
}

// NoDataResponse is the warm template answer for an empty search.
func (c *Composer) NoDataResponse(query string) string {
	topic := ExtractTopic(query)
	response := c.pick(noDataTemplates)
	if topic != "" {
		response = strings.Replace(response, "об этом", "о "+topic, 1)
	}
	return fmt.Sprintf("💕 %s\n\n💡 %s", response, c.pick(noDataSuggestions))
}

// DataResponse is the template answer used when the model is not
// available but the search found something.
func (c *Composer) DataResponse(query string, b search.Bundle) string {
	topic := ExtractTopic(query)
	var parts []string

	if topic != "" {
		parts = append(parts, fmt.Sprintf("📚 Вот что я знаю о %s:", topic))
	} else {
		parts = append(parts, c.pick(foundDataHeaders))
	}

	if len(b.Entities) > 0 {
		var names []string
		for _, e := range top(b.Entities, 3) {
			names = append(names, e.Name)
		}
		parts = append(parts, "\n🏷️ Сущности: "+strings.Join(names, ", "))
	}

	if len(b.Entries) > 0 {
		parts = append(parts, "\n📝 Записи:")
		for i, en := range b.Entries[:min(3, len(b.Entries))] {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, strutil.TruncateRunes(en.OriginalText, 80)))
		}
	}

	if len(b.RelatedEntities) > 0 {
		var names []string
		for _, e := range b.RelatedEntities[:min(2, len(b.RelatedEntities))] {
			names = append(names, e.Name)
		}
		parts = append(parts, "\n🔗 Связанное: "+strings.Join(names, ", "))
	}

	if b.Stats.TotalEntries > 3 {
		parts = append(parts, fmt.Sprintf("\n📊 Всего найдено %d записей", b.Stats.TotalEntries))
	}

	parts = append(parts, "\n💡 "+c.pick(foundDataSuggestions))
	return strings.Join(parts, "\n")
}
