package compose

import (
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quailyquaily/mira/brain"
	"github.com/quailyquaily/mira/db/models"
	"github.com/quailyquaily/mira/search"
	"github.com/quailyquaily/mira/store"
	"github.com/quailyquaily/mira/temporal"
)

func testComposer() *Composer {
	c := NewComposer(temporal.NewFormatter(time.UTC))
	c.Rand = rand.New(rand.NewSource(1))
	return c
}

func entity(name, typ string) search.RankedEntity {
	return search.RankedEntity{EntityHit: store.EntityHit{Entity: models.Entity{Name: name, Type: typ}}}
}

func entry(text string, createdAt time.Time) models.Entry {
	return models.Entry{OriginalText: text, CreatedAt: createdAt.Unix()}
}

func TestExtractTopic(t *testing.T) {
	cases := []struct {
		query, want string
	}{
		{"расскажи о Васе", "васе"},
		{"что знаешь о работе", "работе"},
		{"расскажи про машину и гараж", "машину гараж"},
		{"покажи все мои важные рабочие детали теперь", "все мои важные"},
		{"о", ""},
	}
	for _, tc := range cases {
		if got := ExtractTopic(tc.query); got != tc.want {
			t.Errorf("ExtractTopic(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestBuildDigest(t *testing.T) {
	c := testComposer()
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

	b := search.Bundle{
		Entities: []search.RankedEntity{entity("вася", "person")},
		Entries: []models.Entry{
			entry("Встретил Васю в автосервисе, отдал 3000 рублей", now.AddDate(0, 0, -1)),
			entry("Вася купил новую машину", now.AddDate(0, 0, -3)),
		},
		RelatedEntities: []store.EntityHit{{Entity: models.Entity{Name: "машина"}}},
		Stats:           search.BundleStats{TotalEntities: 1, TotalEntries: 2, SearchTypesUsed: []string{"entities_person"}},
	}

	d := c.BuildDigest("расскажи о Васе", b, now)
	if d.Topic != "васе" {
		t.Errorf("topic = %q", d.Topic)
	}
	if !d.HasInfo {
		t.Error("HasInfo should be true")
	}
	if !strings.Contains(d.Summary, "вася (person)") {
		t.Errorf("summary missing entity: %q", d.Summary)
	}
	if !strings.Contains(d.Summary, "Связанные сущности: машина") {
		t.Errorf("summary missing related: %q", d.Summary)
	}
	if !strings.Contains(d.StructuredData, "СУММЫ:") || !strings.Contains(d.StructuredData, "- 3000 RUB") {
		t.Errorf("structured data = %q", d.StructuredData)
	}
	if !strings.Contains(d.StructuredData, "ДЕЙСТВИЯ:") {
		t.Errorf("купил not treated as action: %q", d.StructuredData)
	}
	if !strings.Contains(d.TemporalAnalysis, "Вчера") {
		t.Errorf("temporal analysis = %q", d.TemporalAnalysis)
	}
}

func TestBuildDigestEmpty(t *testing.T) {
	c := testComposer()
	d := c.BuildDigest("расскажи о марсе", search.Bundle{}, time.Now())
	if d.HasInfo {
		t.Error("HasInfo should be false")
	}
	if d.StructuredData != "Структурированных данных не найдено" {
		t.Errorf("structured data = %q", d.StructuredData)
	}
	if d.TemporalAnalysis != "Временной анализ не выполнен" {
		t.Errorf("temporal analysis = %q", d.TemporalAnalysis)
	}
}

func TestStructuredWeight(t *testing.T) {
	c := testComposer()
	b := search.Bundle{Entries: []models.Entry{entry("Вес 79 кг утром", time.Now())}}
	d := c.BuildDigest("вес", b, time.Now())
	if !strings.Contains(d.StructuredData, "ИЗМЕРЕНИЯ:") || !strings.Contains(d.StructuredData, "- weight: 79kg") {
		t.Errorf("structured data = %q", d.StructuredData)
	}
}

func TestFormatFinalInformativePrefix(t *testing.T) {
	got := FormatFinal(brain.Response{Text: "Вася работает в офисе.", Tone: brain.ToneInformative})
	if got != "📊 Вася работает в офисе." {
		t.Errorf("got %q", got)
	}

	got = FormatFinal(brain.Response{Text: "Пока ничего не знаю.", Tone: brain.ToneCaring})
	if strings.HasPrefix(got, "📊") {
		t.Errorf("caring tone should not get the chart marker: %q", got)
	}
}

func TestFormatFinalStripsUnwanted(t *testing.T) {
	r := brain.Response{
		Text: "Вася весит 79 кг. Рекомендую отслеживать динамику. Последняя запись вчера.",
		Tone: brain.ToneCaring,
	}
	got := FormatFinal(r)
	if strings.Contains(got, "Рекомендую") {
		t.Errorf("unwanted phrase kept: %q", got)
	}
	if !strings.Contains(got, "Вася весит 79 кг") || !strings.Contains(got, "Последняя запись вчера") {
		t.Errorf("good sentences dropped: %q", got)
	}
	if !strings.HasSuffix(got, ".") {
		t.Errorf("missing final period: %q", got)
	}
}

func TestNoDataResponse(t *testing.T) {
	c := testComposer()
	got := c.NoDataResponse("расскажи о Васе")
	if !strings.HasPrefix(got, "💕 ") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "о васе") {
		t.Errorf("topic not substituted: %q", got)
	}
	if !strings.Contains(got, "\n\n💡 ") {
		t.Errorf("missing suggestion block: %q", got)
	}
}

func TestDataResponse(t *testing.T) {
	c := testComposer()
	long := strings.Repeat("д", 100)
	b := search.Bundle{
		Entities: []search.RankedEntity{entity("вася", "person"), entity("машина", "object")},
		Entries: []models.Entry{
			entry("Встретил Васю", time.Now()),
			entry(long, time.Now()),
		},
		RelatedEntities: []store.EntityHit{{Entity: models.Entity{Name: "работа"}}},
		Stats:           search.BundleStats{TotalEntries: 5},
	}

	got := c.DataResponse("расскажи о Васе", b)
	if !strings.Contains(got, "📚 Вот что я знаю о васе:") {
		t.Errorf("missing header: %q", got)
	}
	if !strings.Contains(got, "🏷️ Сущности: вася, машина") {
		t.Errorf("missing entities: %q", got)
	}
	if !strings.Contains(got, "1. Встретил Васю") {
		t.Errorf("missing numbered entry: %q", got)
	}
	if !strings.Contains(got, "2. "+strings.Repeat("д", 80)+"...") {
		t.Errorf("long entry not truncated: %q", got)
	}
	if !strings.Contains(got, "🔗 Связанное: работа") {
		t.Errorf("missing related: %q", got)
	}
	if !strings.Contains(got, "📊 Всего найдено 5 записей") {
		t.Errorf("missing total: %q", got)
	}
}

func TestStatsSummary(t *testing.T) {
	got := StatsSummary(store.Stats{}, nil)
	if !strings.Contains(got, "пока пуста") {
		t.Errorf("got %q", got)
	}

	got = StatsSummary(store.Stats{Entries: 5, Entities: 3, ActiveReminders: 1}, []models.Entry{
		entry("Поменял масло", time.Now()),
	})
	for _, want := range []string{"📝 5 записей", "🏷️ 3 сущностей", "⏰ 1 напоминаний", "• Поменял масло"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q: %q", want, got)
		}
	}

	got = StatsSummary(store.Stats{Entries: 2, Entities: 1}, nil)
	if strings.Contains(got, "⏰") {
		t.Errorf("zero reminders should not be shown: %q", got)
	}
}

func TestQuickInsights(t *testing.T) {
	got := QuickInsights(nil, nil)
	if !strings.Contains(got, "Пока нет данных") {
		t.Errorf("got %q", got)
	}

	counts := []store.TypeCount{
		{Type: "person", Count: 4},
		{Type: "object", Count: 2},
		{Type: "building", Count: 1},
	}
	tops := []store.EntityHit{
		{Entity: models.Entity{Name: "вася"}},
		{Entity: models.Entity{Name: "машина"}},
	}
	got = QuickInsights(counts, tops)
	for _, want := range []string{"🔍 Быстрые инсайты:", "📌 люди: 4", "📌 объекты: 2", "📌 building: 1", "🏷️ Часто упоминаемые: вася, машина"} {
		if !strings.Contains(got, want) {
			t.Errorf("insights missing %q: %q", want, got)
		}
	}
}

// Chat workers share one Composer, so template picks run concurrently.
func TestWaitingMessageConcurrent(t *testing.T) {
	c := testComposer()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if c.WaitingMessage() == "" {
					t.Error("empty waiting message")
				}
			}
		}()
	}
	wg.Wait()
}

func TestWaitingMessage(t *testing.T) {
	c := testComposer()
	msg := c.WaitingMessage()
	if strings.TrimSpace(msg) == "" {
		t.Fatal("empty waiting message")
	}

	if got := loadWaitingMessages("  \n\n"); len(got) != 2 || got[0] != "Думаю…" {
		t.Errorf("fallback messages = %v", got)
	}
	if got := loadWaitingMessages("а\nа\nб\n"); len(got) != 2 {
		t.Errorf("dedup failed: %v", got)
	}
}
