package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testNormalization = map[string]string{
	"васю":   "вася",
	"васе":   "вася",
	"машину": "машина",
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	return NewEngine(rules, func(w string) string {
		if base, ok := testNormalization[w]; ok {
			return base
		}
		return w
	})
}

func hasEntity(res Result, name, typ string) bool {
	for _, e := range res.Entities {
		if e.Name == name && e.Type == typ {
			return true
		}
	}
	return false
}

func hasTag(res Result, tag string) bool {
	for _, t := range res.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func TestCategorizePerson(t *testing.T) {
	e := newTestEngine(t)
	res := e.Categorize("Встретил Васю в автосервисе")

	if res.Category != "person_info" {
		t.Fatalf("category = %q", res.Category)
	}
	// The oblique surface form collapses to the base form, so later
	// queries for the nominative find the stored entity.
	if !hasEntity(res, "вася", "person") {
		t.Fatalf("missing person entity, got %+v", res.Entities)
	}
	if !hasTag(res, "#люди") {
		t.Fatalf("missing #люди tag, got %v", res.Tags)
	}
	if res.Confidence != 0.9 {
		t.Fatalf("confidence = %v", res.Confidence)
	}
}

func TestCategorizeBirthday(t *testing.T) {
	e := newTestEngine(t)
	res := e.Categorize("У Руслана день рождения 12 ноября")

	if res.Category != "person_info" {
		t.Fatalf("category = %q", res.Category)
	}
	if len(res.Entities) == 0 || res.Entities[0].Type != "person" {
		t.Fatalf("entities = %+v", res.Entities)
	}
	if res.TemporalInfo == nil || res.TemporalInfo.Kind != "specific_date" {
		t.Fatalf("temporal info = %+v", res.TemporalInfo)
	}
	if res.TemporalInfo.Match != "12 ноября" {
		t.Fatalf("temporal match = %q", res.TemporalInfo.Match)
	}
}

func TestCategorizeReminder(t *testing.T) {
	e := newTestEngine(t)
	res := e.Categorize("Напомни позвонить маме завтра")

	if res.Category != "reminders" {
		t.Fatalf("category = %q", res.Category)
	}
	if len(res.Reminders) == 0 {
		t.Fatal("no reminder candidates")
	}
	for _, r := range res.Reminders {
		if r.OriginalText != "Напомни позвонить маме завтра" {
			t.Fatalf("candidate lost the original text: %+v", r)
		}
	}
	if !hasTag(res, "#напоминания") {
		t.Fatalf("tags = %v", res.Tags)
	}
	if res.TemporalInfo == nil || res.TemporalInfo.Kind != "tomorrow" {
		t.Fatalf("temporal info = %+v", res.TemporalInfo)
	}
}

func TestCategorizeShoppingFallsUnderReminderWords(t *testing.T) {
	e := newTestEngine(t)
	res := e.Categorize("Нужно купить молоко завтра")

	// "нужно" hits the reminder rule first, so that names the category,
	// but the shopping entities and tags are still collected.
	if res.Category != "reminders" {
		t.Fatalf("category = %q", res.Category)
	}
	if !hasTag(res, "#покупки") {
		t.Fatalf("tags = %v", res.Tags)
	}
	if !hasEntity(res, "молоко завтра", "task") {
		t.Fatalf("entities = %+v", res.Entities)
	}
}

func TestReminderTextKeepsSurfaceForm(t *testing.T) {
	e := newTestEngine(t)
	res := e.Categorize("Нужно помыть машину завтра")

	if !hasEntity(res, "помыть машина завтра", "task") {
		t.Fatalf("entities = %+v", res.Entities)
	}
	surface := false
	for _, r := range res.Reminders {
		if strings.Contains(r.Text, "машину") {
			surface = true
		}
	}
	if !surface {
		t.Fatalf("reminder text lost the surface form: %+v", res.Reminders)
	}
}

func TestCategorizeNoMatch(t *testing.T) {
	e := newTestEngine(t)
	res := e.Categorize("просто какой-то текст")

	if res.Category != CategoryGeneral {
		t.Fatalf("category = %q", res.Category)
	}
	if res.Confidence != 0 {
		t.Fatalf("confidence = %v", res.Confidence)
	}
	if len(res.Reminders) != 0 {
		t.Fatalf("reminders = %+v", res.Reminders)
	}
}

func TestCategorizeKilometersReminder(t *testing.T) {
	e := newTestEngine(t)
	res := e.Categorize("Поменял масло, следующая замена через 3000 км")

	if res.TemporalInfo == nil || res.TemporalInfo.Kind != "km_reminder" {
		t.Fatalf("temporal info = %+v", res.TemporalInfo)
	}
}

func TestLoadRulesRejectsBadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	bad := "rules:\n  - name: x\n    entity_type: y\n    patterns: ['(unclosed']\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected compile error")
	}
}
