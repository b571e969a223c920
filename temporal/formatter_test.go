package temporal

import (
	"fmt"
	"testing"
	"time"
)

func TestFormatRelative(t *testing.T) {
	f := NewFormatter(msk)
	ref := time.Date(2024, time.March, 13, 14, 30, 0, 0, msk) // Wednesday

	cases := []struct {
		entry time.Time
		want  string
	}{
		{ref, "Сегодня"},
		{ref.AddDate(0, 0, -1), "Вчера"},
		{ref.AddDate(0, 0, -2), "Позавчера"},
		{ref.AddDate(0, 0, 1), "Завтра"},
		{ref.AddDate(0, 0, 2), "Послезавтра"},
		{ref.AddDate(0, 0, 3), "Через 3 дня"},
		{ref.AddDate(0, 0, 5), "Через 5 дней"},
		{ref.AddDate(0, 0, 7), "Через 7 дней"},
		{ref.AddDate(0, 0, 10), "Через неделю"},
		{ref.AddDate(0, 0, 21), "Через 3 недели"},
		{ref.AddDate(0, 0, 60), "Через 2 месяца"},
		// Sunday Mar 10 is in the previous ISO week, so no weekday name.
		{ref.AddDate(0, 0, -3), "3 дня назад"},
		{ref.AddDate(0, 0, -10), "На прошлой неделе, 3 марта"},
		{ref.AddDate(0, 0, -14), "2 недели назад, 28 февраля"},
		{ref.AddDate(0, 0, -20), "2 недели назад, 22 февраля"},
		{ref.AddDate(0, 0, -27), "3 недели назад, 15 февраля"},
		{ref.AddDate(0, 0, -35), "В прошлом месяце, 7 февраля"},
		{ref.AddDate(0, 0, -70), "2 месяца назад, 3 января"},
		{ref.AddDate(0, 0, -400), "В прошлом году, 7 февраля"},
		{ref.AddDate(0, 0, -800), "2 года назад, 3 января"},
	}
	for _, c := range cases {
		got := f.FormatRelative(c.entry, ref)
		if got != c.want {
			t.Errorf("FormatRelative(%v) = %q, want %q", c.entry.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestFormatRelativeSameWeekPast(t *testing.T) {
	f := NewFormatter(msk)
	ref := time.Date(2024, time.March, 15, 12, 0, 0, 0, msk) // Friday
	got := f.FormatRelative(ref.AddDate(0, 0, -4), ref)      // Monday, same ISO week
	if got != "В понедельник" {
		t.Fatalf("got %q, want %q", got, "В понедельник")
	}
}

func TestExtractEntryDate(t *testing.T) {
	f := NewFormatter(msk)
	created := time.Date(2024, time.March, 10, 8, 0, 0, 0, msk)

	meta := fmt.Sprintf(`{"parsed_date":%q,"confidence":0.9}`, "2024-03-01 00:00:00")
	dt, ok := f.ExtractEntryDate(meta, created)
	if !ok {
		t.Fatal("no date extracted")
	}
	want := time.Date(2024, time.March, 1, 0, 0, 0, 0, msk)
	if !dt.Equal(want) {
		t.Fatalf("got %v, want %v", dt, want)
	}

	dt, ok = f.ExtractEntryDate("", created)
	if !ok || !dt.Equal(created) {
		t.Fatalf("fallback: got %v ok=%v, want %v", dt, ok, created)
	}

	dt, ok = f.ExtractEntryDate("not json", created)
	if !ok || !dt.Equal(created) {
		t.Fatalf("bad metadata: got %v ok=%v, want %v", dt, ok, created)
	}
}

func TestPluralForms(t *testing.T) {
	if got := pluralDays(21); got != "дней" {
		t.Errorf("pluralDays(21) = %q", got)
	}
	if got := pluralYears(21) + " " + pluralYears(22) + " " + pluralYears(25); got != "год года лет" {
		t.Errorf("year plurals: %q", got)
	}
	if got := pluralYears(11) + " " + pluralYears(12); got != "лет лет" {
		t.Errorf("teens plurals: %q", got)
	}
}
