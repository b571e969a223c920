package temporal

import (
	"testing"
	"time"
)

var msk = time.FixedZone("MSK", 3*3600)

// Wednesday afternoon, a stable anchor for weekday arithmetic.
var refNow = time.Date(2024, time.March, 13, 14, 30, 0, 0, msk)

func TestResolveRelativeOffsets(t *testing.T) {
	r := NewResolver(msk)

	cases := []struct {
		text string
		want time.Time
	}{
		{"через 20 минут позвонить маме", refNow.Add(20 * time.Minute)},
		{"через 2 часа встреча", refNow.Add(2 * time.Hour)},
		{"через 30 секунд", refNow.Add(30 * time.Second)},
		{"через полчаса", refNow.Add(30 * time.Minute)},
		{"через час", refNow.Add(time.Hour)},
		{"через 1 час и 30 минут", refNow.Add(90 * time.Minute)},
		{"через 2 дня 3 часа", refNow.Add(51 * time.Hour)},
		{"через неделю", refNow.Add(7 * 24 * time.Hour)},
		{"через 2 недели", refNow.Add(14 * 24 * time.Hour)},
		{"через месяц", refNow.Add(30 * 24 * time.Hour)},
		{"через год", refNow.Add(365 * 24 * time.Hour)},
	}
	for _, c := range cases {
		got := r.Resolve(c.text, refNow)
		if !got.Equal(c.want) {
			t.Errorf("Resolve(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

// Short relative offsets keep the computed clock time even when the phrase
// also names a time of day.
func TestResolveShortOffsetIgnoresTimeOfDay(t *testing.T) {
	r := NewResolver(msk)
	got := r.Resolve("через 20 минут вечером", refNow)
	want := refNow.Add(20 * time.Minute)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResolveLongOffsetTakesClock(t *testing.T) {
	r := NewResolver(msk)

	got := r.Resolve("через неделю в 17:30", refNow)
	base := refNow.Add(7 * 24 * time.Hour)
	want := time.Date(base.Year(), base.Month(), base.Day(), 17, 30, 0, 0, msk)
	if !got.Equal(want) {
		t.Errorf("explicit clock: got %v, want %v", got, want)
	}

	got = r.Resolve("через 3 дня утром", refNow)
	base = refNow.Add(3 * 24 * time.Hour)
	want = time.Date(base.Year(), base.Month(), base.Day(), 9, 0, 0, 0, msk)
	if !got.Equal(want) {
		t.Errorf("qualitative hour: got %v, want %v", got, want)
	}
}

func TestResolveNamedDays(t *testing.T) {
	r := NewResolver(msk)

	cases := []struct {
		text string
		want time.Time
	}{
		{"завтра в 15:00", time.Date(2024, time.March, 14, 15, 0, 0, 0, msk)},
		{"послезавтра утром", time.Date(2024, time.March, 15, 9, 0, 0, 0, msk)},
		{"сегодня вечером", time.Date(2024, time.March, 13, 19, 0, 0, 0, msk)},
		// No explicit time falls back to 10:00.
		{"завтра сходить в банк", time.Date(2024, time.March, 14, 10, 0, 0, 0, msk)},
	}
	for _, c := range cases {
		got := r.Resolve(c.text, refNow)
		if !got.Equal(c.want) {
			t.Errorf("Resolve(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestResolveWeekdays(t *testing.T) {
	r := NewResolver(msk)

	// refNow is Wednesday. Friday is two days out, Monday wraps to next week,
	// Wednesday itself stays today.
	cases := []struct {
		text    string
		wantDay time.Time
	}{
		{"в пятницу в 18:00", time.Date(2024, time.March, 15, 18, 0, 0, 0, msk)},
		{"в понедельник", time.Date(2024, time.March, 18, 10, 0, 0, 0, msk)},
		{"в среду днем", time.Date(2024, time.March, 13, 13, 0, 0, 0, msk)},
	}
	for _, c := range cases {
		got := r.Resolve(c.text, refNow)
		if !got.Equal(c.wantDay) {
			t.Errorf("Resolve(%q) = %v, want %v", c.text, got, c.wantDay)
		}
	}
}

func TestResolveAbsoluteDates(t *testing.T) {
	r := NewResolver(msk)

	cases := []struct {
		text string
		want time.Time
	}{
		{"15 января 2025 в 12:00", time.Date(2025, time.January, 15, 12, 0, 0, 0, msk)},
		{"запись к врачу 01.04.2024", time.Date(2024, time.April, 1, 10, 0, 0, 0, msk)},
		{"дедлайн 2024-12-31 вечером", time.Date(2024, time.December, 31, 19, 0, 0, 0, msk)},
	}
	for _, c := range cases {
		got := r.Resolve(c.text, refNow)
		if !got.Equal(c.want) {
			t.Errorf("Resolve(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestResolveInvalidCalendarDateFallsThrough(t *testing.T) {
	r := NewResolver(msk)
	// Feb 30 must not normalize to March; with no other cue the phrase
	// resolves to today at 10:00.
	got := r.Resolve("30.02.2024", refNow)
	want := time.Date(2024, time.March, 13, 10, 0, 0, 0, msk)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResolveClockMeridiem(t *testing.T) {
	r := NewResolver(msk)

	cases := []struct {
		text     string
		wantHour int
	}{
		{"завтра в 5 вечера", 17},
		{"завтра в 5 утра", 5},
		{"завтра в 11 дня", 23},
		{"завтра в 12 ночи", 0},
	}
	for _, c := range cases {
		got := r.Resolve(c.text, refNow)
		if got.Hour() != c.wantHour {
			t.Errorf("Resolve(%q).Hour() = %d, want %d", c.text, got.Hour(), c.wantHour)
		}
	}
}

func TestResolveFallback(t *testing.T) {
	r := NewResolver(msk)
	got := r.Resolve("напомни про отчет", refNow)
	want := time.Date(2024, time.March, 13, 10, 0, 0, 0, msk)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
