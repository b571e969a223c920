package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Resolver converts a reminder phrase into a concrete trigger timestamp in
// the configured user zone. It never fails: the fallback chain always
// produces a best-effort time, and the caller decides what a timestamp at
// or before "now" means (the scheduler treats it as unresolvable).
type Resolver struct {
	loc *time.Location
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{loc: loc}
}

var (
	// "через 2 часа 30 минут", "через 20 минут": one or more number+unit
	// pairs directly after the trigger word, summed into a duration. The
	// leading anchor keeps a later "в 5 часов" clock clause out of the sum.
	leadingPairRe = regexp.MustCompile(`^(\d+)\s*(сек[а-яё]*|мин[а-яё]*|час[а-яё]*|день|дня|дней|недел[а-яё]*|мес[а-яё]*|год[а-яё]*|лет)\s*(?:и\s+)?`)

	// "в 19:30", "в 7 вечера", "в 5 часов дня". The optional qualifier
	// converts 12-hour references.
	clockRe = regexp.MustCompile(`в\s+(\d{1,2})(?::(\d{2}))?\s*(?:час[а-яё]*\s*)?(утра|дня|вечера|ночи)?`)

	tailWordRe = regexp.MustCompile(`^\s*([а-яё]+)`)

	absWordDateRe = regexp.MustCompile(`(\d{1,2})\s+(января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)\s+(\d{4})`)
	absDotDateRe  = regexp.MustCompile(`(\d{1,2})[./](\d{1,2})[./](\d{4})`)
	absISODateRe  = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
)

// Months and years are approximated as fixed 30/365-day windows rather
// than calendar arithmetic; good enough for spoken reminders.
func unitDuration(unit string) (time.Duration, bool) {
	switch {
	case strings.HasPrefix(unit, "сек"):
		return time.Second, true
	case strings.HasPrefix(unit, "мин"):
		return time.Minute, true
	case strings.HasPrefix(unit, "час"):
		return time.Hour, true
	case strings.HasPrefix(unit, "д"):
		return 24 * time.Hour, true
	case strings.HasPrefix(unit, "недел"):
		return 7 * 24 * time.Hour, true
	case strings.HasPrefix(unit, "мес"):
		return 30 * 24 * time.Hour, true
	case strings.HasPrefix(unit, "год"), unit == "лет":
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}

// relativeOffset reports the summed duration of a "через ..." clause.
func relativeOffset(lower string) (time.Duration, bool) {
	idx := strings.Index(lower, "через")
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(lower[idx+len("через"):])

	var total time.Duration
	for {
		m := leadingPairRe.FindStringSubmatch(rest)
		if m == nil {
			break
		}
		n, err := strconv.Atoi(m[1])
		if err == nil {
			if unit, ok := unitDuration(m[2]); ok {
				total += time.Duration(n) * unit
			}
		}
		rest = rest[len(m[0]):]
	}
	if total > 0 {
		return total, true
	}

	// Bare singular idioms with no digit.
	switch {
	case strings.HasPrefix(rest, "полчаса"):
		return 30 * time.Minute, true
	case strings.HasPrefix(rest, "час"):
		return time.Hour, true
	case strings.HasPrefix(rest, "неделю"):
		return 7 * 24 * time.Hour, true
	case strings.HasPrefix(rest, "месяц"):
		return 30 * 24 * time.Hour, true
	case strings.HasPrefix(rest, "год"):
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}

// explicitClock finds an "в H[:MM] [qualifier]" clause. A match directly
// followed by a month name is a date, not a clock time.
func explicitClock(lower string) (hour, minute int, ok bool) {
	for _, idx := range clockRe.FindAllStringSubmatchIndex(lower, -1) {
		m := clockRe.FindStringSubmatch(lower[idx[0]:idx[1]])
		h, err := strconv.Atoi(m[1])
		if err != nil || h > 23 {
			continue
		}
		if tail := tailWordRe.FindStringSubmatch(lower[idx[1]:]); tail != nil {
			if _, isMonth := monthNames[tail[1]]; isMonth {
				continue
			}
		}
		min := 0
		if m[2] != "" {
			min, _ = strconv.Atoi(m[2])
			if min > 59 {
				continue
			}
		}
		switch m[3] {
		case "дня", "вечера":
			if h >= 1 && h <= 11 {
				h += 12
			}
		case "ночи":
			if h == 12 {
				h = 0
			}
		}
		return h, min, true
	}
	return 0, 0, false
}

func qualitativeHour(lower string) (int, bool) {
	switch {
	case strings.Contains(lower, "утром"), strings.Contains(lower, "с утра"):
		return 9, true
	case strings.Contains(lower, "днем"), strings.Contains(lower, "днём"), strings.Contains(lower, "в обед"):
		return 13, true
	case strings.Contains(lower, "вечером"):
		return 19, true
	case strings.Contains(lower, "ночью"):
		return 23, true
	}
	return 0, false
}

func (r *Resolver) dateAt(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, r.loc)
}

// Resolve produces a trigger timestamp for a reminder phrase.
//
// Priority: relative offsets, then named relative days, then absolute
// dates, then the «завтра»/now fallback. Time-of-day refinement runs on
// top, except that short relative offsets keep their computed clock time
// so "через 20 минут" always means now+20m regardless of other words in
// the phrase.
func (r *Resolver) Resolve(text string, now time.Time) time.Time {
	now = now.In(r.loc)
	lower := strings.ToLower(strings.TrimSpace(text))

	if d, ok := relativeOffset(lower); ok {
		t := now.Add(d)
		if d >= 12*time.Hour {
			if h, m, ok := explicitClock(lower); ok {
				t = r.dateAt(t, h, m)
			} else if h, ok := qualitativeHour(lower); ok {
				t = r.dateAt(t, h, 0)
			}
		}
		return t
	}

	date, matched := r.resolveDate(lower, now)
	if !matched {
		if strings.Contains(lower, "завтра") {
			date = now.AddDate(0, 0, 1)
		} else {
			date = now
		}
	}

	if h, m, ok := explicitClock(lower); ok {
		return r.dateAt(date, h, m)
	}
	if h, ok := qualitativeHour(lower); ok {
		return r.dateAt(date, h, 0)
	}
	return r.dateAt(date, 10, 0)
}

func (r *Resolver) resolveDate(lower string, now time.Time) (time.Time, bool) {
	// Named relative days. "позавчера" before "вчера": the longer word
	// contains the shorter one.
	switch {
	case strings.Contains(lower, "послезавтра"):
		return now.AddDate(0, 0, 2), true
	case strings.Contains(lower, "сегодня"), strings.Contains(lower, "сейчас"):
		return now, true
	case strings.Contains(lower, "позавчера"):
		return now.AddDate(0, 0, -2), true
	case strings.Contains(lower, "вчера"), strings.Contains(lower, "накануне"):
		return now.AddDate(0, 0, -1), true
	}

	for _, w := range weekdayStems {
		for _, v := range w.variants {
			if strings.Contains(lower, v) {
				return nextWeekday(now, w.day), true
			}
		}
	}

	if t, ok := r.absoluteDate(lower, now); ok {
		return t, true
	}
	return time.Time{}, false
}

// absoluteDate parses "15 января 2024", "15.01.2024" and "2024-01-15".
// Invalid calendar values are skipped silently so the caller falls through
// to the next strategy.
func (r *Resolver) absoluteDate(lower string, now time.Time) (time.Time, bool) {
	if m := absWordDateRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if t, ok := makeDateIn(r.loc, year, monthNames[m[2]], day); ok {
			return t, true
		}
	}
	if m := absDotDateRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if t, ok := makeDateIn(r.loc, year, time.Month(month), day); ok {
			return t, true
		}
	}
	if m := absISODateRe.FindStringSubmatch(lower); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := makeDateIn(r.loc, year, time.Month(month), day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
