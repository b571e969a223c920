package temporal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Formatter renders entry dates as humanized Russian expressions relative
// to a reference time ("Вчера", "Через 3 дня", "2 месяца назад, 5 мая").
type Formatter struct {
	loc *time.Location
}

func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{loc: loc}
}

var weekdayAccusative = map[time.Weekday]string{
	time.Monday:    "понедельник",
	time.Tuesday:   "вторник",
	time.Wednesday: "среду",
	time.Thursday:  "четверг",
	time.Friday:    "пятницу",
	time.Saturday:  "субботу",
	time.Sunday:    "воскресенье",
}

// ExtractEntryDate pulls the entry's effective date: the parsed_date stored
// in metadata when present, otherwise the creation timestamp.
func (f *Formatter) ExtractEntryDate(metadataJSON string, createdAt time.Time) (time.Time, bool) {
	if metadataJSON != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(metadataJSON), &meta); err == nil {
			if raw, ok := meta["parsed_date"].(string); ok && raw != "" {
				if dt, err := time.ParseInLocation(DateString, raw, f.loc); err == nil {
					return dt, true
				}
			}
		}
	}
	if createdAt.IsZero() {
		return time.Time{}, false
	}
	return createdAt.In(f.loc), true
}

// FormatRelative renders the difference between an entry date and the
// reference time. Comparison is at date granularity; months and years use
// the same 30/365-day approximation as the resolver.
func (f *Formatter) FormatRelative(entryDate, ref time.Time) string {
	entryDay := truncateToDay(entryDate.In(f.loc))
	refDay := truncateToDay(ref.In(f.loc))

	days := int(entryDay.Sub(refDay).Hours() / 24)
	if days == 0 {
		return "Сегодня"
	}

	if days > 0 {
		return f.formatFuture(entryDate, days)
	}
	return f.formatPast(entryDate, ref, -days)
}

func (f *Formatter) formatFuture(entryDate time.Time, days int) string {
	weeks := days / 7
	months := days / 30
	switch {
	case days == 1:
		return "Завтра"
	case days == 2:
		return "Послезавтра"
	case days <= 7:
		return fmt.Sprintf("Через %d %s", days, pluralDays(days))
	case weeks == 1:
		return "Через неделю"
	case weeks <= 4:
		return fmt.Sprintf("Через %d %s", weeks, pluralWeeks(weeks))
	case months <= 3:
		return fmt.Sprintf("Через %d %s", months, pluralMonths(months))
	default:
		return f.formatDate(entryDate)
	}
}

func (f *Formatter) formatPast(entryDate, ref time.Time, days int) string {
	weeks := days / 7
	months := days / 30
	years := days / 365
	switch {
	case days == 1:
		return "Вчера"
	case days == 2:
		return "Позавчера"
	case days <= 7:
		ey, ew := entryDate.ISOWeek()
		ry, rw := ref.ISOWeek()
		if ey == ry && ew == rw {
			return "В " + weekdayAccusative[entryDate.Weekday()]
		}
		return fmt.Sprintf("%d %s назад", days, pluralDays(days))
	case weeks == 1:
		return "На прошлой неделе, " + f.formatDateShort(entryDate)
	case months == 0:
		return fmt.Sprintf("%d %s назад, %s", weeks, pluralWeeks(weeks), f.formatDateShort(entryDate))
	case months == 1:
		return "В прошлом месяце, " + f.formatDateShort(entryDate)
	case months <= 12:
		return fmt.Sprintf("%d %s назад, %s", months, pluralMonths(months), f.formatDateShort(entryDate))
	case years == 1:
		return "В прошлом году, " + f.formatDateShort(entryDate)
	default:
		return fmt.Sprintf("%d %s назад, %s", years, pluralYears(years), f.formatDateShort(entryDate))
	}
}

func (f *Formatter) formatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), monthGenitive[t.Month()], t.Year())
}

func (f *Formatter) formatDateShort(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), monthGenitive[t.Month()])
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func pluralDays(n int) string {
	switch {
	case n == 1:
		return "день"
	case n >= 2 && n <= 4:
		return "дня"
	default:
		return "дней"
	}
}

func pluralWeeks(n int) string {
	switch {
	case n == 1:
		return "неделю"
	case n >= 2 && n <= 4:
		return "недели"
	default:
		return "недель"
	}
}

func pluralMonths(n int) string {
	switch {
	case n == 1:
		return "месяц"
	case n >= 2 && n <= 4:
		return "месяца"
	default:
		return "месяцев"
	}
}

func pluralYears(n int) string {
	mod10, mod100 := n%10, n%100
	switch {
	case mod10 == 1 && mod100 != 11:
		return "год"
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 12 || mod100 > 14):
		return "года"
	default:
		return "лет"
	}
}
