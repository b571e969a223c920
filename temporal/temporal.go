// Package temporal turns free-form Russian date/time phrases into concrete
// timestamps and back into humanized expressions. All regexes here use
// explicit Cyrillic classes instead of \b / \w: RE2 treats only ASCII as
// word characters, so Python-style boundaries do not carry over.
package temporal

import "time"

var monthNames = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

var monthGenitive = map[time.Month]string{
	time.January:   "января",
	time.February:  "февраля",
	time.March:     "марта",
	time.April:     "апреля",
	time.May:       "мая",
	time.June:      "июня",
	time.July:      "июля",
	time.August:    "августа",
	time.September: "сентября",
	time.October:   "октября",
	time.November:  "ноября",
	time.December:  "декабря",
}

// weekday index as in time.Weekday (Sunday=0).
var weekdayStems = []struct {
	day      time.Weekday
	variants []string
}{
	{time.Monday, []string{"в понедельник", "понедельник"}},
	{time.Tuesday, []string{"во вторник", "вторник"}},
	{time.Wednesday, []string{"в среду", "среда", "среду"}},
	{time.Thursday, []string{"в четверг", "четверг"}},
	{time.Friday, []string{"в пятницу", "пятница", "пятницу"}},
	{time.Saturday, []string{"в субботу", "суббота", "субботу"}},
	{time.Sunday, []string{"в воскресенье", "воскресенье"}},
}

// DateString is the canonical storage format for parsed dates in entry
// metadata.
const DateString = "2006-01-02 15:04:05"

// makeDateIn builds a midnight timestamp, rejecting invalid calendar
// values instead of letting time.Date normalize them (Feb 30 → Mar 2).
func makeDateIn(loc *time.Location, year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// nextWeekday resolves a weekday name to its next occurrence: today when
// the week still has it ahead (including today itself), otherwise within
// the following seven days. Never in the past at date granularity.
func nextWeekday(now time.Time, target time.Weekday) time.Time {
	ahead := int(target) - int(now.Weekday())
	if ahead < 0 {
		ahead += 7
	}
	return now.AddDate(0, 0, ahead)
}
