package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseResult carries the temporal information extracted from an entry.
// ProcessedText is the lowercased input with the matched date phrase
// replaced by DD.MM.YYYY, ready for storage alongside the original.
type ParseResult struct {
	DateTime      *time.Time
	DateString    string
	ProcessedText string
	TimeOfDay     string
	Confidence    float64
}

// Parser extracts the date an entry talks about (usually in the past:
// "вчера был в магазине") for metadata enrichment. It is distinct from
// Resolver, which answers "when should this reminder fire".
type Parser struct {
	loc *time.Location
}

func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

type relativeRule struct {
	re    *regexp.Regexp
	since func(now time.Time) time.Time
}

var (
	todayRe     = regexp.MustCompile(`сегодня|сейчас|только что`)
	dayBeforeRe = regexp.MustCompile(`позавчера|два дня назад`)
	yesterdayRe = regexp.MustCompile(`вчера|накануне`)

	daysAgoRe   = regexp.MustCompile(`(\d+)\s*(?:дней|дня|день)\s*назад`)
	weeksAgoRe  = regexp.MustCompile(`(\d+)\s*недел[а-яё]*\s*назад`)
	monthsAgoRe = regexp.MustCompile(`(\d+)\s*месяц[а-яё]*\s*назад`)
	yearsAgoRe  = regexp.MustCompile(`(\d+)\s*(?:лет|года?)\s*назад`)

	timeOfDayRes = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"утром", regexp.MustCompile(`утром|с утра`)},
		{"днем", regexp.MustCompile(`днем|днём|в обед`)},
		{"вечером", regexp.MustCompile(`вечером|с вечера`)},
		{"ночью", regexp.MustCompile(`ночью|с ночи`)},
	}

	weekdayRes = func() []struct {
		day time.Weekday
		re  *regexp.Regexp
	} {
		out := make([]struct {
			day time.Weekday
			re  *regexp.Regexp
		}, 0, len(weekdayStems))
		for _, w := range weekdayStems {
			out = append(out, struct {
				day time.Weekday
				re  *regexp.Regexp
			}{w.day, regexp.MustCompile(strings.Join(w.variants, "|"))})
		}
		return out
	}()
)

// ParseText extracts temporal information from free text. Confidence tiers
// follow the match strategy: 0.9 relative, 0.8 absolute, 0.3 when only a
// time-of-day word was found, 0 otherwise. Never fails.
func (p *Parser) ParseText(text string, now time.Time) ParseResult {
	now = now.In(p.loc)
	lower := strings.ToLower(text)

	res := ParseResult{ProcessedText: text}

	if dt, processed, ok := p.findRelative(lower, now); ok {
		res.DateTime = &dt
		res.DateString = dt.Format(DateString)
		res.ProcessedText = processed
		res.Confidence = 0.9
		res.TimeOfDay = findTimeOfDay(lower)
		return res
	}

	if dt, processed, ok := p.findAbsolute(lower, now); ok {
		res.DateTime = &dt
		res.DateString = dt.Format(DateString)
		res.ProcessedText = processed
		res.Confidence = 0.8
		res.TimeOfDay = findTimeOfDay(lower)
		return res
	}

	if tod := findTimeOfDay(lower); tod != "" {
		res.TimeOfDay = tod
		res.Confidence = 0.3
	}
	return res
}

func substitute(lower string, re *regexp.Regexp, dt time.Time) string {
	return re.ReplaceAllString(lower, dt.Format("02.01.2006"))
}

func (p *Parser) findRelative(lower string, now time.Time) (time.Time, string, bool) {
	if todayRe.MatchString(lower) {
		return now, substitute(lower, todayRe, now), true
	}
	// The longer "позавчера" contains "вчера" and has to win.
	if dayBeforeRe.MatchString(lower) {
		dt := now.AddDate(0, 0, -2)
		return dt, substitute(lower, dayBeforeRe, dt), true
	}
	if yesterdayRe.MatchString(lower) {
		dt := now.AddDate(0, 0, -1)
		return dt, substitute(lower, yesterdayRe, dt), true
	}

	for _, w := range weekdayRes {
		if w.re.MatchString(lower) {
			dt := nextWeekday(now, w.day)
			return dt, substitute(lower, w.re, dt), true
		}
	}

	type agoRule struct {
		re   *regexp.Regexp
		days int
	}
	for _, rule := range []agoRule{
		{daysAgoRe, 1},
		{weeksAgoRe, 7},
		{monthsAgoRe, 30}, // approximation, same as the duration table
		{yearsAgoRe, 365},
	} {
		if m := rule.re.FindStringSubmatch(lower); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			dt := now.AddDate(0, 0, -n*rule.days)
			return dt, substitute(lower, rule.re, dt), true
		}
	}

	return time.Time{}, "", false
}

func (p *Parser) findAbsolute(lower string, now time.Time) (time.Time, string, bool) {
	if m := absWordDateRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if dt, ok := makeDateIn(p.loc, year, monthNames[m[2]], day); ok {
			return dt, substitute(lower, absWordDateRe, dt), true
		}
	}
	if m := absDotDateRe.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if dt, ok := makeDateIn(p.loc, year, time.Month(month), day); ok {
			return dt, substitute(lower, absDotDateRe, dt), true
		}
	}
	if m := absISODateRe.FindStringSubmatch(lower); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if dt, ok := makeDateIn(p.loc, year, time.Month(month), day); ok {
			return dt, substitute(lower, absISODateRe, dt), true
		}
	}
	return time.Time{}, "", false
}

func findTimeOfDay(lower string) string {
	for _, t := range timeOfDayRes {
		if t.re.MatchString(lower) {
			return t.name
		}
	}
	return ""
}
