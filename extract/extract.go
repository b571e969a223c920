// Package extract turns free-form Russian utterances into structured
// entities, tags and reminder candidates using ordered pattern rules.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Entity is a single extracted mention, lowercased and collapsed to its
// base form when the normalization table knows the surface form.
type Entity struct {
	Name       string
	Type       string
	Rule       string
	Confidence float64
}

// ReminderCandidate carries the fragment that matched a reminder pattern
// plus the full utterance. Trigger resolution runs on the full text, since
// non-greedy patterns often capture only a fragment of the date phrase.
type ReminderCandidate struct {
	Text         string
	OriginalText string
}

// TemporalInfo is a coarse classification of the date phrase found in the
// utterance, stored as entry metadata.
type TemporalInfo struct {
	Kind  string
	Match string
}

// Result bundles everything the rules found in one utterance.
type Result struct {
	Entities     []Entity
	Tags         []string
	Reminders    []ReminderCandidate
	TemporalInfo *TemporalInfo
	Category     string
	Confidence   float64
}

const (
	CategoryGeneral = "general"

	patternConfidence = 0.9
)

// Engine applies the rule set. Rule order is significant: the first rule
// with a match names the primary category.
type Engine struct {
	rules     []Rule
	normalize func(string) string
}

// NewEngine builds an engine over the rule set. normalize maps a single
// lowercased word to its base form so stored entity names match query
// keywords; nil keeps surface forms as-is.
func NewEngine(rules []Rule, normalize func(string) string) *Engine {
	if normalize == nil {
		normalize = func(w string) string { return w }
	}
	return &Engine{rules: rules, normalize: normalize}
}

// baseForm normalizes each word of an entity name independently, so
// compound names collapse component by component.
func (e *Engine) baseForm(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		fields[i] = e.normalize(f)
	}
	return strings.Join(fields, " ")
}

// Categorize runs every rule over the lowercased text and aggregates
// entities, tags and reminder candidates. It never fails; an utterance
// with no matches comes back as category "general" with confidence 0.
func (e *Engine) Categorize(text string) Result {
	res := Result{Category: CategoryGeneral}
	lower := strings.ToLower(text)

	tagSet := make(map[string]bool)
	for _, rule := range e.rules {
		matched := false
		for _, re := range rule.compiled {
			for _, m := range re.FindAllStringSubmatch(lower, -1) {
				name := entityName(rule, m)
				if name == "" {
					continue
				}
				matched = true
				res.Entities = append(res.Entities, Entity{
					Name:       e.baseForm(name),
					Type:       rule.EntityType,
					Rule:       rule.Name,
					Confidence: patternConfidence,
				})
				if rule.Name == "reminders" {
					// Reminder text keeps the surface form; only the
					// entity name collapses to the base form.
					res.Reminders = append(res.Reminders, ReminderCandidate{
						Text:         name,
						OriginalText: text,
					})
				}
			}
		}
		if matched {
			for _, t := range rule.Tags {
				tagSet[t] = true
			}
			if res.Category == CategoryGeneral {
				res.Category = rule.Name
				res.Confidence = patternConfidence
			}
		}
	}

	for t := range tagSet {
		res.Tags = append(res.Tags, t)
	}
	sort.Strings(res.Tags)

	res.TemporalInfo = findTemporalInfo(lower)
	return res
}

func entityName(rule Rule, m []string) string {
	if !rule.ExtractName {
		return strings.TrimSpace(m[0])
	}
	if len(m) < 2 {
		return ""
	}
	name := strings.TrimSpace(m[1])
	if len(m) > 2 && strings.TrimSpace(m[2]) != "" {
		name = name + " " + strings.TrimSpace(m[2])
	}
	return name
}

// Coarse temporal classes, checked in order. The first hit wins.
var temporalPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"today", regexp.MustCompile(`сегодня|сейчас`)},
	{"tomorrow", regexp.MustCompile(`завтра`)},
	{"next_week", regexp.MustCompile(`через неделю|на следующей неделе`)},
	{"next_month", regexp.MustCompile(`через месяц|в следующем месяце`)},
	{"specific_date", regexp.MustCompile(`\d{1,2}\s+(?:января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)`)},
	{"specific_time", regexp.MustCompile(`\d{1,2}:\d{2}`)},
	{"days_from_now", regexp.MustCompile(`через\s+\d+\s+(?:дней|дня|день)`)},
	{"km_reminder", regexp.MustCompile(`через\s+\d+\s*(?:км|тысяч|тыс)`)},
}

func findTemporalInfo(lower string) *TemporalInfo {
	for _, p := range temporalPatterns {
		if m := p.re.FindString(lower); m != "" {
			return &TemporalInfo{Kind: p.kind, Match: m}
		}
	}
	return nil
}
