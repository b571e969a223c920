// Package search parses natural-language queries and ranks stored
// entities by relevance.
package search

import (
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`[а-яёa-z0-9]+`)

// ParsedQuery maps bucket name (EntityTypes plus "general") to extracted
// keywords, normalized and deduplicated.
type ParsedQuery map[string][]string

// AllKeywords flattens every bucket in fixed order, deduplicated.
func (p ParsedQuery) AllKeywords() []string {
	var out []string
	seen := make(map[string]bool)
	for _, typ := range append(append([]string{}, EntityTypes...), GeneralBucket) {
		for _, kw := range p[typ] {
			if !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}

// ParseQuery buckets the query's keywords by probable entity type using
// the lexicon's pattern tables, then collects the remaining words into the
// general bucket. Words shorter than three characters and stop words are
// dropped; surface forms collapse via the normalization table.
func ParseQuery(lex *Lexicon, query string) ParsedQuery {
	lower := strings.ToLower(strings.TrimSpace(query))
	out := make(ParsedQuery, len(EntityTypes)+1)

	claimed := make(map[string]bool)
	for _, typ := range EntityTypes {
		seen := make(map[string]bool)
		for _, re := range lex.compiled[typ] {
			for _, m := range re.FindAllStringSubmatch(lower, -1) {
				w := m[1]
				if len([]rune(w)) <= 2 || lex.isStopWord(w) {
					continue
				}
				w = lex.Normalize(w)
				if !seen[w] {
					seen[w] = true
					out[typ] = append(out[typ], w)
				}
				claimed[w] = true
			}
		}
	}

	seen := make(map[string]bool)
	for _, w := range wordRe.FindAllString(lower, -1) {
		if len([]rune(w)) <= 2 || lex.isStopWord(w) {
			continue
		}
		w = lex.Normalize(w)
		if claimed[w] || seen[w] {
			continue
		}
		seen[w] = true
		out[GeneralBucket] = append(out[GeneralBucket], w)
	}

	return out
}

// ExpandCompound adds the component words of multi-word keywords so that
// partial mentions of compound names still resolve. Components pass the
// same length and stop-word filters as regular keywords.
func ExpandCompound(lex *Lexicon, keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool)
	add := func(w string) {
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	for _, kw := range keywords {
		add(kw)
		if !strings.Contains(kw, " ") {
			continue
		}
		for _, part := range strings.Fields(kw) {
			if len([]rune(part)) <= 2 || lex.isStopWord(part) {
				continue
			}
			add(lex.Normalize(part))
		}
	}
	return out
}
