package search

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// EntityTypes is the fixed bucket order for query parsing. "general"
// collects the leftover words that no typed pattern claimed.
var EntityTypes = []string{"person", "place", "object", "event", "task", "reminder"}

const GeneralBucket = "general"

// Lexicon holds the query-parsing tables. Loaded from YAML so the word
// lists can grow without a rebuild.
type Lexicon struct {
	QueryPatterns map[string][]string `yaml:"query_patterns"`
	Normalization map[string]string   `yaml:"normalization"`
	StopWords     []string            `yaml:"stop_words"`

	compiled map[string][]*regexp.Regexp
	stopSet  map[string]bool
}

// LoadLexicon reads a lexicon from a YAML file, or the embedded defaults
// when path is empty.
func LoadLexicon(path string) (*Lexicon, error) {
	data := defaultLexiconYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read lexicon file: %w", err)
		}
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon file: %w", err)
	}

	lex.compiled = make(map[string][]*regexp.Regexp, len(lex.QueryPatterns))
	for typ, patterns := range lex.QueryPatterns {
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("lexicon type %q: pattern %q: %w", typ, p, err)
			}
			lex.compiled[typ] = append(lex.compiled[typ], re)
		}
	}
	lex.stopSet = make(map[string]bool, len(lex.StopWords))
	for _, w := range lex.StopWords {
		lex.stopSet[w] = true
	}
	return &lex, nil
}

// Normalize maps a single lowercased word to its base form when the
// normalization table knows it. The extractor shares this table so stored
// entity names and query keywords collapse to the same form.
func (l *Lexicon) Normalize(w string) string {
	if base, ok := l.Normalization[w]; ok {
		return base
	}
	return w
}

func (l *Lexicon) isStopWord(w string) bool {
	return l.stopSet[w]
}
