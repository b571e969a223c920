package extract

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rule describes one categorization template. Patterns use only ASCII
// metacharacters plus explicit Cyrillic classes, since RE2 treats \b and
// \w as ASCII.
type Rule struct {
	Name        string   `yaml:"name"`
	EntityType  string   `yaml:"entity_type"`
	Tags        []string `yaml:"tags"`
	ExtractName bool     `yaml:"extract_name"`
	Patterns    []string `yaml:"patterns"`

	compiled []*regexp.Regexp
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a rule set from a YAML file, or the embedded defaults
// when path is empty.
func LoadRules(path string) ([]Rule, error) {
	data := defaultRulesYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("rules file defines no rules")
	}

	for i := range rf.Rules {
		r := &rf.Rules[i]
		if r.Name == "" || r.EntityType == "" {
			return nil, fmt.Errorf("rule %d: name and entity_type are required", i)
		}
		r.compiled = make([]*regexp.Regexp, 0, len(r.Patterns))
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("rule %q: pattern %q: %w", r.Name, p, err)
			}
			r.compiled = append(r.compiled, re)
		}
	}
	return rf.Rules, nil
}
