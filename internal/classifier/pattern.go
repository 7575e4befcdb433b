// Package classifier holds rule-based intent classifiers that plug into the matcher.
package classifier

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"faqbot/internal/matcher"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed patterns_fr.yaml
var defaultPatterns []byte

const DefaultConfidence = 0.9

type rulesFile struct {
	Confidence float64 `yaml:"confidence"`
	Rules      []struct {
		Label    string     `yaml:"label"`
		Patterns [][]string `yaml:"patterns"`
	} `yaml:"rules"`
}

type rule struct {
	label    string
	patterns [][]map[string]struct{}
}

// PatternClassifier labels an utterance when a token sequence of one of its
// rules appears in it. Every hit carries the same fixed confidence.
type PatternClassifier struct {
	rules      []rule
	confidence float64
}

func DefaultPatternClassifier() (*PatternClassifier, error) {
	return ParsePatterns(defaultPatterns)
}

func LoadPatterns(path string) (*PatternClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns: %w", err)
	}
	return ParsePatterns(data)
}

func ParsePatterns(data []byte) (*PatternClassifier, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse patterns: %w", err)
	}
	if f.Confidence == 0 {
		f.Confidence = DefaultConfidence
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return nil, fmt.Errorf("pattern confidence %.2f out of range [0,1]", f.Confidence)
	}

	pc := &PatternClassifier{confidence: f.Confidence}
	for _, r := range f.Rules {
		if r.Label == "" {
			return nil, fmt.Errorf("pattern rule without label")
		}
		compiled := rule{label: r.Label}
		for _, seq := range r.Patterns {
			if len(seq) == 0 {
				continue
			}
			steps := make([]map[string]struct{}, 0, len(seq))
			for _, alt := range seq {
				step := make(map[string]struct{})
				for _, w := range strings.Split(alt, "|") {
					if w = strings.TrimSpace(w); w != "" {
						step[lower(w)] = struct{}{}
					}
				}
				steps = append(steps, step)
			}
			compiled.patterns = append(compiled.patterns, steps)
		}
		pc.rules = append(pc.rules, compiled)
	}
	return pc, nil
}

// Labels lists rule labels in declaration order.
func (c *PatternClassifier) Labels() []string {
	out := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.label)
	}
	return out
}

// Predict returns the first rule with a matching pattern, or a zero prediction.
func (c *PatternClassifier) Predict(_ context.Context, text string) (matcher.Prediction, error) {
	tokens := tokenize(text)
	for _, r := range c.rules {
		for _, p := range r.patterns {
			if containsSeq(tokens, p) {
				return matcher.Prediction{Label: r.label, Confidence: c.confidence}, nil
			}
		}
	}
	return matcher.Prediction{}, nil
}

func containsSeq(tokens []string, steps []map[string]struct{}) bool {
	for i := 0; i+len(steps) <= len(tokens); i++ {
		ok := true
		for j, step := range steps {
			if _, hit := step[tokens[i+j]]; !hit {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// tokenize lowercases and splits on anything but letters and digits.
// Single-letter leftovers of elisions ("l'", "d'") are dropped.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(lower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

func lower(s string) string {
	return cases.Lower(language.French).String(norm.NFC.String(s))
}
