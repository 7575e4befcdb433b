package nlp

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon_fr.yaml
var lexiconFR []byte

//go:embed lexicon_en.yaml
var lexiconEN []byte

// Lexicon holds the language resources shared by the annotator and the normalizer.
type Lexicon struct {
	Language     string
	Stopwords    map[string]struct{}
	Lemmas       map[string]string
	Misspellings map[string]string
	Fillers      []*regexp.Regexp

	canonical map[string]struct{}
}

type lexiconFile struct {
	Language     string            `yaml:"language"`
	Stopwords    []string          `yaml:"stopwords"`
	Lemmas       map[string]string `yaml:"lemmas"`
	Misspellings map[string]string `yaml:"misspellings"`
	Fillers      []string          `yaml:"fillers"`
}

// DefaultLexicon returns the embedded lexicon for a language ("fr" or "en").
func DefaultLexicon(language string) (*Lexicon, error) {
	switch strings.ToLower(language) {
	case "", "fr":
		return ParseLexicon(lexiconFR)
	case "en":
		return ParseLexicon(lexiconEN)
	default:
		return nil, fmt.Errorf("no built-in lexicon for language %q", language)
	}
}

// LoadLexicon reads a YAML lexicon from disk.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return ParseLexicon(data)
}

func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if f.Language == "" {
		f.Language = "fr"
	}

	lex := &Lexicon{
		Language:     f.Language,
		Stopwords:    make(map[string]struct{}, len(f.Stopwords)),
		Lemmas:       make(map[string]string, len(f.Lemmas)),
		Misspellings: make(map[string]string, len(f.Misspellings)),
		canonical:    make(map[string]struct{}, len(f.Lemmas)),
	}
	for _, w := range f.Stopwords {
		lex.Stopwords[strings.ToLower(w)] = struct{}{}
	}
	for form, lemma := range f.Lemmas {
		lemma = strings.ToLower(lemma)
		lex.Lemmas[strings.ToLower(form)] = lemma
		lex.canonical[lemma] = struct{}{}
	}
	for wrong, right := range f.Misspellings {
		lex.Misspellings[strings.ToLower(wrong)] = strings.ToLower(right)
	}
	for _, pattern := range f.Fillers {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid filler pattern %q: %w", pattern, err)
		}
		lex.Fillers = append(lex.Fillers, re)
	}
	return lex, nil
}

// Tag is the language tag used for case folding.
func (l *Lexicon) Tag() language.Tag {
	if l.Language == "en" {
		return language.English
	}
	return language.French
}

// IsStopword reports whether w is in the stopword list.
func (l *Lexicon) IsStopword(w string) bool {
	_, ok := l.Stopwords[w]
	return ok
}

// CanonicalSpellings returns the distinct correction targets in a stable order.
func (l *Lexicon) CanonicalSpellings() []string {
	seen := make(map[string]struct{}, len(l.Misspellings))
	out := make([]string, 0, len(l.Misspellings))
	for _, right := range l.Misspellings {
		if _, ok := seen[right]; ok {
			continue
		}
		seen[right] = struct{}{}
		out = append(out, right)
	}
	sort.Strings(out)
	return out
}
