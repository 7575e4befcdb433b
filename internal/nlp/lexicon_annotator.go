package nlp

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/surgebase/porter2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// LexiconAnnotator is a rule-based annotator driven by a Lexicon.
// Lemmas come from the lexicon table, then light plural rules (fr) or
// the porter2 stemmer (en).
type LexiconAnnotator struct {
	lex        *Lexicon
	vectorizer Vectorizer
	tag        language.Tag
}

// NewLexiconAnnotator builds an annotator. A nil vectorizer selects the hashing vectorizer.
func NewLexiconAnnotator(lex *Lexicon, vectorizer Vectorizer) *LexiconAnnotator {
	if vectorizer == nil {
		vectorizer = NewHashingVectorizer(DefaultDimensions)
	}
	return &LexiconAnnotator{
		lex:        lex,
		vectorizer: vectorizer,
		tag:        lex.Tag(),
	}
}

func (a *LexiconAnnotator) Lexicon() *Lexicon {
	return a.lex
}

// Lower applies NFC normalization and language-aware lowercasing.
// A Caser keeps state, so one is built per call.
func (a *LexiconAnnotator) Lower(s string) string {
	return cases.Lower(a.tag).String(norm.NFC.String(s))
}

func (a *LexiconAnnotator) Annotate(text string) Doc {
	doc := Doc{Text: text}
	content := make([]string, 0, 8)

	for _, raw := range a.tokenize(a.Lower(text)) {
		tok := Token{Text: raw}
		if isPunct(raw) {
			tok.IsPunct = true
			tok.Lemma = raw
			doc.Tokens = append(doc.Tokens, tok)
			continue
		}
		tok.Lemma = a.lemmatize(raw)
		tok.IsStop = a.lex.IsStopword(raw) || a.lex.IsStopword(tok.Lemma)
		if !tok.IsStop {
			content = append(content, tok.Lemma)
		}
		doc.Tokens = append(doc.Tokens, tok)
	}

	if len(content) > 0 {
		doc.Vector = a.vectorizer.Vectorize(strings.Join(content, " "))
	}
	return doc
}

func (a *LexiconAnnotator) Similarity(x, y Doc) float64 {
	if !x.HasVector() || !y.HasVector() {
		return 0
	}
	return Cosine(x.Vector, y.Vector)
}

// tokenize splits on whitespace and punctuation. Apostrophes produce French
// elisions ("l'") or English clitics ("'s") depending on the lexicon language.
func (a *LexiconAnnotator) tokenize(s string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case r == '\'' || r == '’':
			if a.lex.Language == "en" {
				flush()
				cur.WriteRune('\'')
				continue
			}
			if cur.Len() > 0 {
				cur.WriteRune('\'')
				flush()
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			out = append(out, string(r))
		}
	}
	flush()
	return out
}

func (a *LexiconAnnotator) lemmatize(w string) string {
	if _, ok := a.lex.canonical[w]; ok {
		return w
	}
	if lemma, ok := a.lex.Lemmas[w]; ok {
		return lemma
	}
	if a.lex.Language == "en" {
		if strings.HasPrefix(w, "'") {
			return w
		}
		return porter2.Stem(w)
	}

	stripped := singularFR(w)
	if lemma, ok := a.lex.Lemmas[stripped]; ok {
		return lemma
	}
	return stripped
}

// singularFR applies the regular French plural rules. The result never ends
// in a plural marker, so applying it twice is a no-op.
func singularFR(w string) string {
	if utf8.RuneCountInString(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "eaux"):
		return strings.TrimSuffix(w, "x")
	case strings.HasSuffix(w, "aux"):
		return strings.TrimSuffix(w, "aux") + "al"
	case strings.HasSuffix(w, "eux"):
		return strings.TrimSuffix(w, "x")
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	}
	return w
}

func isPunct(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			return false
		}
	}
	return true
}
