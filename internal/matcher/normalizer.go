package matcher

import (
	"strings"

	"faqbot/internal/nlp"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fuzzyCorrection is the minimum ratio for replacing a token with a known spelling.
const fuzzyCorrection = 0.85

// maxSettleRounds bounds the correct/lemmatize loop run on each lemma.
const maxSettleRounds = 4

// NormalizedText is the canonical lemma form of a string. It is never persisted.
type NormalizedText struct {
	Text     string
	Lemmas   []string
	Distinct []string
	Doc      nlp.Doc

	set map[string]struct{}
}

func (t NormalizedText) Empty() bool {
	return len(t.Lemmas) == 0
}

func (t NormalizedText) Has(lemma string) bool {
	_, ok := t.set[lemma]
	return ok
}

// Normalizer strips filler phrasing, fixes known misspellings and reduces
// text to lemmas. It is safe for concurrent use if the annotator is.
type Normalizer struct {
	annotator nlp.Annotator
	lex       *nlp.Lexicon
	canonical []string
}

func NewNormalizer(annotator nlp.Annotator, lex *nlp.Lexicon) *Normalizer {
	return &Normalizer{
		annotator: annotator,
		lex:       lex,
		canonical: lex.CanonicalSpellings(),
	}
}

func (n *Normalizer) Annotator() nlp.Annotator {
	return n.annotator
}

func (n *Normalizer) Normalize(raw string) NormalizedText {
	text := strings.TrimSpace(cases.Lower(n.lex.Tag()).String(norm.NFC.String(raw)))
	text = n.stripFillers(text)

	words := strings.Fields(text)
	for i, w := range words {
		words[i] = n.correct(w)
	}

	doc := n.annotator.Annotate(strings.Join(words, " "))
	out := NormalizedText{set: make(map[string]struct{})}
	for _, tok := range doc.Tokens {
		if tok.IsStop || tok.IsPunct {
			continue
		}
		lemma, keep := n.settle(strings.ToLower(tok.Lemma))
		if !keep || lemma == "" {
			continue
		}
		out.Lemmas = append(out.Lemmas, lemma)
		if _, seen := out.set[lemma]; !seen {
			out.set[lemma] = struct{}{}
			out.Distinct = append(out.Distinct, lemma)
		}
	}
	out.Text = strings.Join(out.Lemmas, " ")
	out.Doc = n.annotator.Annotate(out.Text)
	return out
}

func (n *Normalizer) NormalizeAll(texts []string) []NormalizedText {
	if len(texts) == 0 {
		return nil
	}
	out := make([]NormalizedText, len(texts))
	for i, t := range texts {
		out[i] = n.Normalize(t)
	}
	return out
}

// stripFillers removes leading filler phrasings. Each pattern is tried once, in order.
func (n *Normalizer) stripFillers(text string) string {
	for _, re := range n.lex.Fillers {
		loc := re.FindStringIndex(text)
		if loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// settle corrects a lemma and lemmatizes the correction until neither step
// changes it, so misspelled plurals ("societes") reach the dictionary and the
// result is a fixed point of Normalize. keep is false when the corrected form
// is a stopword.
func (n *Normalizer) settle(lemma string) (string, bool) {
	for i := 0; i < maxSettleRounds; i++ {
		fixed := n.correct(lemma)
		if fixed == lemma {
			return lemma, true
		}
		doc := n.annotator.Annotate(fixed)
		if len(doc.Tokens) != 1 {
			return lemma, true
		}
		tok := doc.Tokens[0]
		if tok.IsStop || tok.IsPunct {
			return "", false
		}
		next := strings.ToLower(tok.Lemma)
		if next == lemma {
			return lemma, true
		}
		lemma = next
	}
	return lemma, true
}

func (n *Normalizer) correct(word string) string {
	if right, ok := n.lex.Misspellings[word]; ok {
		return right
	}

	best, bestRatio := word, fuzzyCorrection
	for _, candidate := range n.canonical {
		if candidate == word {
			return word
		}
		if r := Ratio(word, candidate); r > bestRatio {
			best, bestRatio = candidate, r
		}
	}
	return best
}
