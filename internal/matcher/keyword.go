package matcher

import (
	"math"
	"strings"
)

const (
	exactWeight    = 1.0
	partialWeight  = 0.7
	similarWeight  = 0.5
	semanticWeight = 0.8

	stringSimilarThreshold = 0.8
	semanticThreshold      = 0.7
)

// KeywordScore scores normalized input against raw keywords.
func (s *Scorer) KeywordScore(in NormalizedText, keywords []string) float64 {
	return s.keywordScore(in, s.normalizer.NormalizeAll(keywords))
}

// keywordScore counts exact, partial, string-similar and semantic keyword hits
// and averages their weighted sum over the keyword count, capped at 1.
// Keywords normalizing to nothing only count in the denominator.
func (s *Scorer) keywordScore(in NormalizedText, keywords []NormalizedText) float64 {
	if len(keywords) == 0 {
		return 0
	}

	var exact, partial, similar, semantic int
	for _, kw := range keywords {
		form := kw.Text
		if form != "" {
			if in.Has(form) {
				exact++
			}
			if anyToken(in.Distinct, func(tok string) bool { return strings.Contains(tok, form) }) {
				partial++
			}
			if anyToken(in.Distinct, func(tok string) bool { return Ratio(form, tok) > stringSimilarThreshold }) {
				similar++
			}
		}
		if s.annotator.Similarity(kw.Doc, in.Doc) > semanticThreshold {
			semantic++
		}
	}

	total := float64(exact)*exactWeight +
		float64(partial)*partialWeight +
		float64(similar)*similarWeight +
		float64(semantic)*semanticWeight
	return math.Min(total/float64(len(keywords)), 1)
}

func anyToken(tokens []string, pred func(string) bool) bool {
	for _, tok := range tokens {
		if pred(tok) {
			return true
		}
	}
	return false
}
