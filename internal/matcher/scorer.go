package matcher

import "faqbot/internal/nlp"

// Scorer holds the lexical and example scorers. Both work on normalized text.
type Scorer struct {
	normalizer *Normalizer
	annotator  nlp.Annotator
}

func NewScorer(normalizer *Normalizer) *Scorer {
	return &Scorer{
		normalizer: normalizer,
		annotator:  normalizer.Annotator(),
	}
}
