package matcher

const (
	exampleStringWeight   = 0.4
	exampleSemanticWeight = 0.6
)

// ExampleScore returns the best blended similarity between the input and any example.
func (s *Scorer) ExampleScore(in NormalizedText, examples []string) float64 {
	return s.exampleScore(in, s.normalizer.NormalizeAll(examples))
}

func (s *Scorer) exampleScore(in NormalizedText, examples []NormalizedText) float64 {
	best := 0.0
	for _, ex := range examples {
		score := clamp01(Ratio(in.Text, ex.Text)*exampleStringWeight +
			s.annotator.Similarity(in.Doc, ex.Doc)*exampleSemanticWeight)
		if score > best {
			best = score
		}
	}
	return best
}
