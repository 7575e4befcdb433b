// Package nlp provides the linguistic annotation used by the matcher:
// tokenization, lemmatization, stopword/punctuation flags and dense vectors.
package nlp

import "math"

type Token struct {
	Text    string
	Lemma   string
	IsStop  bool
	IsPunct bool
}

// Doc is an annotated string. Vector is empty when no embedding is available.
type Doc struct {
	Text   string
	Tokens []Token
	Vector []float32
}

func (d Doc) HasVector() bool {
	return len(d.Vector) > 0
}

// Annotator is the linguistic backend consumed by the matcher.
type Annotator interface {
	Annotate(text string) Doc
	Similarity(a, b Doc) float64
}

// Vectorizer turns a text into a dense vector. A nil result means "no vector".
type Vectorizer interface {
	Vectorize(text string) []float32
}

// Cosine returns the cosine similarity of a and b, or 0 when either is empty,
// zero, or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
