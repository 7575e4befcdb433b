package nlp

import (
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const DefaultDimensions = 512

// HashingVectorizer embeds text with the hashing trick over whole words and
// character trigrams, so related word forms ("créer", "création") stay close.
type HashingVectorizer struct {
	dims          int
	trigramWeight float32
}

func NewHashingVectorizer(dims int) *HashingVectorizer {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashingVectorizer{dims: dims, trigramWeight: 0.5}
}

func (v *HashingVectorizer) Vectorize(text string) []float32 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	vec := make([]float32, v.dims)
	for _, w := range words {
		vec[v.bucket("w:"+w)] += 1
		runes := []rune("^" + w + "$")
		for i := 0; i+3 <= len(runes); i++ {
			vec[v.bucket("t:"+string(runes[i:i+3]))] += v.trigramWeight
		}
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (v *HashingVectorizer) bucket(feature string) int {
	return int(xxhash.Sum64String(feature) % uint64(v.dims))
}
