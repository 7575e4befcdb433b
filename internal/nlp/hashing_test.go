package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingVectorizer(t *testing.T) {
	v := NewHashingVectorizer(0)

	assert.Nil(t, v.Vectorize(""))
	assert.Nil(t, v.Vectorize("   "))

	a := v.Vectorize("création entreprise")
	require.Len(t, a, DefaultDimensions)
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-6)
	assert.InDelta(t, 1.0, Cosine(a, v.Vectorize("création entreprise")), 1e-6)
	assert.InDelta(t, 1.0, Cosine(a, v.Vectorize("entreprise création")), 1e-6)
}

func TestCosine(t *testing.T) {
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 1.0, Cosine([]float32{2, 0}, []float32{1, 0}), 1e-9)
}

type countingVectorizer struct {
	calls int
}

func (c *countingVectorizer) Vectorize(text string) []float32 {
	c.calls++
	if text == "" {
		return nil
	}
	return []float32{1}
}

func TestCachedVectorizer(t *testing.T) {
	next := &countingVectorizer{}
	c, err := NewCachedVectorizer(next, 2)
	require.NoError(t, err)

	c.Vectorize("a")
	c.Vectorize("a")
	assert.Equal(t, 1, next.calls)

	// nil vectors are not cached
	c.Vectorize("")
	c.Vectorize("")
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, 1, c.Len())
}
