package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b     string
		expected float64
	}{
		{"", "", 0},
		{"abc", "", 0},
		{"", "abc", 0},
		{"abc", "abc", 1},
		{"abcd", "abce", 0.75},
		{"création", "creation", 14.0 / 16.0},
		{"abc", "xyz", 0},
		{"bcb", "cab", 2.0 / 3.0}, // non-contiguous LCS "cb"
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScorer_KeywordScore(t *testing.T) {
	n := newTestNormalizer(t)
	s := NewScorer(n)
	in := n.Normalize("je veux la création de mon entreprise")

	assert.Zero(t, s.KeywordScore(in, nil))
	assert.Zero(t, s.KeywordScore(in, []string{}))
	assert.Equal(t, 1.0, s.KeywordScore(in, []string{"création"}))
	assert.Zero(t, s.KeywordScore(n.Normalize(""), []string{"création"}))

	score := s.KeywordScore(in, []string{"création", "xyzzy", "plugh", "foobar"})
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestScorer_KeywordScoreMisspelledPlural(t *testing.T) {
	n := newTestNormalizer(t)
	s := NewScorer(n)

	for _, input := range []string{"societe", "sociétés", "societes"} {
		assert.Equal(t, 1.0, s.KeywordScore(n.Normalize(input), []string{"société"}), input)
	}
}

func TestScorer_KeywordScoreEmptyKeyword(t *testing.T) {
	n := newTestNormalizer(t)
	s := NewScorer(n)
	in := n.Normalize("création")

	withStopword := s.KeywordScore(in, []string{"création", "le"})
	alone := s.KeywordScore(in, []string{"création"})
	assert.LessOrEqual(t, withStopword, alone)
}

func TestScorer_KeywordMonotonic(t *testing.T) {
	n := newTestNormalizer(t)
	s := NewScorer(n)
	in := n.Normalize("combien coûte la publication d'une annonce légale")

	keywords := []string{"xyzzy", "tarif", "plugh", "quux"}
	before := s.KeywordScore(in, keywords)

	for _, kw := range []string{"annonce", "publication", "légal"} {
		keywords = append(keywords, kw)
		after := s.KeywordScore(in, keywords)
		assert.GreaterOrEqual(t, after, before, kw)
		before = after
	}
}

func TestScorer_ExampleScore(t *testing.T) {
	n := newTestNormalizer(t)
	s := NewScorer(n)
	in := n.Normalize("je veux la création de mon entreprise")

	assert.Zero(t, s.ExampleScore(in, nil))
	assert.Zero(t, s.ExampleScore(n.Normalize(""), []string{"création d'entreprise"}))

	exact := s.ExampleScore(in, []string{"tarif des annonces", "création d'entreprise"})
	assert.InDelta(t, 1.0, exact, 1e-6)

	related := s.ExampleScore(in, []string{"création d'une société"})
	unrelated := s.ExampleScore(in, []string{"tarif délai"})
	require.Greater(t, related, unrelated)
	assert.LessOrEqual(t, related, 1.0)
}

func TestGate(t *testing.T) {
	g, err := NewGate(0.5)
	require.NoError(t, err)

	assert.True(t, g.Accept(0.5))
	assert.True(t, g.Accept(0.9))
	assert.False(t, g.Accept(0.49))

	_, err = NewGate(-0.1)
	assert.Error(t, err)
	_, err = NewGate(1.1)
	assert.Error(t, err)
}
