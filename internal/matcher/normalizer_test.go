package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"filler", "je veux la création de mon entreprise", "création entreprise"},
		{"question filler", "Est-ce que je peux créer une entreprise ?", "pouvoir créer entreprise"},
		{"exact misspelling", "creation entrepise", "création entreprise"},
		{"casing", "CRÉATION D'ENTREPRISE", "création entreprise"},
		{"only stopwords", "le la les de", ""},
		{"empty", "", ""},
		{"blank", "   \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := n.Normalize(tt.input)
			assert.Equal(t, tt.expected, out.Text)
			assert.Equal(t, tt.expected == "", out.Empty())
		})
	}
}

func TestNormalizer_FuzzyCorrection(t *testing.T) {
	n := newTestNormalizer(t)

	assert.Equal(t, "immatriculation", n.correct("immatriculatoin"))
	assert.Equal(t, "entreprise", n.correct("entreprise"))
	assert.Equal(t, "bonjour", n.correct("bonjour"))
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := newTestNormalizer(t)

	inputs := []string{
		"je veux la création de mon entreprise",
		"Quels sont les tarifs des annonces légales ?",
		"comment modifier les statuts de ma société",
		"Pouvez-vous me dire le délai de publication",
		"bonjour",
		"societes",
		"creations",
		"legales",
		"tarrifs",
		"création de societes commerciales",
		"",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			once := n.Normalize(input)
			twice := n.Normalize(once.Text)
			assert.Equal(t, once.Text, twice.Text)
			assert.Equal(t, once.Lemmas, twice.Lemmas)
		})
	}
}

func TestNormalizer_Distinct(t *testing.T) {
	n := newTestNormalizer(t)

	out := n.Normalize("création création entreprise")
	assert.Equal(t, []string{"création", "création", "entreprise"}, out.Lemmas)
	assert.Equal(t, []string{"création", "entreprise"}, out.Distinct)
	assert.True(t, out.Has("entreprise"))
	assert.False(t, out.Has("société"))
}

func TestNormalizer_MisspelledPlurals(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		input    string
		expected string
	}{
		{"societes", "société"},
		{"creations", "création"},
		{"legales", "légal"},
		{"tarrifs", "tarif"},
		{"les tarrifs des annonces legales", "tarif annonce légal"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input).Text)
		})
	}
}
