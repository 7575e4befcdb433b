package service

import (
	"testing"

	"faqbot/internal/matcher"
	"faqbot/internal/models"
	"faqbot/internal/nlp"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestMatcher(t *testing.T, kb *models.KnowledgeBase) *matcher.Matcher {
	t.Helper()
	lex, err := nlp.DefaultLexicon("fr")
	require.NoError(t, err)
	normalizer := matcher.NewNormalizer(nlp.NewLexiconAnnotator(lex, nil), lex)

	m, err := matcher.New(kb, normalizer, matcher.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return m
}

func testKnowledgeBase() *models.KnowledgeBase {
	kb := models.NewKnowledgeBase()
	kb.Categories.Put(&models.Entry{
		ID:       "creation_entreprise",
		Name:     "Création d'entreprise",
		Keywords: []string{"création"},
		Examples: models.Examples{
			Questions:  []string{"création d'entreprise", "comment créer une société"},
			Variations: []string{"ouvrir une boîte"},
		},
		Responses: []models.Response{{Content: "Publiez un avis de constitution."}},
	})
	kb.Categories.Put(&models.Entry{
		ID:       "dissolution",
		Name:     "Dissolution",
		Keywords: []string{"dissolution", "liquidation"},
		Examples: models.Examples{
			Questions: []string{"dissoudre ma société", "fermer mon entreprise"},
		},
		Responses: []models.Response{{Content: "La dissolution doit être publiée."}},
	})
	kb.Faq.Put(&models.Entry{
		ID:       "tarifs",
		Title:    "Tarifs",
		Keywords: []string{"tarif", "prix"},
		Examples: models.Examples{
			Questions:  []string{"quel est le tarif d'une annonce légale"},
			Variations: []string{"combien coûte une annonce"},
		},
		Responses: []models.Response{{Content: "Les tarifs dépendent du département."}},
	})
	kb.Contact = models.Contact{Email: "contact@example.fr", Telephone: "01 02 03 04 05"}
	return kb
}
