package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"faqbot/internal/models"
	"faqbot/internal/nlp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	lex, err := nlp.DefaultLexicon("fr")
	require.NoError(t, err)
	return NewNormalizer(nlp.NewLexiconAnnotator(lex, nil), lex)
}

func entry(id string, keywords []string, questions []string, variations []string) *models.Entry {
	return &models.Entry{
		ID:        id,
		Name:      id,
		Keywords:  keywords,
		Examples:  models.Examples{Questions: questions, Variations: variations},
		Responses: []models.Response{{Content: "réponse " + id}},
	}
}

func testKnowledgeBase() *models.KnowledgeBase {
	kb := models.NewKnowledgeBase()
	kb.Categories.Put(entry("creation_entreprise",
		[]string{"création"},
		[]string{"création d'entreprise", "comment créer une société"},
		[]string{"ouvrir une boîte"},
	))
	kb.Categories.Put(entry("dissolution",
		[]string{"dissolution", "liquidation"},
		[]string{"dissoudre ma société", "fermer mon entreprise"},
		nil,
	))
	kb.Faq.Put(entry("tarifs",
		[]string{"tarif", "prix"},
		[]string{"quel est le tarif d'une annonce légale"},
		[]string{"combien coûte une annonce"},
	))
	return kb
}

func newTestMatcher(t *testing.T, kb *models.KnowledgeBase, opts ...Option) *Matcher {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	m, err := New(kb, newTestNormalizer(t), opts...)
	require.NoError(t, err)
	return m
}

func TestFindBestMatch_CategoryScenario(t *testing.T) {
	m := newTestMatcher(t, testKnowledgeBase())

	res := m.FindBestMatch(context.Background(), "je veux la création de mon entreprise")

	require.True(t, res.Matched())
	assert.Equal(t, models.KindCategory, res.Kind)
	assert.Equal(t, "creation_entreprise", res.EntryID)
	assert.Equal(t, PathHeuristic, res.Path)
	assert.GreaterOrEqual(t, res.Score, 0.5)
	assert.LessOrEqual(t, res.Score, 1.0)
	assert.Equal(t, "creation_entreprise", res.Entry.ID)
}

func TestFindBestMatch_FaqCarriesPrefix(t *testing.T) {
	m := newTestMatcher(t, testKnowledgeBase())

	res := m.FindBestMatch(context.Background(), "Quel est le tarif d'une annonce légale ?")

	require.True(t, res.Matched())
	assert.Equal(t, models.KindFaq, res.Kind)
	assert.Equal(t, "faq_tarifs", res.EntryID)
	assert.Equal(t, "tarifs", res.Entry.ID)
}

func TestFindBestMatch_EmptyKnowledgeBase(t *testing.T) {
	m := newTestMatcher(t, models.NewKnowledgeBase())

	for _, input := range []string{"je veux créer une entreprise", "", "tarif", "???"} {
		res := m.FindBestMatch(context.Background(), input)
		assert.Equal(t, models.KindNone, res.Kind, input)
		assert.Zero(t, res.Score, input)
		assert.Nil(t, res.Entry, input)
	}
}

func TestFindBestMatch_ScoreRange(t *testing.T) {
	m := newTestMatcher(t, testKnowledgeBase())

	inputs := []string{
		"",
		"   ",
		"création création création entreprise société",
		"dissolution liquidation fermer dissoudre",
		"le la les de du",
		"xyzzy plugh",
		"Quel est le tarif d'une annonce légale ?",
	}
	for _, input := range inputs {
		res := m.FindBestMatch(context.Background(), input)
		assert.GreaterOrEqual(t, res.Score, 0.0, input)
		assert.LessOrEqual(t, res.Score, 1.0, input)
		if res.Kind == models.KindNone {
			assert.Zero(t, res.Score, input)
		}
	}
}

func TestFindBestMatch_BelowThreshold(t *testing.T) {
	m := newTestMatcher(t, testKnowledgeBase())

	res := m.FindBestMatch(context.Background(), "xyzzy plugh")
	assert.Equal(t, NoMatch(), res)
}

func TestFindBestMatch_ClassifierPreempts(t *testing.T) {
	kb := testKnowledgeBase()
	input := "je veux la création de mon entreprise"

	heuristic := newTestMatcher(t, kb).FindBestMatch(context.Background(), input)
	require.Equal(t, "creation_entreprise", heuristic.EntryID)

	tests := []struct {
		name       string
		label      string
		confidence float64
		expectedID string
		kind       models.EntryKind
	}{
		{"category label", "dissolution", 0.9, "dissolution", models.KindCategory},
		{"faq label", "faq_tarifs", 0.75, "faq_tarifs", models.KindFaq},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifierFunc(func(ctx context.Context, text string) (Prediction, error) {
				assert.Equal(t, input, text)
				return Prediction{Label: tt.label, Confidence: tt.confidence}, nil
			})
			m := newTestMatcher(t, kb, WithClassifier(SomeClassifier(c)))

			res := m.FindBestMatch(context.Background(), input)
			assert.Equal(t, tt.expectedID, res.EntryID)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.confidence, res.Score)
			assert.Equal(t, PathClassifier, res.Path)
		})
	}
}

func TestFindBestMatch_ClassifierFallsThrough(t *testing.T) {
	input := "je veux la création de mon entreprise"

	tests := []struct {
		name string
		pred Prediction
		err  error
	}{
		{"error", Prediction{}, errors.New("model unavailable")},
		{"confidence at threshold", Prediction{Label: "dissolution", Confidence: 0.5}, nil},
		{"low confidence", Prediction{Label: "dissolution", Confidence: 0.2}, nil},
		{"unknown label", Prediction{Label: "inconnu", Confidence: 0.99}, nil},
		{"unknown faq label", Prediction{Label: "faq_inconnu", Confidence: 0.99}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifierFunc(func(context.Context, string) (Prediction, error) {
				return tt.pred, tt.err
			})
			m := newTestMatcher(t, testKnowledgeBase(), WithClassifier(SomeClassifier(c)))

			res := m.FindBestMatch(context.Background(), input)
			assert.Equal(t, "creation_entreprise", res.EntryID)
			assert.Equal(t, PathHeuristic, res.Path)
		})
	}
}

func TestFindBestMatch_AbsentClassifier(t *testing.T) {
	m := newTestMatcher(t, testKnowledgeBase(), WithClassifier(SomeClassifier(nil)))

	res := m.FindBestMatch(context.Background(), "je veux la création de mon entreprise")
	assert.Equal(t, PathHeuristic, res.Path)
}

func TestFindBestMatch_TiesKeepFirst(t *testing.T) {
	kb := models.NewKnowledgeBase()
	kb.Categories.Put(entry("premier", []string{"statuts"}, []string{"modifier les statuts"}, nil))
	kb.Categories.Put(entry("second", []string{"statuts"}, []string{"modifier les statuts"}, nil))
	kb.Faq.Put(entry("statuts", []string{"statuts"}, []string{"modifier les statuts"}, nil))

	m := newTestMatcher(t, kb)
	res := m.FindBestMatch(context.Background(), "modifier les statuts")
	assert.Equal(t, "premier", res.EntryID)
}

func TestFindBestMatch_WorkersAgree(t *testing.T) {
	kb := testKnowledgeBase()
	sequential := newTestMatcher(t, kb)
	parallel := newTestMatcher(t, kb, WithWorkers(4))

	for _, input := range []string{
		"je veux la création de mon entreprise",
		"fermer mon entreprise",
		"combien coûte une annonce",
		"rien à voir",
	} {
		assert.Equal(t, sequential.FindBestMatch(context.Background(), input),
			parallel.FindBestMatch(context.Background(), input), input)
		assert.Equal(t, sequential.Explain(input), parallel.Explain(input), input)
	}
}

func TestFindBestMatch_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := newTestMatcher(t, testKnowledgeBase(), WithWorkers(3))
	inputs := []string{
		"je veux la création de mon entreprise",
		"dissolution de ma société",
		"quel est le tarif d'une annonce légale",
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := m.FindBestMatch(context.Background(), inputs[i%len(inputs)])
			assert.True(t, res.Matched())
		}(i)
		if i == 8 {
			require.NoError(t, m.Reload(testKnowledgeBase()))
		}
	}
	wg.Wait()
}

func TestReload(t *testing.T) {
	m := newTestMatcher(t, models.NewKnowledgeBase())
	input := "je veux la création de mon entreprise"
	assert.False(t, m.FindBestMatch(context.Background(), input).Matched())

	require.NoError(t, m.Reload(testKnowledgeBase()))
	assert.Equal(t, "creation_entreprise", m.FindBestMatch(context.Background(), input).EntryID)

	assert.ErrorIs(t, m.Reload(nil), ErrNoKnowledgeBase)
	assert.Equal(t, 2, m.KnowledgeBase().Categories.Len())
}

func TestNew_Validation(t *testing.T) {
	normalizer := newTestNormalizer(t)

	_, err := New(nil, normalizer)
	assert.ErrorIs(t, err, ErrNoKnowledgeBase)

	_, err = New(testKnowledgeBase(), normalizer, WithWeights(Weights{Keyword: 0.5, Question: 0.5, Variation: 0.5}))
	assert.Error(t, err)

	_, err = New(testKnowledgeBase(), normalizer, WithWeights(Weights{Keyword: -0.2, Question: 1, Variation: 0.2}))
	assert.Error(t, err)

	_, err = New(testKnowledgeBase(), normalizer, WithGate(Gate{Threshold: 1.5}))
	assert.Error(t, err)

	m, err := New(testKnowledgeBase(), normalizer, WithWeights(Weights{Keyword: 0.5, Question: 0.3, Variation: 0.2}), WithWorkers(0))
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, m.Threshold())
}

func TestGetEntry(t *testing.T) {
	m := newTestMatcher(t, testKnowledgeBase())

	tests := []struct {
		kind  models.EntryKind
		id    string
		found bool
	}{
		{models.KindCategory, "dissolution", true},
		{models.KindFaq, "tarifs", true},
		{models.KindFaq, "faq_tarifs", true},
		{models.KindCategory, "tarifs", false},
		{models.KindNone, "dissolution", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.kind, tt.id), func(t *testing.T) {
			e, ok := m.GetEntry(tt.kind, tt.id)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.NotNil(t, e)
			}
		})
	}
}

func TestExplain(t *testing.T) {
	m := newTestMatcher(t, testKnowledgeBase())

	scores := m.Explain("je veux la création de mon entreprise")
	require.Len(t, scores, 3)

	assert.Equal(t, "creation_entreprise", scores[0].EntryID)
	assert.Equal(t, "dissolution", scores[1].EntryID)
	assert.Equal(t, "faq_tarifs", scores[2].EntryID)
	assert.Equal(t, 1.0, scores[0].Keyword)
	assert.InDelta(t, 1.0, scores[0].Question, 1e-6)
	for _, s := range scores {
		expected := clamp01(s.Keyword*0.3 + s.Question*0.5 + s.Variation*0.2)
		assert.InDelta(t, expected, s.Final, 1e-9)
	}
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights.Validate())
	assert.NoError(t, Weights{Keyword: 1}.Validate())
	assert.Error(t, Weights{}.Validate())
}
