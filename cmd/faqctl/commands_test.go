package main

import (
	"bytes"
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"faqbot/internal/matcher"
	"faqbot/internal/models"
	"faqbot/internal/nlp"
	"faqbot/internal/repository"
	"faqbot/internal/service"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestMatcher(t *testing.T) *matcher.Matcher {
	t.Helper()
	lex, err := nlp.DefaultLexicon("fr")
	require.NoError(t, err)
	m, err := matcher.New(repository.DefaultKnowledgeBase(),
		matcher.NewNormalizer(nlp.NewLexiconAnnotator(lex, nil), lex),
		matcher.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return m
}

func TestChatLoop(t *testing.T) {
	m := newTestMatcher(t)
	chat := service.NewChatService(m, nil, rand.New(rand.NewSource(1)), 10, zaptest.NewLogger(t))

	in := strings.NewReader("bonjour\n\ncontact\nquitter\naide\n")
	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), in, &out, chat))

	text := out.String()
	assert.Contains(t, text, service.GreetingReply)
	assert.Contains(t, text, "contact@annonces-legales.fr")
	assert.Contains(t, text, service.FarewellReply)
	assert.NotContains(t, text, "Sujets disponibles", "input after quit is ignored")
}

func TestChatLoop_EOF(t *testing.T) {
	chat := service.NewChatService(newTestMatcher(t), nil, nil, 10, zaptest.NewLogger(t))

	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), strings.NewReader("aide"), &out, chat))
	assert.Contains(t, out.String(), "Sujets disponibles")
}

func TestIsQuit(t *testing.T) {
	for _, w := range []string{"quit", "QUIT", "Quitter", "exit"} {
		assert.True(t, isQuit(w), w)
	}
	assert.False(t, isQuit("au revoir"))
}

func TestPrintMatch(t *testing.T) {
	m := newTestMatcher(t)

	var out bytes.Buffer
	require.NoError(t, printMatch(context.Background(), &out, m, "comment créer une entreprise", true))
	assert.Contains(t, out.String(), "category/creation_entreprise")
	assert.Contains(t, out.String(), "faq_delais")

	out.Reset()
	require.NoError(t, printMatch(context.Background(), &out, m, "météo à marseille", false))
	assert.Contains(t, out.String(), "no match")
}

func TestEntryForms(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := repository.NewFileKnowledgeStore(filepath.Join(t.TempDir(), "kb.json"), true, logger)
	kb, err := store.Load(context.Background())
	require.NoError(t, err)
	m, err := matcher.New(kb, matcher.NewNormalizer(nlp.NewLexiconAnnotator(mustLexicon(t), nil), mustLexicon(t)))
	require.NoError(t, err)
	knowledge := service.NewKnowledgeService(store, m, logger)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)

	form := entryForm{
		id:        "cession_parts",
		name:      "Cession de parts",
		keywords:  []string{" cession ", "parts", ""},
		questions: []string{"comment céder mes parts"},
		responses: []string{"La cession de parts doit être publiée."},
	}
	require.NoError(t, saveEntry(cmd, knowledge, models.KindCategory, form.category()))
	assert.Contains(t, out.String(), "category cession_parts added")

	got, err := knowledge.Get(models.KindCategory, "cession_parts")
	require.NoError(t, err)
	assert.Equal(t, []string{"cession", "parts"}, got.Keywords)

	faq := entryForm{id: "paiement", question: "Comment payer ?", answer: "Par carte."}
	require.NoError(t, saveEntry(cmd, knowledge, models.KindFaq, faq.faq()))
	e, err := knowledge.Get(models.KindFaq, "paiement")
	require.NoError(t, err)
	assert.Equal(t, "Par carte.", e.Responses[0].Content)

	err = saveEntry(cmd, knowledge, models.KindFaq, (&entryForm{id: "vide", question: "?"}).faq())
	require.ErrorIs(t, err, service.ErrInvalidEntry)

	out.Reset()
	printEntries(&out, knowledge, models.KindFaq, "")
	assert.Contains(t, out.String(), "paiement")
	assert.NotContains(t, out.String(), "cession_parts")
}

func mustLexicon(t *testing.T) *nlp.Lexicon {
	t.Helper()
	lex, err := nlp.DefaultLexicon("fr")
	require.NoError(t, err)
	return lex
}
