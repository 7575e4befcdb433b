package service

import (
	"context"
	"math/rand"
	"testing"

	"faqbot/internal/matcher"
	"faqbot/internal/models"
	"faqbot/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestChatService(t *testing.T, kb *models.KnowledgeBase) (*ChatService, *repository.MemoryConversationStore) {
	t.Helper()
	store := repository.NewMemoryConversationStore(0)
	return NewChatService(newTestMatcher(t, kb), store, rand.New(rand.NewSource(1)), 10, zaptest.NewLogger(t)), store
}

func TestChatService_Commands(t *testing.T) {
	s, _ := newTestChatService(t, testKnowledgeBase())

	tests := []struct {
		input    string
		kind     ReplyKind
		contains string
	}{
		{input: "Bonjour", kind: ReplyGreeting, contains: GreetingReply},
		{input: "  SALUT  ", kind: ReplyGreeting, contains: GreetingReply},
		{input: "au revoir", kind: ReplyFarewell, contains: FarewellReply},
		{input: "À bientôt", kind: ReplyFarewell, contains: FarewellReply},
		{input: "aide", kind: ReplyHelp, contains: "• Création d'entreprise"},
		{input: "menu", kind: ReplyHelp, contains: "• Tarifs"},
		{input: "contact", kind: ReplyContact, contains: "Email : contact@example.fr"},
		{input: "Coordonnées", kind: ReplyContact, contains: "Horaires : Non disponible"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			reply, err := s.Respond(context.Background(), uuid.Nil, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, reply.ReplyKind)
			assert.Contains(t, reply.Text, tt.contains)
			assert.False(t, reply.Match.Matched())
		})
	}
}

func TestChatService_Match(t *testing.T) {
	s, _ := newTestChatService(t, testKnowledgeBase())

	reply, err := s.Respond(context.Background(), uuid.Nil, "je veux la création de mon entreprise")
	require.NoError(t, err)

	assert.Equal(t, ReplyMatch, reply.ReplyKind)
	assert.Equal(t, "Publiez un avis de constitution.", reply.Text)
	assert.Equal(t, "creation_entreprise", reply.Match.EntryID)
	assert.NotEmpty(t, reply.Confidence)
	assert.NotEqual(t, uuid.Nil, reply.SessionID)
}

func TestChatService_Fallback(t *testing.T) {
	s, _ := newTestChatService(t, testKnowledgeBase())

	reply, err := s.Respond(context.Background(), uuid.Nil, "quelle météo demain à marseille")
	require.NoError(t, err)
	assert.Equal(t, ReplyFallback, reply.ReplyKind)
	assert.Equal(t, FallbackReply, reply.Text)
	assert.Equal(t, matcher.PathNone, reply.Match.Path)
}

func TestChatService_EntryWithoutResponses(t *testing.T) {
	kb := testKnowledgeBase()
	e, _ := kb.Categories.Get("creation_entreprise")
	e.Responses = nil
	s, _ := newTestChatService(t, kb)

	reply, err := s.Respond(context.Background(), uuid.Nil, "je veux la création de mon entreprise")
	require.NoError(t, err)
	assert.Equal(t, ReplyFallback, reply.ReplyKind)
	assert.Equal(t, FallbackReply, reply.Text)
	assert.Equal(t, "creation_entreprise", reply.Match.EntryID)
}

func TestChatService_PicksAmongResponses(t *testing.T) {
	kb := testKnowledgeBase()
	e, _ := kb.Faq.Get("tarifs")
	e.Responses = []models.Response{{Content: "a"}, {Content: "b"}, {Content: "c"}}
	s, _ := newTestChatService(t, kb)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		reply, err := s.Respond(context.Background(), uuid.Nil, "quel est le tarif d'une annonce légale")
		require.NoError(t, err)
		require.Equal(t, ReplyMatch, reply.ReplyKind)
		seen[reply.Text] = true
	}
	assert.Len(t, seen, 3)
}

func TestChatService_HistoryAndInsights(t *testing.T) {
	s, _ := newTestChatService(t, testKnowledgeBase())
	ctx := context.Background()
	session := uuid.New()

	for _, msg := range []string{"bonjour", "quel est le tarif d'une annonce légale", "quelle météo demain à marseille"} {
		reply, err := s.Respond(ctx, session, msg)
		require.NoError(t, err)
		require.Equal(t, session, reply.SessionID)
	}
	_, err := s.Respond(ctx, uuid.Nil, "quel est le tarif d'une annonce légale")
	require.NoError(t, err)

	history, err := s.History(ctx, session)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "bonjour", history[0].Utterance)
	assert.Equal(t, "faq_tarifs", history[1].EntryID)

	insights, err := s.Insights(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, insights.Turns)
	assert.Equal(t, 2, insights.Sessions)
	assert.Equal(t, 2, insights.NoMatch)
	require.NotEmpty(t, insights.TopEntries)
	assert.Equal(t, models.EntryCount{EntryID: "faq_tarifs", Count: 2}, insights.TopEntries[0])
}

func TestChatService_WithoutConversationLog(t *testing.T) {
	s := NewChatService(newTestMatcher(t, testKnowledgeBase()), nil, nil, 10, zaptest.NewLogger(t))

	_, err := s.Respond(context.Background(), uuid.Nil, "bonjour")
	require.NoError(t, err)

	history, err := s.History(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, history)

	insights, err := s.Insights(context.Background(), 3)
	require.NoError(t, err)
	assert.Zero(t, insights.Turns)
}

func TestChatService_CanceledContext(t *testing.T) {
	s, store := newTestChatService(t, testKnowledgeBase())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Respond(ctx, uuid.Nil, "bonjour")
	require.ErrorIs(t, err, context.Canceled)

	insights, err := store.Insights(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, insights.Turns)
}

func TestChatService_SanitizesInput(t *testing.T) {
	s, _ := newTestChatService(t, testKnowledgeBase())
	session := uuid.New()

	_, err := s.Respond(context.Background(), session, "bon\xffjour")
	require.NoError(t, err)

	history, err := s.History(context.Background(), session)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "bonjour", history[0].Utterance)
}

func TestConfidenceLabel(t *testing.T) {
	assert.Equal(t, "réponse très pertinente", ConfidenceLabel(0.81))
	assert.Equal(t, "réponse pertinente", ConfidenceLabel(0.8))
	assert.Equal(t, "réponse possible", ConfidenceLabel(0.5))
	assert.Equal(t, "", ConfidenceLabel(0.4))
}

func TestContactBlock(t *testing.T) {
	text := ContactBlock(models.Contact{Telephone: "01"})
	assert.Contains(t, text, "Email : Non disponible")
	assert.Contains(t, text, "Téléphone : 01")
}
