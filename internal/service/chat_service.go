package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"faqbot/internal/matcher"
	"faqbot/internal/models"
	"faqbot/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	GreetingReply = "Bonjour ! Je suis votre assistant pour les annonces légales. Comment puis-je vous aider ?"
	FarewellReply = "Au revoir ! N'hésitez pas à revenir si vous avez d'autres questions."
	FallbackReply = "Je ne suis pas sûr de comprendre votre question. Tapez 'aide' pour voir les sujets que je peux traiter, ou 'contact' pour nos coordonnées."
)

// ReplyKind tells the caller how a reply was produced.
type ReplyKind string

const (
	ReplyGreeting ReplyKind = "greeting"
	ReplyFarewell ReplyKind = "farewell"
	ReplyHelp     ReplyKind = "help"
	ReplyContact  ReplyKind = "contact"
	ReplyMatch    ReplyKind = "match"
	ReplyFallback ReplyKind = "fallback"
)

var (
	greetings    = []string{"bonjour", "salut", "hello", "bonsoir"}
	farewells    = []string{"au revoir", "bye", "adieu", "à bientôt"}
	helpWords    = []string{"aide", "help", "menu"}
	contactWords = []string{"contact", "contacts", "coordonnées"}
)

type Reply struct {
	SessionID  uuid.UUID
	Text       string
	ReplyKind  ReplyKind
	Match      matcher.MatchResult
	Confidence string
}

// ChatService turns utterances into replies. Literal commands (greetings,
// farewells, help, contact) are answered before the matcher runs.
type ChatService struct {
	matcher       *matcher.Matcher
	conversations repository.ConversationStore
	historySize   int
	logger        *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

// NewChatService builds the service. conversations may be nil to disable the log.
func NewChatService(m *matcher.Matcher, conversations repository.ConversationStore, rng *rand.Rand, historySize int, logger *zap.Logger) *ChatService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ChatService{
		matcher:       m,
		conversations: conversations,
		historySize:   historySize,
		logger:        logger,
		rng:           rng,
		now:           time.Now,
	}
}

// Respond answers one utterance. A zero sessionID starts a new session.
func (s *ChatService) Respond(ctx context.Context, sessionID uuid.UUID, utterance string) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	utterance = sanitizeUTF8(utterance)
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}
	reply := &Reply{SessionID: sessionID, Match: matcher.NoMatch()}

	command := strings.ToLower(strings.TrimSpace(utterance))
	switch {
	case isOneOf(command, greetings):
		reply.ReplyKind, reply.Text = ReplyGreeting, GreetingReply
	case isOneOf(command, farewells):
		reply.ReplyKind, reply.Text = ReplyFarewell, FarewellReply
	case isOneOf(command, helpWords):
		reply.ReplyKind, reply.Text = ReplyHelp, HelpMenu(s.matcher.KnowledgeBase())
	case isOneOf(command, contactWords):
		reply.ReplyKind, reply.Text = ReplyContact, ContactBlock(s.matcher.KnowledgeBase().Contact)
	default:
		s.answer(ctx, utterance, reply)
	}

	if err := s.record(ctx, utterance, reply); err != nil {
		s.logger.Warn("Failed to record conversation turn", zap.Error(err))
	}
	return reply, nil
}

func (s *ChatService) answer(ctx context.Context, utterance string, reply *Reply) {
	res := s.matcher.FindBestMatch(ctx, utterance)
	reply.Match = res

	// a matched entry without responses renders as no match
	if !res.Matched() || len(res.Entry.Responses) == 0 {
		reply.ReplyKind, reply.Text = ReplyFallback, FallbackReply
		return
	}

	reply.ReplyKind = ReplyMatch
	reply.Confidence = ConfidenceLabel(res.Score)
	reply.Text = s.pick(res.Entry.Responses).Content
}

func (s *ChatService) pick(responses []models.Response) models.Response {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return responses[s.rng.Intn(len(responses))]
}

func (s *ChatService) record(ctx context.Context, utterance string, reply *Reply) error {
	if s.conversations == nil {
		return nil
	}
	return s.conversations.Append(ctx, &models.ConversationTurn{
		ID:        uuid.New(),
		SessionID: reply.SessionID,
		Utterance: utterance,
		Reply:     reply.Text,
		EntryID:   reply.Match.EntryID,
		Kind:      reply.Match.Kind,
		Score:     reply.Match.Score,
		Path:      string(reply.Match.Path),
		CreatedAt: s.now(),
	})
}

// History returns the latest turns of a session, oldest first.
func (s *ChatService) History(ctx context.Context, sessionID uuid.UUID) ([]*models.ConversationTurn, error) {
	if s.conversations == nil {
		return nil, nil
	}
	return s.conversations.BySession(ctx, sessionID, s.historySize)
}

func (s *ChatService) Insights(ctx context.Context, top int) (*models.Insights, error) {
	if s.conversations == nil {
		return &models.Insights{}, nil
	}
	return s.conversations.Insights(ctx, top)
}

// ConfidenceLabel grades a match score for display. Scores of 0.4 and below get no label.
func ConfidenceLabel(score float64) string {
	switch {
	case score > 0.8:
		return "réponse très pertinente"
	case score > 0.6:
		return "réponse pertinente"
	case score > 0.4:
		return "réponse possible"
	default:
		return ""
	}
}

// HelpMenu lists the categories of kb and the literal commands.
func HelpMenu(kb *models.KnowledgeBase) string {
	var b strings.Builder
	b.WriteString("Comment puis-je vous aider ?\n")
	if kb.Categories.Len() > 0 {
		b.WriteString("\nSujets disponibles :\n")
		for _, e := range kb.Categories.Entries() {
			fmt.Fprintf(&b, "• %s\n", e.DisplayName())
		}
	}
	if kb.Faq.Len() > 0 {
		b.WriteString("\nQuestions fréquentes :\n")
		for _, e := range kb.Faq.Entries() {
			fmt.Fprintf(&b, "• %s\n", e.DisplayName())
		}
	}
	b.WriteString("\nCommandes utiles :\n")
	b.WriteString("• 'contact' - Nos coordonnées\n")
	b.WriteString("• 'aide' - Ce menu")
	return b.String()
}

func ContactBlock(c models.Contact) string {
	return fmt.Sprintf("Vous pouvez nous contacter :\nEmail : %s\nTéléphone : %s\nHoraires : %s",
		orUnavailable(c.Email), orUnavailable(c.Telephone), orUnavailable(c.Horaires))
}

func orUnavailable(s string) string {
	if s == "" {
		return "Non disponible"
	}
	return s
}

func isOneOf(s string, words []string) bool {
	for _, w := range words {
		if s == w {
			return true
		}
	}
	return false
}
