package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"faqbot/internal/api/handlers"
	"faqbot/internal/dto"
	"faqbot/internal/matcher"
	"faqbot/internal/models"
	"faqbot/internal/nlp"
	"faqbot/internal/repository"
	"faqbot/internal/service"
	"faqbot/pkg/auth"
	"faqbot/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	app  *fiber.App
	auth *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	lex, err := nlp.DefaultLexicon("fr")
	require.NoError(t, err)
	normalizer := matcher.NewNormalizer(nlp.NewLexiconAnnotator(lex, nil), lex)

	store := repository.NewFileKnowledgeStore(filepath.Join(t.TempDir(), "kb.json"), true, logger)
	kb, err := store.Load(context.Background())
	require.NoError(t, err)

	m, err := matcher.New(kb, normalizer, matcher.WithLogger(logger))
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	authService := service.NewAuthService(repository.NewMemoryUserStore(), jwtManager, logger)
	knowledgeService := service.NewKnowledgeService(store, m, logger)
	chatService := service.NewChatService(m, repository.NewMemoryConversationStore(100), rand.New(rand.NewSource(7)), 20, logger)

	app := SetupRouter(config.ServerConfig{}, Handlers{
		Auth:      handlers.NewAuthHandler(authService, logger),
		Chat:      handlers.NewChatHandler(chatService, m, logger),
		Knowledge: handlers.NewKnowledgeHandler(knowledgeService, logger),
		Health:    handlers.NewHealthHandler(m),
	}, jwtManager, logger)

	return &testServer{app: app, auth: authService}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	resp, err := s.auth.Register(context.Background(), &dto.RegisterRequest{
		Username: "admin",
		Email:    "admin@example.fr",
		Password: "motdepasse",
	})
	require.NoError(t, err)
	return resp.AccessToken
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "ok", out["status"])
	assert.EqualValues(t, 2, out["categories"])
}

func TestChatEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/v1/chat", dto.ChatRequest{Message: "bonjour"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var greet dto.ChatResponse
	require.NoError(t, json.Unmarshal(body, &greet))
	assert.Equal(t, service.GreetingReply, greet.Reply)
	assert.NotEmpty(t, greet.SessionID)

	resp, body = s.do(t, http.MethodPost, "/api/v1/chat", dto.ChatRequest{
		SessionID: greet.SessionID,
		Message:   "comment créer une entreprise",
	}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var answer dto.ChatResponse
	require.NoError(t, json.Unmarshal(body, &answer))
	assert.Equal(t, greet.SessionID, answer.SessionID)
	assert.Equal(t, "match", answer.ReplyKind)
	assert.Equal(t, "creation_entreprise", answer.Match.EntryID)

	resp, body = s.do(t, http.MethodGet, "/api/v1/chat/"+greet.SessionID+"/history", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var history dto.HistoryResponse
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history.Turns, 2)
	assert.Equal(t, "bonjour", history.Turns[0].Utterance)
}

func TestChatEndpoint_BadRequests(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/v1/chat", dto.ChatRequest{Message: "  "}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/chat", dto.ChatRequest{SessionID: "nope", Message: "bonjour"}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/chat/nope/history", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMatchEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/v1/match", dto.MatchRequest{Text: "Quels sont les délais de publication ?", Explain: true}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out dto.MatchDetailResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Matched)
	assert.Equal(t, "faq_delais", out.EntryID)
	assert.Equal(t, string(models.KindFaq), out.Kind)
	assert.Equal(t, 0.5, out.Threshold)
	assert.Len(t, out.Scores, 4)
}

func TestEntriesEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/api/v1/entries", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list dto.EntryListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 4, list.Total)

	resp, body = s.do(t, http.MethodGet, "/api/v1/entries?kind=faq", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 2, list.Total)

	resp, body = s.do(t, http.MethodGet, "/api/v1/entries?q=tarif", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	require.NotEmpty(t, list.Entries)
	assert.Equal(t, "tarifs", list.Entries[0].ID)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/entries?kind=autre", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/v1/entries/category/creation_entreprise", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var entry dto.EntryResponse
	require.NoError(t, json.Unmarshal(body, &entry))
	assert.Equal(t, "Création d'entreprise", entry.Name)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/entries/faq/inconnue", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/v1/contact", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var contact dto.ContactResponse
	require.NoError(t, json.Unmarshal(body, &contact))
	assert.Equal(t, "contact@annonces-legales.fr", contact.Email)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	entry := dto.EntryRequest{
		ID:        "transfert_siege",
		Name:      "Transfert de siège",
		Keywords:  []string{"transfert", "siège"},
		Questions: []string{"comment transférer le siège social"},
		Responses: []models.Response{{Content: "Le transfert de siège doit être publié."}},
	}

	resp, _ := s.do(t, http.MethodPost, "/api/v1/admin/categories", entry, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token := s.adminToken(t)

	resp, body := s.do(t, http.MethodPost, "/api/v1/admin/categories", entry, token)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var saved dto.SaveEntryResponse
	require.NoError(t, json.Unmarshal(body, &saved))
	assert.True(t, saved.Created)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/admin/categories", entry, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/v1/match", dto.MatchRequest{Text: "comment transférer le siège social"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var match dto.MatchDetailResponse
	require.NoError(t, json.Unmarshal(body, &match))
	assert.Equal(t, "transfert_siege", match.EntryID)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/admin/faq", dto.EntryRequest{ID: "Invalide"}, token)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/v1/admin/entries/category/transfert_siege", nil, token)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/v1/admin/entries/category/transfert_siege", nil, token)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	s.do(t, http.MethodPost, "/api/v1/chat", dto.ChatRequest{Message: "bonjour"}, "")
	resp, body = s.do(t, http.MethodGet, "/api/v1/admin/insights", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var insights dto.InsightsResponse
	require.NoError(t, json.Unmarshal(body, &insights))
	assert.Equal(t, 1, insights.Turns)
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/user/auth/register", dto.RegisterRequest{
		Username: "admin", Email: "admin@example.fr", Password: "motdepasse",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var registered dto.AuthResponse
	require.NoError(t, json.Unmarshal(body, &registered))

	resp, _ = s.do(t, http.MethodPost, "/user/auth/register", dto.RegisterRequest{
		Username: "admin", Email: "admin@example.fr", Password: "motdepasse",
	}, "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/user/auth/login", dto.LoginRequest{Email: "admin@example.fr", Password: "faux"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/user/auth/refresh", dto.RefreshTokenRequest{RefreshToken: registered.RefreshToken}, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/user/auth/refresh", dto.RefreshTokenRequest{RefreshToken: registered.AccessToken}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
