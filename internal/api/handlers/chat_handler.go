package handlers

import (
	"strings"
	"time"

	"faqbot/internal/dto"
	"faqbot/internal/matcher"
	"faqbot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *service.ChatService
	matcher     *matcher.Matcher
	logger      *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, m *matcher.Matcher, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		matcher:     m,
		logger:      logger,
	}
}

// Chat godoc
// @Summary Send a message to the assistant
// @Description Answers greetings, help and contact commands, or the best matching knowledge base entry
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Chat message"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Message is required")
	}

	sessionID := uuid.Nil
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid session ID")
		}
		sessionID = id
	}

	reply, err := h.chatService.Respond(c.UserContext(), sessionID, req.Message)
	if err != nil {
		h.logger.Error("Chat failed", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to answer")
	}

	return c.JSON(dto.ChatResponse{
		SessionID:  reply.SessionID.String(),
		Reply:      reply.Text,
		ReplyKind:  string(reply.ReplyKind),
		Confidence: reply.Confidence,
		Match:      toMatchResponse(reply.Match),
	})
}

// History godoc
// @Summary Session history
// @Description Returns the latest turns of a chat session, oldest first
// @Tags chat
// @Produce json
// @Param session path string true "Session ID"
// @Success 200 {object} dto.HistoryResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/chat/{session}/history [get]
func (h *ChatHandler) History(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("session"))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid session ID")
	}

	turns, err := h.chatService.History(c.UserContext(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load history", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load history")
	}

	resp := dto.HistoryResponse{
		SessionID: sessionID.String(),
		Turns:     make([]dto.ConversationTurnResponse, 0, len(turns)),
	}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, dto.ConversationTurnResponse{
			Utterance: t.Utterance,
			Reply:     t.Reply,
			EntryID:   t.EntryID,
			Score:     t.Score,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(resp)
}

// Match godoc
// @Summary Match an utterance
// @Description Runs the matcher without producing a reply. With explain, the per-entry score breakdown is included.
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.MatchRequest true "Utterance"
// @Success 200 {object} dto.MatchDetailResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/match [post]
func (h *ChatHandler) Match(c *fiber.Ctx) error {
	var req dto.MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	res := h.matcher.FindBestMatch(c.UserContext(), req.Text)
	resp := dto.MatchDetailResponse{
		MatchResponse: toMatchResponse(res),
		Threshold:     h.matcher.Threshold(),
	}
	if req.Explain {
		for _, s := range h.matcher.Explain(req.Text) {
			resp.Scores = append(resp.Scores, dto.EntryScoreResponse{
				EntryID:   s.EntryID,
				Kind:      string(s.Kind),
				Keyword:   s.Keyword,
				Question:  s.Question,
				Variation: s.Variation,
				Total:     s.Final,
			})
		}
	}
	return c.JSON(resp)
}

// Insights godoc
// @Summary Conversation insights
// @Description Turn counts and the most requested entries
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param top query int false "Number of top entries" default(10)
// @Success 200 {object} dto.InsightsResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/admin/insights [get]
func (h *ChatHandler) Insights(c *fiber.Ctx) error {
	top := c.QueryInt("top", 10)

	in, err := h.chatService.Insights(c.UserContext(), top)
	if err != nil {
		h.logger.Error("Failed to compute insights", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to compute insights")
	}

	resp := dto.InsightsResponse{
		Turns:      in.Turns,
		Sessions:   in.Sessions,
		NoMatch:    in.NoMatch,
		TopEntries: make([]dto.EntryCountResponse, 0, len(in.TopEntries)),
	}
	for _, e := range in.TopEntries {
		resp.TopEntries = append(resp.TopEntries, dto.EntryCountResponse{EntryID: e.EntryID, Count: e.Count})
	}
	return c.JSON(resp)
}

func toMatchResponse(res matcher.MatchResult) dto.MatchResponse {
	resp := dto.MatchResponse{
		Matched: res.Matched(),
		Score:   res.Score,
		Path:    string(res.Path),
	}
	if res.Matched() {
		resp.EntryID = res.EntryID
		resp.Kind = string(res.Kind)
	}
	return resp
}
