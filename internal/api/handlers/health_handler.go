package handlers

import (
	"faqbot/internal/matcher"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	matcher *matcher.Matcher
}

func NewHealthHandler(m *matcher.Matcher) *HealthHandler {
	return &HealthHandler{matcher: m}
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	kb := h.matcher.KnowledgeBase()
	return c.JSON(fiber.Map{
		"status":     "ok",
		"categories": kb.Categories.Len(),
		"faq":        kb.Faq.Len(),
	})
}
