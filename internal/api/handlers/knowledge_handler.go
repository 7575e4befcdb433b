package handlers

import (
	"errors"

	"faqbot/internal/dto"
	"faqbot/internal/models"
	"faqbot/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type KnowledgeHandler struct {
	knowledgeService *service.KnowledgeService
	logger           *zap.Logger
}

func NewKnowledgeHandler(knowledgeService *service.KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledgeService: knowledgeService,
		logger:           logger,
	}
}

// ListEntries godoc
// @Summary List or search entries
// @Description Lists categories and FAQ entries. With q, entries are ranked by fuzzy match on id, name and keywords.
// @Tags knowledge
// @Produce json
// @Param kind query string false "category or faq"
// @Param q query string false "Search query"
// @Param limit query int false "Maximum number of search results"
// @Success 200 {object} dto.EntryListResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/entries [get]
func (h *KnowledgeHandler) ListEntries(c *fiber.Ctx) error {
	kind := models.KindNone
	if raw := c.Query("kind"); raw != "" {
		k, err := models.ParseKind(raw)
		if err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid kind")
		}
		kind = k
	}

	resp := dto.EntryListResponse{Entries: []dto.EntryResponse{}}
	if q := c.Query("q"); q != "" {
		for _, hit := range h.knowledgeService.Search(kind, q, c.QueryInt("limit", 0)) {
			resp.Entries = append(resp.Entries, toEntryResponse(hit.Kind, hit.Entry))
		}
	} else {
		kinds := []models.EntryKind{models.KindCategory, models.KindFaq}
		if kind != models.KindNone {
			kinds = []models.EntryKind{kind}
		}
		for _, k := range kinds {
			for _, e := range h.knowledgeService.List(k) {
				resp.Entries = append(resp.Entries, toEntryResponse(k, e))
			}
		}
	}
	resp.Total = len(resp.Entries)
	return c.JSON(resp)
}

// GetEntry godoc
// @Summary Get an entry
// @Tags knowledge
// @Produce json
// @Param kind path string true "category or faq"
// @Param id path string true "Entry ID"
// @Success 200 {object} dto.EntryResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/entries/{kind}/{id} [get]
func (h *KnowledgeHandler) GetEntry(c *fiber.Ctx) error {
	kind, err := models.ParseKind(c.Params("kind"))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid kind")
	}

	e, err := h.knowledgeService.Get(kind, c.Params("id"))
	if err != nil {
		return errorResponse(c, fiber.StatusNotFound, "Entry not found")
	}
	return c.JSON(toEntryResponse(kind, e))
}

// Contact godoc
// @Summary Contact details
// @Tags knowledge
// @Produce json
// @Success 200 {object} dto.ContactResponse
// @Router /api/v1/contact [get]
func (h *KnowledgeHandler) Contact(c *fiber.Ctx) error {
	contact := h.knowledgeService.Contact()
	return c.JSON(dto.ContactResponse{
		Email:     contact.Email,
		Telephone: contact.Telephone,
		Horaires:  contact.Horaires,
		Text:      service.ContactBlock(contact),
	})
}

// SaveCategory godoc
// @Summary Add or replace a category
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.EntryRequest true "Category"
// @Success 200 {object} dto.SaveEntryResponse
// @Success 201 {object} dto.SaveEntryResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/admin/categories [post]
func (h *KnowledgeHandler) SaveCategory(c *fiber.Ctx) error {
	return h.save(c, models.KindCategory)
}

// SaveFaq godoc
// @Summary Add or replace a FAQ entry
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.EntryRequest true "FAQ entry"
// @Success 200 {object} dto.SaveEntryResponse
// @Success 201 {object} dto.SaveEntryResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/admin/faq [post]
func (h *KnowledgeHandler) SaveFaq(c *fiber.Ctx) error {
	return h.save(c, models.KindFaq)
}

func (h *KnowledgeHandler) save(c *fiber.Ctx, kind models.EntryKind) error {
	var req dto.EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	entry := &models.Entry{
		ID:        req.ID,
		Name:      req.Name,
		Title:     req.Title,
		Keywords:  req.Keywords,
		Examples:  models.Examples{Questions: req.Questions, Variations: req.Variations},
		Responses: req.Responses,
	}
	created, err := h.knowledgeService.Upsert(c.UserContext(), kind, entry)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEntry) {
			return errorResponse(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error("Failed to save entry", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to save entry")
	}

	saved, err := h.knowledgeService.Get(kind, entry.ID)
	if err != nil {
		saved = entry
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.SaveEntryResponse{
		Entry:   toEntryResponse(kind, saved),
		Created: created,
	})
}

// DeleteEntry godoc
// @Summary Delete an entry
// @Tags admin
// @Security BearerAuth
// @Param kind path string true "category or faq"
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/entries/{kind}/{id} [delete]
func (h *KnowledgeHandler) DeleteEntry(c *fiber.Ctx) error {
	kind, err := models.ParseKind(c.Params("kind"))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid kind")
	}

	if err := h.knowledgeService.Delete(c.UserContext(), kind, c.Params("id")); err != nil {
		if errors.Is(err, service.ErrEntryNotFound) {
			return errorResponse(c, fiber.StatusNotFound, "Entry not found")
		}
		h.logger.Error("Failed to delete entry", zap.Error(err))
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to delete entry")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func toEntryResponse(kind models.EntryKind, e *models.Entry) dto.EntryResponse {
	return dto.EntryResponse{
		ID:         e.ID,
		Kind:       string(kind),
		Name:       e.DisplayName(),
		Keywords:   e.Keywords,
		Questions:  e.Examples.Questions,
		Variations: e.Examples.Variations,
		Responses:  e.Responses,
	}
}
