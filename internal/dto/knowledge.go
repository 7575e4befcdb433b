package dto

import "faqbot/internal/models"

type EntryRequest struct {
	ID         string            `json:"id" validate:"required"`
	Name       string            `json:"name,omitempty"`
	Title      string            `json:"title,omitempty"`
	Keywords   []string          `json:"keywords"`
	Questions  []string          `json:"questions"`
	Variations []string          `json:"variations"`
	Responses  []models.Response `json:"responses" validate:"required,min=1"`
}

type EntryResponse struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Name       string            `json:"name"`
	Keywords   []string          `json:"keywords"`
	Questions  []string          `json:"questions"`
	Variations []string          `json:"variations"`
	Responses  []models.Response `json:"responses"`
}

type SaveEntryResponse struct {
	Entry   EntryResponse `json:"entry"`
	Created bool          `json:"created"`
}

type EntryListResponse struct {
	Entries []EntryResponse `json:"entries"`
	Total   int             `json:"total"`
}

type ContactResponse struct {
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	Horaires  string `json:"horaires"`
	Text      string `json:"text"`
}

type EntryCountResponse struct {
	EntryID string `json:"entry_id"`
	Count   int    `json:"count"`
}

type InsightsResponse struct {
	Turns      int                  `json:"turns"`
	Sessions   int                  `json:"sessions"`
	NoMatch    int                  `json:"no_match"`
	TopEntries []EntryCountResponse `json:"top_entries"`
}
