package models

import (
	"time"

	"github.com/google/uuid"
)

type ConversationTurn struct {
	ID        uuid.UUID `db:"id"`
	SessionID uuid.UUID `db:"session_id"`
	Utterance string    `db:"utterance"`
	Reply     string    `db:"reply"`
	EntryID   string    `db:"entry_id"`
	Kind      EntryKind `db:"kind"`
	Score     float64   `db:"score"`
	Path      string    `db:"path"`
	CreatedAt time.Time `db:"created_at"`
}

// EntryCount is how many turns were answered by one entry.
type EntryCount struct {
	EntryID string `json:"entry_id"`
	Count   int    `json:"count"`
}

// Insights summarizes the conversation log.
type Insights struct {
	Turns      int          `json:"turns"`
	Sessions   int          `json:"sessions"`
	NoMatch    int          `json:"no_match"`
	TopEntries []EntryCount `json:"top_entries"`
}
