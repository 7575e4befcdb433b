package dto

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message" validate:"required"`
}

type MatchResponse struct {
	Matched bool    `json:"matched"`
	EntryID string  `json:"entry_id,omitempty"`
	Kind    string  `json:"kind,omitempty"`
	Score   float64 `json:"score"`
	Path    string  `json:"path,omitempty"`
}

type ChatResponse struct {
	SessionID  string        `json:"session_id"`
	Reply      string        `json:"reply"`
	ReplyKind  string        `json:"reply_kind"`
	Confidence string        `json:"confidence,omitempty"`
	Match      MatchResponse `json:"match"`
}

type ConversationTurnResponse struct {
	Utterance string  `json:"utterance"`
	Reply     string  `json:"reply"`
	EntryID   string  `json:"entry_id,omitempty"`
	Score     float64 `json:"score"`
	CreatedAt string  `json:"created_at"`
}

type HistoryResponse struct {
	SessionID string                     `json:"session_id"`
	Turns     []ConversationTurnResponse `json:"turns"`
}

type MatchRequest struct {
	Text    string `json:"text" validate:"required"`
	Explain bool   `json:"explain,omitempty"`
}

type EntryScoreResponse struct {
	EntryID   string  `json:"entry_id"`
	Kind      string  `json:"kind"`
	Keyword   float64 `json:"keyword"`
	Question  float64 `json:"question"`
	Variation float64 `json:"variation"`
	Total     float64 `json:"total"`
}

type MatchDetailResponse struct {
	MatchResponse
	Threshold float64              `json:"threshold"`
	Scores    []EntryScoreResponse `json:"scores,omitempty"`
}
