package repository

import (
	"context"
	"sort"
	"sync"

	"faqbot/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var turnColumns = []string{"id", "session_id", "utterance", "reply", "entry_id", "kind", "score", "path", "created_at"}

// ConversationStore is the append-only log of chat turns.
type ConversationStore interface {
	Append(ctx context.Context, turns ...*models.ConversationTurn) error
	BySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.ConversationTurn, error)
	Insights(ctx context.Context, top int) (*models.Insights, error)
}

type ConversationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewConversationRepository(db *pgxpool.Pool, logger *zap.Logger) *ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ConversationRepository) Append(ctx context.Context, turns ...*models.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}

	sql, args, err := insertTurnsQuery(turns).ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// BySession returns the last turns of a session, oldest first.
func (r *ConversationRepository) BySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	sql, args, err := sessionTurnsQuery(sessionID, limit).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*models.ConversationTurn
	for rows.Next() {
		var t models.ConversationTurn
		if err := rows.Scan(
			&t.ID, &t.SessionID, &t.Utterance, &t.Reply, &t.EntryID, &t.Kind, &t.Score, &t.Path, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		turns = append(turns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest first from the query
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *ConversationRepository) Insights(ctx context.Context, top int) (*models.Insights, error) {
	sql, args, err := squirrel.Select(
		"count(*)",
		"count(DISTINCT session_id)",
		"count(*) FILTER (WHERE kind = 'none')",
	).From("conversations").PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var in models.Insights
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&in.Turns, &in.Sessions, &in.NoMatch); err != nil {
		return nil, err
	}

	sql, args, err = topEntriesQuery(top).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ec models.EntryCount
		if err := rows.Scan(&ec.EntryID, &ec.Count); err != nil {
			return nil, err
		}
		in.TopEntries = append(in.TopEntries, ec)
	}
	return &in, rows.Err()
}

func insertTurnsQuery(turns []*models.ConversationTurn) squirrel.InsertBuilder {
	builder := squirrel.Insert("conversations").
		Columns(turnColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for _, t := range turns {
		builder = builder.Values(t.ID, t.SessionID, t.Utterance, t.Reply, t.EntryID, string(t.Kind), t.Score, t.Path, t.CreatedAt)
	}
	return builder
}

func sessionTurnsQuery(sessionID uuid.UUID, limit int) squirrel.SelectBuilder {
	q := squirrel.Select(turnColumns...).
		From("conversations").
		Where(squirrel.Eq{"session_id": sessionID.String()}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

func topEntriesQuery(top int) squirrel.SelectBuilder {
	q := squirrel.Select("entry_id", "count(*) AS n").
		From("conversations").
		Where(squirrel.NotEq{"kind": string(models.KindNone)}).
		GroupBy("entry_id").
		OrderBy("n DESC", "entry_id ASC").
		PlaceholderFormat(squirrel.Dollar)
	if top > 0 {
		q = q.Limit(uint64(top))
	}
	return q
}

// MemoryConversationStore keeps the most recent turns in memory.
type MemoryConversationStore struct {
	mu       sync.RWMutex
	capacity int
	turns    []*models.ConversationTurn
}

// NewMemoryConversationStore keeps at most capacity turns; 0 means unbounded.
func NewMemoryConversationStore(capacity int) *MemoryConversationStore {
	return &MemoryConversationStore{capacity: capacity}
}

func (s *MemoryConversationStore) Append(_ context.Context, turns ...*models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turns...)
	if s.capacity > 0 && len(s.turns) > s.capacity {
		s.turns = append([]*models.ConversationTurn(nil), s.turns[len(s.turns)-s.capacity:]...)
	}
	return nil
}

func (s *MemoryConversationStore) BySession(_ context.Context, sessionID uuid.UUID, limit int) ([]*models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ConversationTurn
	for _, t := range s.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *MemoryConversationStore) Insights(_ context.Context, top int) (*models.Insights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in := &models.Insights{Turns: len(s.turns)}
	sessions := make(map[uuid.UUID]struct{})
	counts := make(map[string]int)
	for _, t := range s.turns {
		sessions[t.SessionID] = struct{}{}
		if t.Kind == models.KindNone {
			in.NoMatch++
			continue
		}
		counts[t.EntryID]++
	}
	in.Sessions = len(sessions)

	for id, n := range counts {
		in.TopEntries = append(in.TopEntries, models.EntryCount{EntryID: id, Count: n})
	}
	sort.Slice(in.TopEntries, func(i, j int) bool {
		a, b := in.TopEntries[i], in.TopEntries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.EntryID < b.EntryID
	})
	if top > 0 && len(in.TopEntries) > top {
		in.TopEntries = in.TopEntries[:top]
	}
	return in, nil
}
