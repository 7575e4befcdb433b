package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"faqbot/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	entriesTable = "kb_entries"
	metaTable    = "kb_meta"

	metaKeyMetadata = "metadata"
	metaKeyContact  = "contact"
)

var entryColumns = []string{"kind", "id", "position", "name", "title", "keywords", "questions", "variations", "responses", "updated_at"}

// KnowledgeRepository stores the knowledge base in Postgres, one row per entry.
// Declaration order is kept in the position column.
type KnowledgeRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewKnowledgeRepository(db *pgxpool.Pool, logger *zap.Logger) *KnowledgeRepository {
	return &KnowledgeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *KnowledgeRepository) Load(ctx context.Context) (*models.KnowledgeBase, error) {
	sql, args, err := selectEntriesQuery().ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	kb := models.NewKnowledgeBase()
	for rows.Next() {
		var (
			kind                            models.EntryKind
			e                               models.Entry
			keywords, questions, variations pgtype.FlatArray[string]
			responses                       []byte
		)
		if err := rows.Scan(&kind, &e.ID, &e.Name, &e.Title, &keywords, &questions, &variations, &responses); err != nil {
			return nil, err
		}
		e.Keywords = []string(keywords)
		e.Examples.Questions = []string(questions)
		e.Examples.Variations = []string(variations)
		if err := json.Unmarshal(responses, &e.Responses); err != nil {
			return nil, fmt.Errorf("%w: entry %s/%s: %v", ErrMalformedKnowledgeBase, kind, e.ID, err)
		}

		set := kb.Set(kind)
		if set == nil {
			return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedKnowledgeBase, kind)
		}
		set.Put(&e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadMeta(ctx, kb); err != nil {
		return nil, err
	}

	if kb.Categories.Len() == 0 && kb.Faq.Len() == 0 {
		return nil, ErrKnowledgeBaseNotFound
	}
	return kb, nil
}

func (r *KnowledgeRepository) loadMeta(ctx context.Context, kb *models.KnowledgeBase) error {
	sql, args, err := squirrel.Select("key", "value").
		From(metaTable).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		switch key {
		case metaKeyMetadata:
			err = json.Unmarshal(value, &kb.Metadata)
		case metaKeyContact:
			err = json.Unmarshal(value, &kb.Contact)
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedKnowledgeBase, key, err)
		}
	}
	return rows.Err()
}

// Save replaces the stored knowledge base in a single transaction.
func (r *KnowledgeRepository) Save(ctx context.Context, kb *models.KnowledgeBase) error {
	now := time.Now()
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		sql, args, err := squirrel.Delete(entriesTable).PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("failed to clear entries: %w", err)
		}

		for _, kind := range []models.EntryKind{models.KindCategory, models.KindFaq} {
			query, ok, err := insertEntriesQuery(kind, kb.Set(kind).Entries(), 0, now)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			sql, args, err := query.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return fmt.Errorf("failed to insert %s entries: %w", kind, err)
			}
		}

		for key, value := range map[string]interface{}{metaKeyMetadata: kb.Metadata, metaKeyContact: kb.Contact} {
			sql, args, err := upsertMetaQuery(key, value)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return fmt.Errorf("failed to save %s: %w", key, err)
			}
		}

		r.logger.Info("Knowledge base saved to database",
			zap.Int("categories", kb.Categories.Len()),
			zap.Int("faq", kb.Faq.Len()),
		)
		return nil
	})
}

func selectEntriesQuery() squirrel.SelectBuilder {
	return squirrel.Select("kind", "id", "name", "title", "keywords", "questions", "variations", "responses").
		From(entriesTable).
		OrderBy("kind ASC", "position ASC").
		PlaceholderFormat(squirrel.Dollar)
}

// insertEntriesQuery builds one multi-row insert. ok is false when there is nothing to insert.
func insertEntriesQuery(kind models.EntryKind, entries []*models.Entry, offset int, now time.Time) (squirrel.InsertBuilder, bool, error) {
	builder := squirrel.Insert(entriesTable).
		Columns(entryColumns...).
		PlaceholderFormat(squirrel.Dollar)

	for i, e := range entries {
		responses, err := json.Marshal(e.Responses)
		if err != nil {
			return builder, false, fmt.Errorf("failed to encode responses of %s: %w", e.ID, err)
		}
		builder = builder.Values(
			string(kind), e.ID, offset+i, e.Name, e.Title,
			pgtype.FlatArray[string](nonNil(e.Keywords)),
			pgtype.FlatArray[string](nonNil(e.Examples.Questions)),
			pgtype.FlatArray[string](nonNil(e.Examples.Variations)),
			responses, now,
		)
	}
	return builder, len(entries) > 0, nil
}

func upsertMetaQuery(key string, value interface{}) (string, []interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return squirrel.Insert(metaTable).
		Columns("key", "value").
		Values(key, raw).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
