package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"faqbot/internal/matcher"
	"faqbot/internal/models"
	"faqbot/internal/repository"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrInvalidEntry  = errors.New("invalid entry")
)

var entryIDPattern = regexp.MustCompile(`^[\p{Ll}\p{N}_-]+$`)

// KnowledgeService owns knowledge base mutations. Writers are serialized and
// work on a clone; readers keep using the snapshot installed in the matcher.
type KnowledgeService struct {
	mu        sync.Mutex
	store     repository.KnowledgeStore
	matcher   *matcher.Matcher
	logger    *zap.Logger
	listeners []func(*models.KnowledgeBase)
}

func NewKnowledgeService(store repository.KnowledgeStore, m *matcher.Matcher, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{
		store:   store,
		matcher: m,
		logger:  logger,
	}
}

// OnChange registers fn to run after every installed snapshot.
func (s *KnowledgeService) OnChange(fn func(*models.KnowledgeBase)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *KnowledgeService) Current() *models.KnowledgeBase {
	return s.matcher.KnowledgeBase()
}

func (s *KnowledgeService) Contact() models.Contact {
	return s.Current().Contact
}

func (s *KnowledgeService) Metadata() map[string]interface{} {
	return s.Current().Metadata
}

func (s *KnowledgeService) Get(kind models.EntryKind, id string) (*models.Entry, error) {
	e, ok := s.matcher.GetEntry(kind, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrEntryNotFound, kind, id)
	}
	return e, nil
}

// List returns the entries of one kind, or of both when kind is KindNone.
func (s *KnowledgeService) List(kind models.EntryKind) []*models.Entry {
	kb := s.Current()
	if kind == models.KindNone {
		return append(kb.Categories.Entries(), kb.Faq.Entries()...)
	}
	set := kb.Set(kind)
	if set == nil {
		return nil
	}
	return set.Entries()
}

// SearchHit is one fuzzy search result over entry ids, names and keywords.
type SearchHit struct {
	Kind  models.EntryKind
	Entry *models.Entry
	Score int
}

// Search ranks entries by fuzzy match of query against "id name keywords".
// An empty query returns nothing.
func (s *KnowledgeService) Search(kind models.EntryKind, query string, limit int) []SearchHit {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	kb := s.Current()
	var (
		haystack []string
		owners   []SearchHit
	)
	for _, k := range []models.EntryKind{models.KindCategory, models.KindFaq} {
		if kind != models.KindNone && kind != k {
			continue
		}
		for _, e := range kb.Set(k).Entries() {
			haystack = append(haystack, strings.ToLower(strings.Join(append([]string{e.ID, e.DisplayName()}, e.Keywords...), " ")))
			owners = append(owners, SearchHit{Kind: k, Entry: e})
		}
	}

	matches := fuzzy.Find(strings.ToLower(query), haystack)
	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		hit := owners[m.Index]
		hit.Score = m.Score
		hits = append(hits, hit)
		if limit > 0 && len(hits) == limit {
			break
		}
	}
	return hits
}

func (s *KnowledgeService) AddCategory(ctx context.Context, e *models.Entry) (bool, error) {
	return s.Upsert(ctx, models.KindCategory, e)
}

func (s *KnowledgeService) AddFaq(ctx context.Context, e *models.Entry) (bool, error) {
	return s.Upsert(ctx, models.KindFaq, e)
}

// Upsert adds or replaces an entry, persists the new knowledge base and
// installs it. created reports whether the id was new.
func (s *KnowledgeService) Upsert(ctx context.Context, kind models.EntryKind, e *models.Entry) (created bool, err error) {
	entry := e.Clone()
	entry.Upgrade()
	if kind == models.KindFaq {
		entry.ID = strings.TrimPrefix(entry.ID, models.FaqPrefix)
	}
	if err := validateEntry(kind, entry); err != nil {
		return false, err
	}

	err = s.mutate(ctx, func(kb *models.KnowledgeBase) error {
		set := kb.Set(kind)
		_, exists := set.Get(entry.ID)
		created = !exists
		set.Put(entry)
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("Entry saved",
		zap.String("kind", string(kind)),
		zap.String("id", entry.ID),
		zap.Bool("created", created),
	)
	return created, nil
}

func (s *KnowledgeService) Delete(ctx context.Context, kind models.EntryKind, id string) error {
	if kind == models.KindFaq {
		id = strings.TrimPrefix(id, models.FaqPrefix)
	}
	err := s.mutate(ctx, func(kb *models.KnowledgeBase) error {
		set := kb.Set(kind)
		if set == nil || !set.Delete(id) {
			return fmt.Errorf("%w: %s/%s", ErrEntryNotFound, kind, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Entry deleted", zap.String("kind", string(kind)), zap.String("id", id))
	return nil
}

// Replace installs kb without persisting it, e.g. after the file changed on disk.
func (s *KnowledgeService) Replace(kb *models.KnowledgeBase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.install(kb)
}

func (s *KnowledgeService) mutate(ctx context.Context, fn func(kb *models.KnowledgeBase) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.Current().Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save knowledge base: %w", err)
	}
	return s.install(next)
}

func (s *KnowledgeService) install(kb *models.KnowledgeBase) error {
	if err := s.matcher.Reload(kb); err != nil {
		return err
	}
	for _, fn := range s.listeners {
		fn(kb)
	}
	return nil
}

func validateEntry(kind models.EntryKind, e *models.Entry) error {
	switch {
	case kind != models.KindCategory && kind != models.KindFaq:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, kind)
	case !entryIDPattern.MatchString(e.ID):
		return fmt.Errorf("%w: id %q must be lowercase letters, digits, '_' or '-'", ErrInvalidEntry, e.ID)
	case len(e.Responses) == 0:
		return fmt.Errorf("%w: %s needs at least one response", ErrInvalidEntry, e.ID)
	}
	for _, r := range e.Responses {
		if strings.TrimSpace(r.Content) == "" {
			return fmt.Errorf("%w: %s has an empty response", ErrInvalidEntry, e.ID)
		}
	}
	return nil
}
