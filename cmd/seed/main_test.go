package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"faqbot/internal/models"
	"faqbot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memoryKnowledgeStore struct {
	kb    *models.KnowledgeBase
	saves int
}

func (s *memoryKnowledgeStore) Load(context.Context) (*models.KnowledgeBase, error) {
	if s.kb == nil {
		return nil, repository.ErrKnowledgeBaseNotFound
	}
	return s.kb.Clone(), nil
}

func (s *memoryKnowledgeStore) Save(_ context.Context, kb *models.KnowledgeBase) error {
	s.kb = kb.Clone()
	s.saves++
	return nil
}

func writeDoc(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestSeedKnowledgeBase(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(dir, ".seed_cache.json")
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	writeDoc(t, filepath.Join(dir, "a.json"), `{
		"categories": {"creation": {"name": "Création", "keywords": ["création"], "responses": ["A"]}},
		"faq": {}
	}`)
	writeDoc(t, filepath.Join(dir, "b.json"), `{
		"categories": {},
		"faq": {"tarifs": {"question": "Quel tarif ?", "answer": "B"}},
		"contact": {"email": "x@example.fr"}
	}`)

	store := &memoryKnowledgeStore{}
	require.NoError(t, seedKnowledgeBase(ctx, dir, cacheFile, false, store, logger))
	require.Equal(t, 1, store.saves)
	assert.Equal(t, 1, store.kb.Categories.Len())
	assert.Equal(t, 1, store.kb.Faq.Len())
	assert.Equal(t, "x@example.fr", store.kb.Contact.Email)

	cache, err := loadCache(cacheFile)
	require.NoError(t, err)
	assert.Len(t, cache.ProcessedFiles, 2)

	// unchanged files are skipped
	require.NoError(t, seedKnowledgeBase(ctx, dir, cacheFile, false, store, logger))
	assert.Equal(t, 1, store.saves)

	require.NoError(t, seedKnowledgeBase(ctx, dir, cacheFile, true, store, logger))
	assert.Equal(t, 2, store.saves)

	writeDoc(t, filepath.Join(dir, "a.json"), `{
		"categories": {"dissolution": {"keywords": ["dissolution"], "responses": ["C"]}},
		"faq": {}
	}`)
	require.NoError(t, seedKnowledgeBase(ctx, dir, cacheFile, false, store, logger))
	assert.Equal(t, 3, store.saves)
	assert.Equal(t, 2, store.kb.Categories.Len())
}

func TestCalculateFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.json")
	writeDoc(t, path, "abc")

	hash, err := calculateFileHash(path)
	require.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", hash)

	_, err = calculateFileHash(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
