package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"faqbot/internal/models"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileKnowledgeStore keeps the knowledge base as one JSON document on disk.
type FileKnowledgeStore struct {
	path          string
	createDefault bool
	logger        *zap.Logger
}

func NewFileKnowledgeStore(path string, createDefault bool, logger *zap.Logger) *FileKnowledgeStore {
	return &FileKnowledgeStore{
		path:          path,
		createDefault: createDefault,
		logger:        logger,
	}
}

func (s *FileKnowledgeStore) Path() string {
	return s.path
}

// Load reads the document. A missing or malformed document is replaced by
// DefaultKnowledgeBase when createDefault is set; a malformed one is first
// moved aside with a ".invalid" suffix.
func (s *FileKnowledgeStore) Load(ctx context.Context) (*models.KnowledgeBase, error) {
	kb, err := s.read()
	if err == nil {
		s.logger.Info("Knowledge base loaded from file",
			zap.String("path", s.path),
			zap.Int("categories", kb.Categories.Len()),
			zap.Int("faq", kb.Faq.Len()),
		)
		return kb, nil
	}
	recoverable := errors.Is(err, ErrKnowledgeBaseNotFound) || errors.Is(err, ErrMalformedKnowledgeBase)
	if !s.createDefault || !recoverable {
		return nil, err
	}

	if errors.Is(err, ErrMalformedKnowledgeBase) {
		backup := s.path + ".invalid"
		if rerr := os.Rename(s.path, backup); rerr != nil {
			return nil, fmt.Errorf("failed to move malformed knowledge base aside: %w", rerr)
		}
		s.logger.Warn("Malformed knowledge base moved aside", zap.String("backup", backup), zap.Error(err))
	}

	kb = DefaultKnowledgeBase()
	if err := s.Save(ctx, kb); err != nil {
		return nil, err
	}
	s.logger.Info("Default knowledge base created", zap.String("path", s.path))
	return kb, nil
}

func (s *FileKnowledgeStore) read() (*models.KnowledgeBase, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKnowledgeBaseNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var kb models.KnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedKnowledgeBase, s.path, err)
	}
	if err := kb.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedKnowledgeBase, s.path, err)
	}
	return &kb, nil
}

// Save writes the document atomically: a temp file in the same directory is
// renamed over the target.
func (s *FileKnowledgeStore) Save(_ context.Context, kb *models.KnowledgeBase) error {
	data, err := EncodeKnowledgeBase(kb)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create knowledge base directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write knowledge base: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync knowledge base: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close knowledge base: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace knowledge base: %w", err)
	}

	s.logger.Info("Knowledge base saved", zap.String("path", s.path))
	return nil
}

// EncodeKnowledgeBase renders the document the way it is stored: indented,
// UTF-8 kept as is.
func EncodeKnowledgeBase(kb *models.KnowledgeBase) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(kb); err != nil {
		return nil, fmt.Errorf("failed to encode knowledge base: %w", err)
	}
	return buf.Bytes(), nil
}

// Watch calls onChange with each successfully reloaded document until ctx is
// done. Bursts of events within debounce are coalesced; malformed intermediate
// states are logged and skipped.
func (s *FileKnowledgeStore) Watch(ctx context.Context, debounce time.Duration, onChange func(*models.KnowledgeBase)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// the directory is watched so atomic renames are seen
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}

	target := filepath.Clean(s.path)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Knowledge base watcher error", zap.Error(err))
		case <-timer.C:
			kb, err := s.read()
			if err != nil {
				s.logger.Warn("Knowledge base reload skipped", zap.Error(err))
				continue
			}
			s.logger.Info("Knowledge base changed on disk", zap.String("path", s.path))
			onChange(kb)
		}
	}
}
