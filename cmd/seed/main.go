package main

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"faqbot/internal/bootstrap"
	"faqbot/internal/models"
	"faqbot/internal/repository"
	"faqbot/pkg/config"
	"faqbot/pkg/logger"

	"go.uber.org/zap"
)

// seed imports knowledge base JSON documents into Postgres. Files whose hash
// did not change since the last run are skipped.
func main() {
	var (
		dir       = flag.String("dir", "data", "directory holding knowledge base JSON documents")
		cacheFile = flag.String("cache", "", "hash cache file (default <dir>/.seed_cache.json)")
		force     = flag.Bool("force", false, "import every file even if unchanged")
	)
	flag.Parse()
	if *cacheFile == "" {
		*cacheFile = filepath.Join(*dir, ".seed_cache.json")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Knowledge.Store = config.StorePostgres

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync(appLogger)

	ctx := context.Background()
	stores, err := bootstrap.OpenStores(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer stores.Close()

	appLogger.Info("Starting knowledge base seeding...")
	if err := seedKnowledgeBase(ctx, *dir, *cacheFile, *force, stores.Knowledge, appLogger); err != nil {
		appLogger.Fatal("Failed to seed knowledge base", zap.Error(err))
	}
	appLogger.Info("Knowledge base seeding completed")
}

// ProcessedFile is one imported document in the cache.
type ProcessedFile struct {
	FilePath    string    `json:"file_path"`
	FileHash    string    `json:"file_hash"`
	ProcessedAt time.Time `json:"processed_at"`
}

type CacheData struct {
	ProcessedFiles map[string]ProcessedFile `json:"processed_files"` // key: file path
}

func loadCache(cacheFile string) (*CacheData, error) {
	cache := &CacheData{ProcessedFiles: make(map[string]ProcessedFile)}

	data, err := os.ReadFile(cacheFile)
	if os.IsNotExist(err) {
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(data) == 0 {
		return cache, nil
	}
	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	if cache.ProcessedFiles == nil {
		cache.ProcessedFiles = make(map[string]ProcessedFile)
	}
	return cache, nil
}

func saveCache(cacheFile string, cache *CacheData) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.WriteFile(cacheFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// seedKnowledgeBase merges every changed document of dir into the stored
// knowledge base. Later files override entries of earlier ones with the same id.
func seedKnowledgeBase(ctx context.Context, dir, cacheFile string, force bool, store repository.KnowledgeStore, logger *zap.Logger) error {
	cache, err := loadCache(cacheFile)
	if err != nil {
		logger.Warn("Failed to load cache, will process all files", zap.Error(err))
		cache = &CacheData{ProcessedFiles: make(map[string]ProcessedFile)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}

	current, err := store.Load(ctx)
	if err != nil {
		logger.Info("No stored knowledge base, starting empty", zap.Error(err))
		current = models.NewKnowledgeBase()
	}

	now := time.Now()
	changed := 0
	for _, path := range files {
		if strings.HasPrefix(filepath.Base(path), ".") {
			continue
		}
		fileHash, err := calculateFileHash(path)
		if err != nil {
			logger.Warn("Failed to hash file, skipping", zap.String("path", path), zap.Error(err))
			continue
		}
		if cached, ok := cache.ProcessedFiles[path]; ok && cached.FileHash == fileHash && !force {
			logger.Info("File already imported, skipping",
				zap.String("path", path),
				zap.Time("processed_at", cached.ProcessedAt),
			)
			continue
		}

		doc, err := repository.NewFileKnowledgeStore(path, false, logger).Load(ctx)
		if err != nil {
			logger.Error("Failed to read knowledge base document", zap.String("path", path), zap.Error(err))
			continue
		}
		merge(current, doc)
		changed++

		cache.ProcessedFiles[path] = ProcessedFile{FilePath: path, FileHash: fileHash, ProcessedAt: now}
		logger.Info("Knowledge base document imported",
			zap.String("path", path),
			zap.Int("categories", doc.Categories.Len()),
			zap.Int("faq", doc.Faq.Len()),
		)
	}

	if changed == 0 {
		logger.Info("Nothing to import")
		return nil
	}
	if err := store.Save(ctx, current); err != nil {
		return err
	}

	if err := saveCache(cacheFile, cache); err != nil {
		logger.Warn("Failed to save cache", zap.Error(err))
	}
	return nil
}

func merge(dst, src *models.KnowledgeBase) {
	for _, e := range src.Categories.Entries() {
		dst.Categories.Put(e)
	}
	for _, e := range src.Faq.Entries() {
		dst.Faq.Put(e)
	}
	if !src.Contact.IsZero() {
		dst.Contact = src.Contact
	}
	for k, v := range src.Metadata {
		if dst.Metadata == nil {
			dst.Metadata = make(map[string]interface{})
		}
		dst.Metadata[k] = v
	}
}
