// Package bootstrap wires configuration into stores, the matcher and its
// optional GigaChat backends. It is shared by the server and the CLI tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"faqbot/internal/classifier"
	"faqbot/internal/matcher"
	"faqbot/internal/models"
	"faqbot/internal/nlp"
	"faqbot/internal/repository"
	"faqbot/internal/service"
	"faqbot/pkg/config"
	"faqbot/pkg/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Stores holds the persistence backends selected by KNOWLEDGE_STORE. DB is
// nil for the file store.
type Stores struct {
	Knowledge     repository.KnowledgeStore
	Users         repository.UserStore
	Conversations repository.ConversationStore
	DB            *pgxpool.Pool
}

func (s *Stores) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	if cfg.Knowledge.Store != config.StorePostgres {
		return &Stores{
			Knowledge:     repository.NewFileKnowledgeStore(cfg.Knowledge.Path, cfg.Knowledge.CreateDefault, logger),
			Users:         repository.NewMemoryUserStore(),
			Conversations: repository.NewMemoryConversationStore(cfg.Chat.HistorySize * 100),
		}, nil
	}

	db, err := postgres.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Stores{
		Knowledge:     repository.NewKnowledgeRepository(db, logger),
		Users:         repository.NewUserRepository(db, logger),
		Conversations: repository.NewConversationRepository(db, logger),
		DB:            db,
	}, nil
}

// LoadKnowledgeBase loads from store, seeding the default knowledge base into
// an empty database when createDefault is set. The file store handles its own
// defaults.
func LoadKnowledgeBase(ctx context.Context, store repository.KnowledgeStore, createDefault bool, logger *zap.Logger) (*models.KnowledgeBase, error) {
	kb, err := store.Load(ctx)
	if err == nil {
		return kb, nil
	}
	if !createDefault || !errors.Is(err, repository.ErrKnowledgeBaseNotFound) {
		return nil, err
	}

	kb = repository.DefaultKnowledgeBase()
	if err := store.Save(ctx, kb); err != nil {
		return nil, err
	}
	logger.Info("Default knowledge base stored")
	return kb, nil
}

// Engine is the matcher together with the GigaChat services it may depend on.
type Engine struct {
	Matcher    *matcher.Matcher
	LLM        *service.LLMService
	Embeddings *service.EmbeddingService
}

func (e *Engine) Close() error {
	if e.LLM != nil {
		if err := e.LLM.Close(); err != nil {
			return fmt.Errorf("failed to close GigaChat client: %w", err)
		}
	}
	return nil
}

// Track keeps GigaChat classifier labels in sync with knowledge base changes.
func (e *Engine) Track(knowledge *service.KnowledgeService) {
	if e.LLM != nil {
		knowledge.OnChange(e.LLM.SetLabels)
	}
}

func NewEngine(ctx context.Context, cfg *config.Config, kb *models.KnowledgeBase, logger *zap.Logger) (*Engine, error) {
	lex, err := loadLexicon(&cfg.NLP)
	if err != nil {
		return nil, err
	}

	engine := &Engine{}
	var vectorizer nlp.Vectorizer
	switch cfg.NLP.Vectorizer {
	case "gigachat":
		engine.Embeddings = service.NewEmbeddingService(&cfg.GigaChat, logger)
		cached, err := nlp.NewCachedVectorizer(engine.Embeddings, cfg.NLP.VectorCacheSize)
		if err != nil {
			return nil, err
		}
		vectorizer = cached
	default:
		vectorizer = nlp.NewHashingVectorizer(cfg.NLP.Dimensions)
	}
	normalizer := matcher.NewNormalizer(nlp.NewLexiconAnnotator(lex, vectorizer), lex)

	clf, err := engine.newClassifier(ctx, cfg, kb, logger)
	if err != nil {
		return nil, err
	}

	m, err := matcher.New(kb, normalizer,
		matcher.WithClassifier(clf),
		matcher.WithGate(matcher.Gate{Threshold: cfg.Matcher.Threshold}),
		matcher.WithWeights(matcher.Weights{
			Keyword:   cfg.Matcher.KeywordWeight,
			Question:  cfg.Matcher.QuestionWeight,
			Variation: cfg.Matcher.VariationWeight,
		}),
		matcher.WithWorkers(cfg.Matcher.Workers),
		matcher.WithLogger(logger),
	)
	if err != nil {
		if cerr := engine.Close(); cerr != nil {
			logger.Warn("Failed to release engine", zap.Error(cerr))
		}
		return nil, fmt.Errorf("failed to build matcher: %w", err)
	}
	engine.Matcher = m

	logger.Info("Matcher ready",
		zap.String("language", cfg.NLP.Language),
		zap.String("vectorizer", cfg.NLP.Vectorizer),
		zap.String("classifier", cfg.Classifier.Kind),
		zap.Float64("threshold", cfg.Matcher.Threshold),
	)
	return engine, nil
}

func (e *Engine) newClassifier(ctx context.Context, cfg *config.Config, kb *models.KnowledgeBase, logger *zap.Logger) (matcher.OptionalClassifier, error) {
	switch cfg.Classifier.Kind {
	case config.ClassifierPatterns:
		var (
			c   *classifier.PatternClassifier
			err error
		)
		if cfg.Classifier.PatternsPath != "" {
			c, err = classifier.LoadPatterns(cfg.Classifier.PatternsPath)
		} else {
			c, err = classifier.DefaultPatternClassifier()
		}
		if err != nil {
			return matcher.NoClassifier(), err
		}
		logger.Info("Pattern classifier loaded", zap.Strings("labels", c.Labels()))
		return matcher.SomeClassifier(c), nil
	case config.ClassifierGigaChat:
		llm, err := service.NewLLMService(ctx, &cfg.GigaChat, logger)
		if err != nil {
			return matcher.NoClassifier(), err
		}
		llm.SetLabels(kb)
		e.LLM = llm
		return matcher.SomeClassifier(llm), nil
	default:
		return matcher.NoClassifier(), nil
	}
}

func loadLexicon(cfg *config.NLPConfig) (*nlp.Lexicon, error) {
	if cfg.LexiconPath != "" {
		return nlp.LoadLexicon(cfg.LexiconPath)
	}
	return nlp.DefaultLexicon(cfg.Language)
}
