package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	GigaChat   GigaChatConfig
	Knowledge  KnowledgeConfig
	Matcher    MatcherConfig
	NLP        NLPConfig
	Classifier ClassifierConfig
	Chat       ChatConfig
	Admin      AdminConfig
	Logger     LoggerConfig
}

type LoggerConfig struct {
	Level  string
	Format string // json or console
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
	Model              string
	EmbeddingModel     string
	Timeout            time.Duration
}

// Store values for KnowledgeConfig.Store.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

type KnowledgeConfig struct {
	Store         string
	Path          string
	CreateDefault bool
	Watch         bool
}

type MatcherConfig struct {
	Threshold       float64
	KeywordWeight   float64
	QuestionWeight  float64
	VariationWeight float64
	Workers         int
}

type NLPConfig struct {
	Language        string
	LexiconPath     string
	Vectorizer      string // hashing or gigachat
	Dimensions      int
	VectorCacheSize int
}

// Kind values for ClassifierConfig.Kind.
const (
	ClassifierNone     = "none"
	ClassifierPatterns = "patterns"
	ClassifierGigaChat = "gigachat"
)

type ClassifierConfig struct {
	Kind         string
	PatternsPath string
}

type ChatConfig struct {
	HistorySize     int
	Seed            int64
	LogConversation bool
}

// AdminConfig seeds the first administrator when the user store is empty.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work the same way
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(p.int("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(p.int("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "faqbot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxConns:        int32(p.int("DB_MAX_CONNS", 10)),
			MinConns:        int32(p.int("DB_MIN_CONNS", 1)),
			MaxConnLifetime: time.Duration(p.int("DB_MAX_CONN_LIFETIME_MINUTES", 60)) * time.Minute,
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(p.int("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
			RefreshExp: time.Duration(p.int("JWT_REFRESH_EXPIRATION_HOURS", 168)) * time.Hour,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: p.bool("GIGACHAT_INSECURE_SKIP_VERIFY", true),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			EmbeddingModel:     getEnv("GIGACHAT_EMBEDDING_MODEL", "Embeddings"),
			Timeout:            time.Duration(p.int("GIGACHAT_TIMEOUT", 30)) * time.Second,
		},
		Knowledge: KnowledgeConfig{
			Store:         strings.ToLower(getEnv("KNOWLEDGE_STORE", StoreFile)),
			Path:          getEnv("KNOWLEDGE_PATH", "data/knowledge_base.json"),
			CreateDefault: p.bool("KNOWLEDGE_CREATE_DEFAULT", true),
			Watch:         p.bool("KNOWLEDGE_WATCH", false),
		},
		Matcher: MatcherConfig{
			Threshold:       p.float("MATCHER_THRESHOLD", 0.5),
			KeywordWeight:   p.float("MATCHER_KEYWORD_WEIGHT", 0.3),
			QuestionWeight:  p.float("MATCHER_QUESTION_WEIGHT", 0.5),
			VariationWeight: p.float("MATCHER_VARIATION_WEIGHT", 0.2),
			Workers:         p.int("MATCHER_WORKERS", 4),
		},
		NLP: NLPConfig{
			Language:        strings.ToLower(getEnv("NLP_LANGUAGE", "fr")),
			LexiconPath:     getEnv("NLP_LEXICON_PATH", ""),
			Vectorizer:      strings.ToLower(getEnv("NLP_VECTORIZER", "hashing")),
			Dimensions:      p.int("NLP_DIMENSIONS", 512),
			VectorCacheSize: p.int("NLP_VECTOR_CACHE_SIZE", 4096),
		},
		Classifier: ClassifierConfig{
			Kind:         strings.ToLower(getEnv("CLASSIFIER", ClassifierNone)),
			PatternsPath: getEnv("CLASSIFIER_PATTERNS_PATH", ""),
		},
		Chat: ChatConfig{
			HistorySize:     p.int("CHAT_HISTORY_SIZE", 50),
			Seed:            int64(p.int("CHAT_SEED", 0)),
			LogConversation: p.bool("CHAT_LOG_CONVERSATION", false),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", ""),
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := p.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Knowledge.Store {
	case StoreFile, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("KNOWLEDGE_STORE must be %q or %q, got %q", StoreFile, StorePostgres, c.Knowledge.Store))
	}
	switch c.Classifier.Kind {
	case ClassifierNone, ClassifierPatterns, ClassifierGigaChat:
	default:
		errs = append(errs, fmt.Errorf("unknown CLASSIFIER %q", c.Classifier.Kind))
	}
	switch c.NLP.Vectorizer {
	case "hashing", "gigachat":
	default:
		errs = append(errs, fmt.Errorf("unknown NLP_VECTORIZER %q", c.NLP.Vectorizer))
	}
	if (c.Classifier.Kind == ClassifierGigaChat || c.NLP.Vectorizer == "gigachat") && c.GigaChat.APIKey == "" {
		errs = append(errs, errors.New("GIGACHAT_API_KEY is required for the gigachat classifier or vectorizer"))
	}
	if c.Matcher.Threshold < 0 || c.Matcher.Threshold > 1 {
		errs = append(errs, fmt.Errorf("MATCHER_THRESHOLD must be in [0,1], got %v", c.Matcher.Threshold))
	}
	if c.NLP.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("NLP_DIMENSIONS must be positive, got %d", c.NLP.Dimensions))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser reads typed variables and remembers every malformed one.
type parser struct {
	errs []error
}

func (p *parser) int(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return v
}

func (p *parser) float(key string, def float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, raw))
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return def
	}
	return v
}

func (p *parser) err() error {
	return errors.Join(p.errs...)
}
