package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"faqbot/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	gigaChatOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	gigaChatBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
)

// EmbeddingService calls the GigaChat embeddings endpoint. It implements
// nlp.Vectorizer so the matcher can use GigaChat vectors for question
// similarity.
type EmbeddingService struct {
	httpClient *http.Client
	config     *config.GigaChatConfig
	logger     *zap.Logger
	oauthURL   string
	baseURL    string
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewEmbeddingService(cfg *config.GigaChatConfig, logger *zap.Logger) *EmbeddingService {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &EmbeddingService{
		httpClient: httpClient,
		config:     cfg,
		logger:     logger,
		oauthURL:   gigaChatOAuthURL,
		baseURL:    gigaChatBaseURL,
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	ExpiresIn   int64  `json:"expires_in"`
}

// accessToken returns the cached token, fetching a new one when it is missing
// or about to expire.
func (s *EmbeddingService) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(time.Minute).Before(s.expiresAt) {
		return s.token, nil
	}

	data := url.Values{}
	data.Set("scope", s.config.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.oauthURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.Header.Set("Authorization", "Basic "+s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to get access token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}

	s.token = tokenResp.AccessToken
	switch {
	case tokenResp.ExpiresAt > 0:
		s.expiresAt = time.UnixMilli(tokenResp.ExpiresAt)
	case tokenResp.ExpiresIn > 0:
		s.expiresAt = s.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	default:
		s.expiresAt = s.now().Add(30 * time.Minute)
	}
	return s.token, nil
}

func (s *EmbeddingService) resetToken() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("embeddings request failed: status %d, body: %s", e.code, e.body)
}

// Embed returns one vector per text, in input order. An expired token is
// refreshed once.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := s.embed(ctx, texts)
	if se, ok := err.(*statusError); ok && se.code == http.StatusUnauthorized {
		s.resetToken()
		vectors, err = s.embed(ctx, texts)
	}
	return vectors, err
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(embeddingRequest{Model: s.config.EmbeddingModel, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embeddings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vectors, nil
}

// Vectorize embeds a single text. Errors are logged and yield nil, which the
// annotator treats as "no vector".
func (s *EmbeddingService) Vectorize(text string) []float32 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	vectors, err := s.Embed(ctx, []string{text})
	if err != nil {
		s.logger.Warn("Failed to embed text", zap.Error(err))
		return nil
	}
	return vectors[0]
}
