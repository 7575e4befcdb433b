package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"faqbot/internal/matcher"
	"faqbot/internal/models"
	"faqbot/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

const classifierInstruction = `Ты классификатор намерений для чат-бота юридических объявлений (annonces légales).
Пользователь пишет по-французски. Выбери ровно одну метку из списка, которая лучше всего описывает вопрос.

Верни ТОЛЬКО JSON без markdown разметки:
{"label": "<метка из списка или none>", "confidence": <число от 0 до 1>}

Если ни одна метка не подходит, верни {"label": "none", "confidence": 0}.`

// labelInfo describes one knowledge base entry to the model.
type labelInfo struct {
	ID       string
	Name     string
	Keywords []string
}

// LLMService classifies utterances with GigaChat. The label set follows the
// knowledge base through SetLabels.
type LLMService struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	config *config.GigaChatConfig
	logger *zap.Logger

	mu     sync.RWMutex
	labels []labelInfo
}

func NewLLMService(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*LLMService, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = classifierInstruction
	model.Temperature = 0.1

	logger.Info("GigaChat classifier ready", zap.String("model", cfg.Model))
	return &LLMService{
		client: client,
		model:  model,
		config: cfg,
		logger: logger,
	}, nil
}

// SetLabels replaces the label set with the entries of kb. FAQ labels carry
// the faq_ prefix so the matcher resolves them against the FAQ.
func (s *LLMService) SetLabels(kb *models.KnowledgeBase) {
	labels := buildLabels(kb)
	s.mu.Lock()
	s.labels = labels
	s.mu.Unlock()
	s.logger.Debug("Classifier labels updated", zap.Int("labels", len(labels)))
}

func buildLabels(kb *models.KnowledgeBase) []labelInfo {
	var labels []labelInfo
	for _, e := range kb.Categories.Entries() {
		labels = append(labels, labelInfo{ID: e.ID, Name: e.DisplayName(), Keywords: e.Keywords})
	}
	for _, e := range kb.Faq.Entries() {
		labels = append(labels, labelInfo{ID: models.FaqPrefix + e.ID, Name: e.DisplayName(), Keywords: e.Keywords})
	}
	return labels
}

// Predict asks the model for the best label. An empty label set yields a zero prediction.
func (s *LLMService) Predict(ctx context.Context, text string) (matcher.Prediction, error) {
	s.mu.RLock()
	labels := s.labels
	s.mu.RUnlock()

	text = strings.TrimSpace(text)
	if len(labels) == 0 || text == "" {
		return matcher.Prediction{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.model.Generate(ctx, []gigago.Message{
		{Role: gigago.RoleUser, Content: buildClassifierPrompt(labels, text)},
	})
	if err != nil {
		return matcher.Prediction{}, fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return matcher.Prediction{}, fmt.Errorf("no response from LLM")
	}

	pred, err := parseClassification(resp.Choices[0].Message.Content, labels)
	if err != nil {
		return matcher.Prediction{}, err
	}
	s.logger.Debug("GigaChat prediction",
		zap.String("label", pred.Label),
		zap.Float64("confidence", pred.Confidence),
	)
	return pred, nil
}

func buildClassifierPrompt(labels []labelInfo, text string) string {
	var b strings.Builder
	b.WriteString("Метки:\n")
	for _, l := range labels {
		fmt.Fprintf(&b, "- %s: %s", l.ID, l.Name)
		if len(l.Keywords) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(l.Keywords, ", "))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\nВопрос пользователя:\n%s", text)
	return b.String()
}

// parseClassification extracts the JSON object from the model output. Labels
// outside the set, or "none", become a zero prediction.
func parseClassification(content string, labels []labelInfo) (matcher.Prediction, error) {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end < start {
		return matcher.Prediction{}, fmt.Errorf("invalid response format: %s", content)
	}

	var out struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &out); err != nil {
		return matcher.Prediction{}, fmt.Errorf("failed to parse JSON response: %w, content: %s", err, content)
	}

	label := strings.TrimSpace(out.Label)
	known := false
	for _, l := range labels {
		if l.ID == label {
			known = true
			break
		}
	}
	if !known {
		return matcher.Prediction{}, nil
	}

	conf := out.Confidence
	switch {
	case conf < 0:
		conf = 0
	case conf > 1:
		conf = 1
	}
	return matcher.Prediction{Label: label, Confidence: conf}, nil
}

func (s *LLMService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
