// Package matcher routes an utterance to the best knowledge base entry.
//
// The heuristic path normalizes the utterance once and scores every category,
// then every FAQ, by keywords, example questions and variations. An optional
// classifier is consulted first and wins whenever it clears the threshold.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"faqbot/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNoKnowledgeBase = errors.New("knowledge base is missing")

// Weights combines the three heuristic signals. They must sum to 1.
type Weights struct {
	Keyword   float64
	Question  float64
	Variation float64
}

var DefaultWeights = Weights{Keyword: 0.3, Question: 0.5, Variation: 0.2}

func (w Weights) Validate() error {
	if w.Keyword < 0 || w.Question < 0 || w.Variation < 0 {
		return fmt.Errorf("weights must be non-negative: %+v", w)
	}
	if math.Abs(w.Keyword+w.Question+w.Variation-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1: %+v", w)
	}
	return nil
}

type Option func(*Matcher)

func WithClassifier(c OptionalClassifier) Option {
	return func(m *Matcher) { m.classifier = c }
}

func WithGate(g Gate) Option {
	return func(m *Matcher) { m.gate = g }
}

func WithWeights(w Weights) Option {
	return func(m *Matcher) { m.weights = w }
}

// WithWorkers bounds the goroutines used to score entries. 1 scores sequentially.
func WithWorkers(n int) Option {
	return func(m *Matcher) { m.workers = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

type Matcher struct {
	normalizer *Normalizer
	scorer     *Scorer
	classifier OptionalClassifier
	gate       Gate
	weights    Weights
	workers    int
	logger     *zap.Logger

	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	kb      *models.KnowledgeBase
	entries []compiledEntry
}

type compiledEntry struct {
	id         string
	kind       models.EntryKind
	entry      *models.Entry
	keywords   []NormalizedText
	questions  []NormalizedText
	variations []NormalizedText
}

// New builds a matcher over kb. The knowledge base must not be mutated afterwards;
// use Reload to install a new one.
func New(kb *models.KnowledgeBase, normalizer *Normalizer, opts ...Option) (*Matcher, error) {
	m := &Matcher{
		normalizer: normalizer,
		scorer:     NewScorer(normalizer),
		classifier: NoClassifier(),
		gate:       Gate{Threshold: DefaultThreshold},
		weights:    DefaultWeights,
		workers:    1,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.weights.Validate(); err != nil {
		return nil, err
	}
	if m.gate.Threshold < 0 || m.gate.Threshold > 1 {
		return nil, fmt.Errorf("threshold %.2f out of range [0,1]", m.gate.Threshold)
	}
	if m.workers < 1 {
		m.workers = 1
	}
	if err := m.Reload(kb); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload compiles kb and swaps it in. In-flight matches finish on the previous snapshot.
func (m *Matcher) Reload(kb *models.KnowledgeBase) error {
	if kb == nil {
		return ErrNoKnowledgeBase
	}
	if err := kb.Validate(); err != nil {
		return fmt.Errorf("invalid knowledge base: %w", err)
	}

	snap := &snapshot{kb: kb}
	for _, e := range kb.Categories.Entries() {
		snap.entries = append(snap.entries, compiledEntry{id: e.ID, kind: models.KindCategory, entry: e})
	}
	for _, e := range kb.Faq.Entries() {
		snap.entries = append(snap.entries, compiledEntry{id: models.FaqPrefix + e.ID, kind: models.KindFaq, entry: e})
	}

	m.forEach(len(snap.entries), func(i int) {
		ce := &snap.entries[i]
		ce.keywords = m.normalizer.NormalizeAll(ce.entry.Keywords)
		ce.questions = m.normalizer.NormalizeAll(ce.entry.Examples.Questions)
		ce.variations = m.normalizer.NormalizeAll(ce.entry.Examples.Variations)
	})

	m.snap.Store(snap)
	m.logger.Info("Knowledge base loaded",
		zap.Int("categories", kb.Categories.Len()),
		zap.Int("faq", kb.Faq.Len()),
	)
	return nil
}

// KnowledgeBase returns the snapshot currently used for matching.
func (m *Matcher) KnowledgeBase() *models.KnowledgeBase {
	return m.snap.Load().kb
}

func (m *Matcher) Threshold() float64 {
	return m.gate.Threshold
}

// GetEntry is a read accessor on the current snapshot; it does no scoring.
func (m *Matcher) GetEntry(kind models.EntryKind, id string) (*models.Entry, bool) {
	return m.snap.Load().kb.Lookup(kind, id)
}

// FindBestMatch returns the accepted decision for utterance, or NoMatch.
func (m *Matcher) FindBestMatch(ctx context.Context, utterance string) MatchResult {
	snap := m.snap.Load()
	m.logger.Debug("Analyzing utterance", zap.String("utterance", utterance))

	if res, ok := m.classify(ctx, snap, utterance); ok {
		return res
	}

	in := m.normalizer.Normalize(utterance)
	scores := m.score(snap, in)

	best, bestScore := -1, 0.0
	for i, s := range scores {
		if s.Final > bestScore {
			best, bestScore = i, s.Final
		}
	}

	if best < 0 || !m.gate.Accept(bestScore) {
		m.logger.Info("No match",
			zap.Float64("best_score", bestScore),
			zap.Float64("threshold", m.gate.Threshold),
		)
		return NoMatch()
	}

	ce := snap.entries[best]
	m.logger.Info("Best match",
		zap.String("entry_id", ce.id),
		zap.Float64("score", bestScore),
	)
	return MatchResult{
		EntryID: ce.id,
		Kind:    ce.kind,
		Score:   bestScore,
		Entry:   ce.entry,
		Path:    PathHeuristic,
	}
}

// Explain returns the heuristic breakdown for every entry, in iteration order.
func (m *Matcher) Explain(utterance string) []EntryScore {
	snap := m.snap.Load()
	return m.score(snap, m.normalizer.Normalize(utterance))
}

func (m *Matcher) classify(ctx context.Context, snap *snapshot, utterance string) (MatchResult, bool) {
	c, ok := m.classifier.Get()
	if !ok {
		return MatchResult{}, false
	}

	pred, err := c.Predict(ctx, utterance)
	if err != nil {
		m.logger.Warn("Classifier failed, using heuristic scoring", zap.Error(err))
		return MatchResult{}, false
	}
	confidence := clamp01(pred.Confidence)
	if confidence <= m.gate.Threshold || !m.gate.Accept(confidence) {
		return MatchResult{}, false
	}

	if strings.HasPrefix(pred.Label, models.FaqPrefix) {
		if e, ok := snap.kb.Faq.Get(strings.TrimPrefix(pred.Label, models.FaqPrefix)); ok {
			m.logger.Info("Intent detected by classifier",
				zap.String("entry_id", pred.Label),
				zap.Float64("score", confidence),
			)
			return MatchResult{EntryID: pred.Label, Kind: models.KindFaq, Score: confidence, Entry: e, Path: PathClassifier}, true
		}
	}
	if e, ok := snap.kb.Categories.Get(pred.Label); ok {
		m.logger.Info("Intent detected by classifier",
			zap.String("entry_id", pred.Label),
			zap.Float64("score", confidence),
		)
		return MatchResult{EntryID: pred.Label, Kind: models.KindCategory, Score: confidence, Entry: e, Path: PathClassifier}, true
	}

	m.logger.Warn("Classifier label not in knowledge base", zap.String("label", pred.Label))
	return MatchResult{}, false
}

func (m *Matcher) score(snap *snapshot, in NormalizedText) []EntryScore {
	scores := make([]EntryScore, len(snap.entries))
	m.forEach(len(snap.entries), func(i int) {
		ce := &snap.entries[i]
		s := EntryScore{
			EntryID:   ce.id,
			Kind:      ce.kind,
			Keyword:   m.scorer.keywordScore(in, ce.keywords),
			Question:  m.scorer.exampleScore(in, ce.questions),
			Variation: m.scorer.exampleScore(in, ce.variations),
		}
		s.Final = clamp01(s.Keyword*m.weights.Keyword +
			s.Question*m.weights.Question +
			s.Variation*m.weights.Variation)
		scores[i] = s

		m.logger.Debug("Entry scored",
			zap.String("entry_id", s.EntryID),
			zap.Float64("keyword", s.Keyword),
			zap.Float64("question", s.Question),
			zap.Float64("variation", s.Variation),
			zap.Float64("final", s.Final),
		)
	})
	return scores
}

// forEach runs fn for 0..n-1 on up to m.workers goroutines.
func (m *Matcher) forEach(n int, fn func(i int)) {
	if m.workers <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(m.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
