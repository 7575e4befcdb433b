package matcher

import "faqbot/internal/models"

// Path records which stage produced a decision.
type Path string

const (
	PathClassifier Path = "classifier"
	PathHeuristic  Path = "heuristic"
	PathNone       Path = "none"
)

// MatchResult is the matcher's decision. A KindNone result has a zero score
// and no entry. FAQ ids carry models.FaqPrefix.
type MatchResult struct {
	EntryID string
	Kind    models.EntryKind
	Score   float64
	Entry   *models.Entry
	Path    Path
}

func NoMatch() MatchResult {
	return MatchResult{Kind: models.KindNone, Path: PathNone}
}

func (r MatchResult) Matched() bool {
	return r.Kind != models.KindNone && r.Entry != nil
}

// EntryScore is the per-entry breakdown of the heuristic path.
type EntryScore struct {
	EntryID   string
	Kind      models.EntryKind
	Keyword   float64
	Question  float64
	Variation float64
	Final     float64
}
