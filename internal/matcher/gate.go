package matcher

import "fmt"

const DefaultThreshold = 0.5

// Gate accepts a decision when its score reaches the threshold.
type Gate struct {
	Threshold float64
}

func NewGate(threshold float64) (Gate, error) {
	if threshold < 0 || threshold > 1 {
		return Gate{}, fmt.Errorf("threshold %.2f out of range [0,1]", threshold)
	}
	return Gate{Threshold: threshold}, nil
}

func (g Gate) Accept(score float64) bool {
	return score >= g.Threshold
}
