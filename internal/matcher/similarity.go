package matcher

import (
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Ratio is 2*LCS/(|a|+|b|) over runes. The LCS need not be contiguous, so
// the value is never below difflib's matching-blocks ratio and can exceed it.
// It is 0 when either side is empty, so empty input never scores.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	return 2 * float64(edlib.LCS(a, b)) / float64(total)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
