package domain

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts user-entered money text into a float. Grouping
// separators and surrounding whitespace are tolerated; the result must be a
// finite, non-negative number. Amounts are normalized here once and stored
// numerically everywhere else.
func ParseAmount(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, invalid("amount", "empty")
	}
	cleaned := strings.ReplaceAll(trimmed, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, invalid("amount", "not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid("amount", "not finite")
	}
	if v < 0 {
		return 0, invalid("amount", "negative")
	}
	return v, nil
}
