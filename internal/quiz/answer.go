package quiz

import (
	"math"
	"strconv"
	"strings"
)

// numericMatch compares numerically when both sides parse as numbers and
// falls back to a case-insensitive comparison otherwise.
func numericMatch(expected, given string) bool {
	e, errE := strconv.ParseFloat(strings.TrimSpace(expected), 64)
	g, errG := strconv.ParseFloat(strings.TrimSpace(given), 64)
	if errE == nil && errG == nil {
		return math.Abs(e-g) < 1e-9
	}
	return foldMatch(expected, given)
}

// foldMatch compares trimmed strings case-insensitively.
func foldMatch(expected, given string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(given))
}

// typedMatch requires an exact match after collapsing runs of whitespace.
func typedMatch(expected, given string) bool {
	return strings.Join(strings.Fields(expected), " ") == strings.Join(strings.Fields(given), " ")
}
