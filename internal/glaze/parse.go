package glaze

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloat parses s as a float and returns def when s is empty,
// malformed, NaN or infinite. The second return value reports whether
// def was substituted, so callers can log the recovery.
func ParseFloat(s string, def float64) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def, true
	}
	return v, false
}

// FormatFloat renders v with the shortest representation that parses back
// to the same value.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
