package matching

import (
	"strconv"
	"strings"
)

// DefaultRevenueMidpoint is used when a bracket cannot be parsed. It
// sits below every named bracket's midpoint so comparisons against
// unparseable input stay conservative.
const DefaultRevenueMidpoint = 500_000

// ParseRevenueBracket normalizes the heterogeneous textual revenue
// encodings seen in attendee profiles to a single numeric midpoint.
// Recognized forms (separators -, _, space and "to" are equivalent):
//
//	"1m_2m", "1m-2m", "1m to 2m"  -> midpoint of the range
//	"under_1m", "below_500k"      -> half the bound
//	"10m_plus", "5m+", "over_2m"  -> 1.5x the bound
//	"750k", "2.5m", "1000000"     -> the value itself
//
// Anything else falls back to DefaultRevenueMidpoint.
func ParseRevenueBracket(s string) float64 {
	norm := normalizeBracket(s)
	if norm == "" {
		return DefaultRevenueMidpoint
	}

	parts := strings.Split(norm, "_")

	// "under_X" / "below_X" / "less_than_X"
	switch parts[0] {
	case "under", "below":
		if len(parts) == 2 {
			if v, ok := parseMoney(parts[1]); ok {
				return v / 2
			}
		}
		return DefaultRevenueMidpoint
	case "less":
		if len(parts) == 3 && parts[1] == "than" {
			if v, ok := parseMoney(parts[2]); ok {
				return v / 2
			}
		}
		return DefaultRevenueMidpoint
	case "over", "above":
		if len(parts) == 2 {
			if v, ok := parseMoney(parts[1]); ok {
				return v * 1.5
			}
		}
		return DefaultRevenueMidpoint
	}

	// "X_plus"
	if len(parts) == 2 && parts[1] == "plus" {
		if v, ok := parseMoney(parts[0]); ok {
			return v * 1.5
		}
		return DefaultRevenueMidpoint
	}

	// "X_Y" and "X_to_Y" ranges
	if len(parts) == 3 && parts[1] == "to" {
		parts = []string{parts[0], parts[2]}
	}
	if len(parts) == 2 {
		lo, okLo := parseMoney(parts[0])
		hi, okHi := parseMoney(parts[1])
		if okLo && okHi {
			return (lo + hi) / 2
		}
		return DefaultRevenueMidpoint
	}

	// Single value.
	if len(parts) == 1 {
		if v, ok := parseMoney(parts[0]); ok {
			return v
		}
	}

	return DefaultRevenueMidpoint
}

func normalizeBracket(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "+") + plusSuffix(s)
	for _, sep := range []string{"-", "/", " "} {
		s = strings.ReplaceAll(s, sep, "_")
	}
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

func plusSuffix(s string) string {
	if strings.HasSuffix(s, "+") {
		return "_plus"
	}
	return ""
}

// parseMoney parses "750k", "2.5m", "1b" or a plain number.
func parseMoney(s string) (float64, bool) {
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, false
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'k':
		mult = 1e3
		s = s[:len(s)-1]
	case 'm':
		mult = 1e6
		s = s[:len(s)-1]
	case 'b':
		mult = 1e9
		s = s[:len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v * mult, true
}
