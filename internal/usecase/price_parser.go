package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// numericPricePattern extracts the leading dollars-and-cents value from a
// cleaned price string.
var numericPricePattern = regexp.MustCompile(`(\d+(?:\.\d{2})?)`)

// ParsePrice normalizes heterogeneous price representations to a float.
// Numbers pass through; strings are stripped of currency markers, range
// suffixes and "from" prefixes before the first numeric run is taken.
// Anything unrecognizable yields 0.0 - callers must treat a non-positive
// price as "no usable price" and discard the candidate.
func ParsePrice(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		return parsePriceString(v)
	}
	return 0.0
}

func parsePriceString(s string) float64 {
	cleaned := strings.ReplaceAll(s, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "AUD", "")
	cleaned = strings.TrimSpace(cleaned)

	// Price ranges: take the first segment
	if idx := strings.Index(cleaned, "-"); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}

	// "From $49.00" style prefixes
	if len(cleaned) >= 4 && strings.EqualFold(cleaned[:4], "from") {
		cleaned = strings.TrimSpace(cleaned[4:])
	}

	match := numericPricePattern.FindString(cleaned)
	if match == "" {
		return 0.0
	}

	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0.0
	}

	return price
}
