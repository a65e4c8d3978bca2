package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)
	queryCharsRegex      = regexp.MustCompile(`[^\w\s-]`)
	modelNumberRegex     = regexp.MustCompile(`[a-z]\d|\d[a-z]`)
	capacityRegex        = regexp.MustCompile(`^\d+(gb|tb|mg|kg|inch|"|')`)
	digitRunRegex        = regexp.MustCompile(`\d+`)
)

// knownBrands are retailer-agnostic brand tokens that anchor a match.
// Extend as new product categories are tracked.
var knownBrands = map[string]bool{
	"tp-link": true, "tplink": true, "apple": true, "samsung": true,
	"sony": true, "lg": true, "hp": true, "dell": true, "lenovo": true,
	"asus": true, "acer": true, "microsoft": true, "google": true,
	"amazon": true, "netgear": true, "linksys": true, "cisco": true,
	"nvidia": true, "intel": true, "amd": true, "logitech": true,
	"razer": true, "corsair": true, "belkin": true,
}

// domainTerms are product-category words that distinguish listings better
// than generic vocabulary does.
var domainTerms = map[string]bool{
	"wifi": true, "mesh": true, "router": true, "modem": true,
	"wireless": true, "ethernet": true, "bluetooth": true, "usb": true,
	"hdmi": true, "laptop": true, "desktop": true, "tablet": true,
	"phone": true, "headphones": true, "speaker": true, "camera": true,
	"monitor": true, "keyboard": true, "mouse": true, "gaming": true,
}

// searchStopWords are dropped when building a retailer-agnostic search query.
var searchStopWords = map[string]bool{
	"the": true, "and": true, "or": true, "but": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "a": true, "an": true,
}

// brandDilutionTerms are home-retailer marketing terms that hurt searches
// on competitor sites.
var brandDilutionTerms = map[string]bool{
	"officeworks": true, "exclusive": true, "limited": true,
	"special": true, "edition": true,
}

// normalizeText lowercases, collapses every run of non-alphanumeric
// characters to a single space and trims. The result is stable under
// re-normalization.
func normalizeText(text string) string {
	if text == "" {
		return ""
	}
	normalized := nonAlphanumericRegex.ReplaceAllString(strings.ToLower(text), " ")
	return strings.Join(strings.Fields(normalized), " ")
}

// extractKeyTerms pulls brands, domain vocabulary, model codes and
// capacity tokens out of a normalized query. Generic words dilute naive
// word-overlap scoring; key terms anchor the match on what actually
// distinguishes one product from another.
func extractKeyTerms(normalizedQuery string) []string {
	var terms []string
	seen := make(map[string]bool)

	add := func(term string) {
		if term != "" && !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}

	for _, word := range strings.Fields(normalizedQuery) {
		word = strings.ToLower(strings.TrimSpace(word))
		if knownBrands[word] || domainTerms[word] {
			add(word)
		}
	}

	for _, word := range strings.Fields(normalizedQuery) {
		lower := strings.ToLower(word)
		// Model numbers mix letters and digits ("a17", "ipdmw128g")
		if modelNumberRegex.MatchString(lower) {
			add(lower)
		}
	}

	for _, word := range strings.Fields(normalizedQuery) {
		lower := strings.ToLower(word)
		if capacityRegex.MatchString(lower) {
			add(lower)
		}
	}

	return terms
}

// CleanSearchQuery reduces a full product name to a retailer-agnostic
// search query: stop words and home-retailer marketing terms are dropped,
// short tokens removed, and the result capped to the 8 most relevant words.
func CleanSearchQuery(productName string) string {
	if productName == "" {
		return ""
	}

	cleaned := queryCharsRegex.ReplaceAllString(strings.ToLower(productName), " ")

	var kept []string
	for _, word := range strings.Fields(cleaned) {
		if searchStopWords[word] || brandDilutionTerms[word] || len(word) <= 2 {
			continue
		}
		kept = append(kept, word)
	}

	if len(kept) > 8 {
		kept = kept[:8]
	}

	return strings.Join(kept, " ")
}
