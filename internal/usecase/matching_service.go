package usecase

import (
	"log"
	"sort"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Signal weights for scoring. Each signal is normalized to at most its
// weight; the final sum is clamped to 1.0.
const (
	weightSimilarity     = 0.35 // sequence similarity of normalized strings
	weightKeyTerms       = 0.20 // key-term coverage in the title
	weightWordOverlap    = 0.25 // query words present in the title
	weightPartialOverlap = 0.10 // substring-level token matches
	weightNumbers        = 0.05 // numeric alignment (capacities, models)
	brandMetadataBonus   = 0.03
	modelMetadataBonus   = 0.03
	priceSanityBonus     = 0.02
	titleLengthBonus     = 0.02
)

// Threshold policy: the configured threshold never drops below scoreFloor,
// and the fallback pass uses fallbackFloor before the permissive last
// resort of taking the best-scoring candidate outright.
const (
	defaultMatchThreshold = 0.95
	scoreFloor            = 0.2
	fallbackFloor         = 0.15
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	DefaultThreshold   float64
	EnableDebugLogging bool
}

// MatchingService scores candidate listings against a product query and
// selects the most trustworthy one.
type MatchingService struct {
	defaultThreshold   float64
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	threshold := config.DefaultThreshold
	if threshold <= 0 {
		threshold = defaultMatchThreshold
	}

	return &MatchingService{
		defaultThreshold:   threshold,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// DefaultThreshold returns the threshold applied when a retailer profile
// does not override it.
func (s *MatchingService) DefaultThreshold() float64 {
	return s.defaultThreshold
}

// SelectBestMatch ranks candidates against the query and returns the best
// acceptable one, or nil when nothing is usable. Acceptance tries the
// configured threshold first (floored at 0.2), then a permissive 0.15
// fallback, then the single best-scoring candidate regardless - returning
// some plausible match beats returning none, since downstream presentation
// labels the result a comparison, not a guarantee.
func (s *MatchingService) SelectBestMatch(candidates []domain.Candidate, query string, threshold float64) *domain.MatchResult {
	if len(candidates) == 0 {
		return nil
	}
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	queryNormalized := normalizeText(query)
	queryWords := wordSet(queryNormalized)
	keyTerms := extractKeyTerms(queryNormalized)

	type scored struct {
		result domain.MatchResult
	}

	var ranked []scored
	for _, candidate := range candidates {
		if candidate.Price <= 0 {
			continue
		}

		score := s.scoreCandidate(queryNormalized, candidate, keyTerms, queryWords)
		if score <= 0 {
			continue
		}

		if s.enableDebugLogging {
			log.Printf("[MATCH] %q | score %.3f | $%.2f", candidate.Title, score, candidate.Price)
		}

		ranked = append(ranked, scored{result: domain.MatchResult{Candidate: candidate, Score: score}})
	}

	if len(ranked) == 0 {
		return nil
	}

	// Most similar first; among equal scores the cheapest listing wins
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].result.Score != ranked[j].result.Score {
			return ranked[i].result.Score > ranked[j].result.Score
		}
		return ranked[i].result.Candidate.Price < ranked[j].result.Candidate.Price
	})

	minScore := threshold
	if minScore < scoreFloor {
		minScore = scoreFloor
	}
	for i := range ranked {
		if ranked[i].result.Score >= minScore {
			return &ranked[i].result
		}
	}

	for i := range ranked {
		if ranked[i].result.Score >= fallbackFloor {
			return &ranked[i].result
		}
	}

	return &ranked[0].result
}

// scoreCandidate computes a confidence score in [0,1] for a (query,
// candidate) pair as a weighted sum of independent signals.
func (s *MatchingService) scoreCandidate(queryNormalized string, candidate domain.Candidate, keyTerms []string, queryWords map[string]bool) float64 {
	titleNormalized := normalizeText(candidate.Title)
	if titleNormalized == "" {
		return 0
	}

	titleWords := wordSet(titleNormalized)
	score := 0.0

	if queryNormalized != "" {
		score += similarityRatio(queryNormalized, titleNormalized) * weightSimilarity
	}

	if len(keyTerms) > 0 {
		matched := 0
		for _, term := range keyTerms {
			if strings.Contains(titleNormalized, term) {
				matched++
			}
		}
		score += float64(matched) / float64(len(keyTerms)) * weightKeyTerms
	}

	if len(queryWords) > 0 {
		overlap := 0
		for word := range queryWords {
			if titleWords[word] {
				overlap++
			}
		}
		score += float64(overlap) / float64(len(queryWords)) * weightWordOverlap

		// Partial matches catch spec strings and model fragments
		partial := 0
		for word := range queryWords {
			if len(word) < 3 {
				continue
			}
			for titleWord := range titleWords {
				if strings.Contains(titleWord, word) || strings.Contains(word, titleWord) {
					partial++
					break
				}
			}
		}
		score += float64(partial) / float64(len(queryWords)) * weightPartialOverlap
	}

	queryNumbers := digitRunRegex.FindAllString(queryNormalized, -1)
	if len(queryNumbers) > 0 {
		titleNumbers := make(map[string]bool)
		for _, n := range digitRunRegex.FindAllString(titleNormalized, -1) {
			titleNumbers[n] = true
		}
		matched := make(map[string]bool)
		for _, n := range queryNumbers {
			if titleNumbers[n] {
				matched[n] = true
			}
		}
		score += float64(len(matched)) / float64(len(queryNumbers)) * weightNumbers
	}

	if brand := normalizeText(candidate.Brand); brand != "" && strings.Contains(queryNormalized, brand) {
		score += brandMetadataBonus
	}
	if model := normalizeText(candidate.Model); model != "" && strings.Contains(queryNormalized, model) {
		score += modelMetadataBonus
	}

	if candidate.Price >= 1 && candidate.Price <= 10000 {
		score += priceSanityBonus
	}

	if n := len(titleWords); n >= 3 && n <= 15 {
		score += titleLengthBonus
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// similarityRatio approximates sequence similarity between two strings via
// edit distance, normalized to [0,1].
func similarityRatio(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	longest := len(s1)
	if len(s2) > longest {
		longest = len(s2)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(s1, s2))/float64(longest)
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	// Two rows instead of a full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}
