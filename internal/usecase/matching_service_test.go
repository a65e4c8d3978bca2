package usecase

import (
	"math"
	"testing"

	"github.com/pricelens/backend/internal/domain"
)

func TestNewMatchingService(t *testing.T) {
	t.Run("creates service with provided threshold", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{DefaultThreshold: 0.3})
		if svc.DefaultThreshold() != 0.3 {
			t.Errorf("DefaultThreshold() = %v, want 0.3", svc.DefaultThreshold())
		}
	})

	t.Run("uses default threshold when zero", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{})
		if svc.DefaultThreshold() != 0.95 {
			t.Errorf("DefaultThreshold() = %v, want 0.95 (default)", svc.DefaultThreshold())
		}
	})

	t.Run("uses default threshold when negative", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{DefaultThreshold: -1})
		if svc.DefaultThreshold() != 0.95 {
			t.Errorf("DefaultThreshold() = %v, want 0.95 (default)", svc.DefaultThreshold())
		}
	})
}

func TestSelectBestMatch(t *testing.T) {
	svc := NewMatchingService(MatchConfig{DefaultThreshold: 0.3})

	t.Run("returns nil for no candidates", func(t *testing.T) {
		if got := svc.SelectBestMatch(nil, "apple ipad", 0.3); got != nil {
			t.Errorf("result = %+v, want nil", got)
		}
	})

	t.Run("discards candidates without a positive price", func(t *testing.T) {
		candidates := []domain.Candidate{
			{Title: "Apple iPad Mini 128GB", Price: 0},
			{Title: "Apple iPad Mini 128GB", Price: -5},
		}
		if got := svc.SelectBestMatch(candidates, "apple ipad mini 128gb", 0.3); got != nil {
			t.Errorf("result = %+v, want nil", got)
		}
	})

	t.Run("exact title scores high", func(t *testing.T) {
		candidates := []domain.Candidate{
			{Title: "Apple iPad Mini 128GB Wi-Fi", Price: 699},
		}
		got := svc.SelectBestMatch(candidates, "Apple iPad Mini 128GB Wi-Fi", 0.3)
		if got == nil {
			t.Fatal("result = nil, want match")
		}
		if got.Score < 0.9 {
			t.Errorf("Score = %v, want >= 0.9 for exact title", got.Score)
		}
	})

	t.Run("prefers closer match over cheaper mismatch", func(t *testing.T) {
		candidates := []domain.Candidate{
			{Title: "Samsung Galaxy Tab A9 64GB", Price: 229},
			{Title: "Apple iPad Mini 128GB Wi-Fi Space Grey", Price: 699},
		}
		got := svc.SelectBestMatch(candidates, "apple ipad mini 128gb", 0.3)
		if got == nil {
			t.Fatal("result = nil, want match")
		}
		if got.Candidate.Price != 699 {
			t.Errorf("selected %q at $%.2f, want the iPad at $699", got.Candidate.Title, got.Candidate.Price)
		}
	})

	t.Run("equal scores prefer the cheaper listing", func(t *testing.T) {
		candidates := []domain.Candidate{
			{Title: "Apple iPad Mini 128GB Wi-Fi", Price: 749},
			{Title: "Apple iPad Mini 128GB Wi-Fi", Price: 699},
		}
		got := svc.SelectBestMatch(candidates, "apple ipad mini 128gb wi-fi", 0.3)
		if got == nil {
			t.Fatal("result = nil, want match")
		}
		if got.Candidate.Price != 699 {
			t.Errorf("Price = %v, want 699 (cheaper of two identical titles)", got.Candidate.Price)
		}
	})

	t.Run("falls back to best candidate below thresholds", func(t *testing.T) {
		// A weak but non-zero scoring candidate should still come back via
		// the last-resort path rather than nothing at all.
		candidates := []domain.Candidate{
			{Title: "HDMI Cable Gold Plated 2m", Price: 15},
		}
		got := svc.SelectBestMatch(candidates, "apple ipad mini 128gb", 0.95)
		if got == nil {
			t.Fatal("result = nil, want the best-scoring candidate as fallback")
		}
		if got.Candidate.Title != "HDMI Cable Gold Plated 2m" {
			t.Errorf("Title = %q, want the only candidate", got.Candidate.Title)
		}
	})

	t.Run("zero threshold uses the service default", func(t *testing.T) {
		strict := NewMatchingService(MatchConfig{DefaultThreshold: 0.95})
		candidates := []domain.Candidate{
			{Title: "Apple iPad Mini 128GB Wi-Fi", Price: 699},
		}
		got := strict.SelectBestMatch(candidates, "Apple iPad Mini 128GB Wi-Fi", 0)
		if got == nil {
			t.Fatal("result = nil, want match")
		}
		if got.Score < 0.95 {
			t.Errorf("Score = %v, want >= 0.95 under the default threshold", got.Score)
		}
	})

	t.Run("repeated query numbers share the numeric weight", func(t *testing.T) {
		// A query repeating "20" twice with only one occurrence matched in
		// the title earns half the numeric weight, not all of it.
		candidate := domain.Candidate{Title: "20", Price: 10}
		got := svc.scoreCandidate("20 20", candidate, nil, wordSet("20 20"))
		want := similarityRatio("20 20", "20")*weightSimilarity +
			weightWordOverlap + 0.5*weightNumbers + priceSanityBonus
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("score = %v, want %v", got, want)
		}
	})

	t.Run("brand and model metadata raise the score", func(t *testing.T) {
		bare := []domain.Candidate{
			{Title: "iPad Mini 128GB Wi-Fi", Price: 699},
		}
		tagged := []domain.Candidate{
			{Title: "iPad Mini 128GB Wi-Fi", Price: 699, Brand: "Apple", Model: "Mini"},
		}
		query := "apple ipad mini 128gb"

		bareResult := svc.SelectBestMatch(bare, query, 0.2)
		taggedResult := svc.SelectBestMatch(tagged, query, 0.2)
		if bareResult == nil || taggedResult == nil {
			t.Fatal("expected matches for both candidate sets")
		}
		if taggedResult.Score <= bareResult.Score {
			t.Errorf("tagged score %v <= bare score %v, want metadata bonus applied",
				taggedResult.Score, bareResult.Score)
		}
	})
}

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		name string
		s1   string
		s2   string
		want float64
	}{
		{"identical", "apple ipad", "apple ipad", 1.0},
		{"both empty", "", "", 1.0},
		{"completely different length one", "a", "b", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := similarityRatio(tt.s1, tt.s2); got != tt.want {
				t.Errorf("similarityRatio(%q, %q) = %v, want %v", tt.s1, tt.s2, got, tt.want)
			}
		})
	}

	t.Run("symmetric", func(t *testing.T) {
		a := similarityRatio("apple ipad mini", "apple ipad")
		b := similarityRatio("apple ipad", "apple ipad mini")
		if a != b {
			t.Errorf("ratio not symmetric: %v vs %v", a, b)
		}
	})

	t.Run("ranges between zero and one", func(t *testing.T) {
		got := similarityRatio("tp link deco x20", "netgear orbi rbk352")
		if got < 0 || got > 1 {
			t.Errorf("ratio = %v, want within [0,1]", got)
		}
	})
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name string
		s1   string
		s2   string
		want int
	}{
		{"both empty", "", "", 0},
		{"one empty", "", "abc", 3},
		{"identical", "ipad", "ipad", 0},
		{"single substitution", "ipad", "ipod", 1},
		{"insertion", "ipad", "ipads", 1},
		{"classic", "kitten", "sitting", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := levenshteinDistance(tt.s1, tt.s2); got != tt.want {
				t.Errorf("levenshteinDistance(%q, %q) = %v, want %v", tt.s1, tt.s2, got, tt.want)
			}
		})
	}
}
