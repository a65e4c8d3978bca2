package domain

// RetailerProfile is the static configuration for one retailer's search page.
// Profiles are built once at startup and never mutated afterwards.
type RetailerProfile struct {
	Name           string   `json:"name"`
	BaseURL        string   `json:"baseUrl"`
	SearchURL      string   `json:"searchUrl"` // template containing {query}
	PriceSelectors []string `json:"priceSelectors"`
	TitleSelectors []string `json:"titleSelectors"`
	LinkSelectors  []string `json:"linkSelectors"`
	MatchThreshold float64  `json:"matchThreshold"`
	HomeRetailer   bool     `json:"homeRetailer"` // excluded from comparison fan-out
}

// Candidate is a prospective product listing produced by an extractor.
// Candidates are transient; anything carried past extraction has Price > 0.
type Candidate struct {
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	URL          string  `json:"url"`
	Availability string  `json:"availability,omitempty"`
	Brand        string  `json:"brand,omitempty"`
	Model        string  `json:"model,omitempty"`
}

// MatchResult is the outcome of selecting a candidate for a query.
type MatchResult struct {
	Candidate Candidate `json:"candidate"`
	Score     float64   `json:"score"`
}

// Extraction method tags carried on ComparisonResult.
const (
	MethodStructured = "structured"
	MethodHeuristic  = "heuristic"
)

// ComparisonResult is one retailer's price compared against a reference price.
type ComparisonResult struct {
	Retailer           string  `json:"retailer"`
	ProductName        string  `json:"productName"`
	Price              float64 `json:"price"`
	URL                string  `json:"url"`
	PriceDifference    float64 `json:"priceDifference"` // absolute difference
	IsCheaper          bool    `json:"isCheaper"`
	PotentialSavings   float64 `json:"potentialSavings"` // reference minus price, 0 when not cheaper
	PriceMatchEligible bool    `json:"priceMatchEligible"`
	ExtractionMethod   string  `json:"extractionMethod"`
}

// ComparisonSummary is the presentation-ready ranking of comparison results.
type ComparisonSummary struct {
	ProductName    string             `json:"productName"`
	ReferencePrice float64            `json:"referencePrice"`
	Comparisons    []ComparisonResult `json:"comparisons"`
	BestPriceMatch *ComparisonResult  `json:"bestPriceMatch,omitempty"`
	BetterPrice    bool               `json:"betterPriceFound"`
}

// RawProduct is one record returned by the structured extraction service,
// prior to normalization into a Candidate.
type RawProduct struct {
	Name         string `json:"name"`
	Title        string `json:"title,omitempty"`
	Price        any    `json:"price"` // string or number, the service is not consistent
	URL          string `json:"url,omitempty"`
	Availability string `json:"availability,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Model        string `json:"model,omitempty"`
}

// FetchResult is the outcome of a content fetch. Failure is a value, not a
// panic, so the fallback chain downstream can act on it.
type FetchResult struct {
	Success  bool   `json:"success"`
	Markdown string `json:"markdown,omitempty"`
	HTML     string `json:"html,omitempty"`
	URL      string `json:"url"`
	Error    string `json:"error,omitempty"`
}

// ExtractResult is the outcome of a structured extraction call.
type ExtractResult struct {
	Success  bool         `json:"success"`
	Products []RawProduct `json:"products,omitempty"`
	URL      string       `json:"url"`
	Error    string       `json:"error,omitempty"`
}
