package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// ComparisonConfig holds configuration for the comparison service.
type ComparisonConfig struct {
	MaxRetailers       int
	RetailerPacing     time.Duration
	CacheTTL           time.Duration
	EnableDebugLogging bool
}

// ComparisonService drives price comparison across configured retailers:
// per retailer it attempts structured extraction, falls back to heuristic
// mining of scraped content, selects the best-matching listing, and
// reports it against the home retailer's price.
type ComparisonService struct {
	retailers []domain.RetailerProfile
	fetcher   domain.ContentFetcher
	extractor domain.StructuredExtractor
	heuristic *HeuristicExtractor
	matcher   *MatchingService
	cache     domain.CacheRepository

	maxRetailers       int
	retailerPacing     time.Duration
	cacheTTL           time.Duration
	enableDebugLogging bool
}

// NewComparisonService creates a comparison service. The extractor may be
// nil, in which case only the heuristic path runs. The retailer slice is
// treated as immutable.
func NewComparisonService(
	retailers []domain.RetailerProfile,
	fetcher domain.ContentFetcher,
	extractor domain.StructuredExtractor,
	matcher *MatchingService,
	cache domain.CacheRepository,
	config ComparisonConfig,
) *ComparisonService {
	maxRetailers := config.MaxRetailers
	if maxRetailers <= 0 {
		maxRetailers = 4
	}

	pacing := config.RetailerPacing
	if pacing <= 0 {
		pacing = time.Second
	}

	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	return &ComparisonService{
		retailers:          retailers,
		fetcher:            fetcher,
		extractor:          extractor,
		heuristic:          NewHeuristicExtractor(config.EnableDebugLogging),
		matcher:            matcher,
		cache:              cache,
		maxRetailers:       maxRetailers,
		retailerPacing:     pacing,
		cacheTTL:           cacheTTL,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Compare produces a presentation-ready comparison summary, memoized for a
// short window so bursts of manual requests do not re-hit the scrape
// service.
func (s *ComparisonService) Compare(ctx context.Context, productName string, referencePrice float64, maxRetailers int) (*domain.ComparisonSummary, error) {
	if productName == "" || referencePrice <= 0 {
		return nil, domain.ErrInvalidRequest
	}

	cacheKey := fmt.Sprintf("comparison:%s:%.2f", normalizeText(productName), referencePrice)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			if summary, ok := cached.(*domain.ComparisonSummary); ok {
				return summary, nil
			}
		}
	}

	comparisons := s.SearchAllRetailers(ctx, productName, referencePrice, maxRetailers)
	summary := s.CreateComparisonSummary(productName, referencePrice, comparisons)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil && s.enableDebugLogging {
			log.Printf("[COMPARE] cache set failed: %v", err)
		}
	}

	return summary, nil
}

// SearchAllRetailers fans the query out to every configured competitor,
// serially with a pacing delay between retailers. A retailer that fails or
// yields no usable match is skipped; partial results are valid and
// preferable to none, so an expired context terminates the loop early and
// returns whatever has been collected.
func (s *ComparisonService) SearchAllRetailers(ctx context.Context, productName string, referencePrice float64, maxRetailers int) []domain.ComparisonResult {
	if maxRetailers <= 0 || maxRetailers > s.maxRetailers {
		maxRetailers = s.maxRetailers
	}

	query := CleanSearchQuery(productName)
	if query == "" {
		return nil
	}

	var targets []domain.RetailerProfile
	for _, retailer := range s.retailers {
		if retailer.HomeRetailer {
			continue
		}
		targets = append(targets, retailer)
		if len(targets) == maxRetailers {
			break
		}
	}

	var results []domain.ComparisonResult
	for i, retailer := range targets {
		if ctx.Err() != nil {
			log.Printf("[COMPARE] deadline reached after %d of %d retailers", i, len(targets))
			break
		}

		result, err := s.compareRetailer(ctx, &retailer, query, referencePrice)
		if err != nil {
			log.Printf("[COMPARE] %s: %v", retailer.Name, err)
		} else if result != nil {
			results = append(results, *result)
		}

		// Deliberate pacing between retailers to stay inside the scrape
		// service's rate limits
		if i < len(targets)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(s.retailerPacing):
			}
		}
	}

	return results
}

// compareRetailer runs the extraction fallback chain for one retailer and
// turns a selected candidate into a comparison against the reference price.
// A nil result with nil error means "no comparable listing found".
func (s *ComparisonService) compareRetailer(ctx context.Context, retailer *domain.RetailerProfile, query string, referencePrice float64) (*domain.ComparisonResult, error) {
	searchURL := buildSearchURL(retailer.SearchURL, query)

	if match := s.tryStructured(ctx, retailer, searchURL, query); match != nil {
		defaultMatchURL(match, searchURL)
		return buildComparison(retailer.Name, match, referencePrice, domain.MethodStructured), nil
	}

	match, err := s.tryHeuristic(ctx, retailer, searchURL, query)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, nil
	}

	defaultMatchURL(match, searchURL)
	return buildComparison(retailer.Name, match, referencePrice, domain.MethodHeuristic), nil
}

// defaultMatchURL fills in the search page URL for candidates that carried
// no product link of their own, so every comparison points somewhere usable.
func defaultMatchURL(match *domain.MatchResult, searchURL string) {
	if match.Candidate.URL == "" {
		match.Candidate.URL = searchURL
	}
}

// tryStructured asks the schema-driven extraction service for listings.
// Any failure - service unconfigured, transport error, empty result - just
// hands control to the heuristic path.
func (s *ComparisonService) tryStructured(ctx context.Context, retailer *domain.RetailerProfile, searchURL, query string) *domain.MatchResult {
	if s.extractor == nil {
		return nil
	}

	result, err := s.extractor.Extract(ctx, searchURL, extractionPrompt(retailer.Name, query))
	if err != nil {
		if s.enableDebugLogging {
			log.Printf("[COMPARE] %s: extract error: %v", retailer.Name, err)
		}
		return nil
	}
	if result == nil || !result.Success || len(result.Products) == 0 {
		if s.enableDebugLogging {
			log.Printf("[COMPARE] %s: extract unavailable, falling back to scraping", retailer.Name)
		}
		return nil
	}

	candidates := NormalizeRawProducts(result.Products, searchURL)
	if s.enableDebugLogging {
		log.Printf("[COMPARE] %s: %d structured candidates", retailer.Name, len(candidates))
	}

	return s.matcher.SelectBestMatch(candidates, query, retailer.MatchThreshold)
}

// tryHeuristic scrapes the search page and mines candidates out of the raw
// markdown/HTML content.
func (s *ComparisonService) tryHeuristic(ctx context.Context, retailer *domain.RetailerProfile, searchURL, query string) (*domain.MatchResult, error) {
	content, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	if content == nil || !content.Success {
		if s.enableDebugLogging && content != nil {
			log.Printf("[COMPARE] %s: fetch failed: %s", retailer.Name, content.Error)
		}
		return nil, nil
	}

	candidates := s.heuristic.ExtractCandidates(content, retailer)
	if len(candidates) == 0 {
		return nil, nil
	}

	return s.matcher.SelectBestMatch(candidates, query, retailer.MatchThreshold), nil
}

// buildComparison computes the price delta fields for a selected match.
func buildComparison(retailerName string, match *domain.MatchResult, referencePrice float64, method string) *domain.ComparisonResult {
	priceDifference := referencePrice - match.Candidate.Price
	isCheaper := match.Candidate.Price < referencePrice

	savings := 0.0
	if isCheaper {
		savings = priceDifference
	}

	return &domain.ComparisonResult{
		Retailer:           retailerName,
		ProductName:        match.Candidate.Title,
		Price:              match.Candidate.Price,
		URL:                match.Candidate.URL,
		PriceDifference:    math.Abs(priceDifference),
		IsCheaper:          isCheaper,
		PotentialSavings:   savings,
		PriceMatchEligible: isCheaper && priceDifference >= 0.01,
		ExtractionMethod:   method,
	}
}

// CreateComparisonSummary filters results to retailers that are cheaper or
// within 10% of the reference price, ranks them by potential savings and
// surfaces the single best price-match opportunity.
func (s *ComparisonService) CreateComparisonSummary(productName string, referencePrice float64, comparisons []domain.ComparisonResult) *domain.ComparisonSummary {
	var relevant []domain.ComparisonResult
	for _, comp := range comparisons {
		if comp.IsCheaper || comp.PriceDifference <= referencePrice*0.1 {
			relevant = append(relevant, comp)
		}
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].PotentialSavings > relevant[j].PotentialSavings
	})

	summary := &domain.ComparisonSummary{
		ProductName:    productName,
		ReferencePrice: referencePrice,
		Comparisons:    relevant,
	}

	for i := range relevant {
		if relevant[i].IsCheaper {
			summary.BetterPrice = true
			break
		}
	}

	var cheapest *domain.ComparisonResult
	for i := range relevant {
		if cheapest == nil || relevant[i].Price < cheapest.Price {
			cheapest = &relevant[i]
		}
	}
	if cheapest != nil && cheapest.PriceMatchEligible {
		best := *cheapest
		summary.BestPriceMatch = &best
	}

	return summary
}

// buildSearchURL substitutes the query into a retailer search template.
func buildSearchURL(template, query string) string {
	return strings.ReplaceAll(template, "{query}", strings.ReplaceAll(query, " ", "+"))
}

// extractionPrompt builds the retailer-tailored natural-language prompt for
// structured extraction. A few retailers need specific guidance to skip
// accessories and warranty upsells.
func extractionPrompt(retailerName, query string) string {
	switch retailerName {
	case "Amazon AU":
		return fmt.Sprintf(`Extract product information from this Amazon Australia search results page for %q. `+
			`Focus on genuine products or exact product matches, ignore cases, accessories, and third-party items unless specifically relevant. `+
			`Look for products with prices in AUD ($). Extract the product name, price (as a number without currency symbols), product URL, availability status, brand, and model. `+
			`Ignore "Renewed" products unless specifically searching for them. `+
			`Return up to 8 most relevant products.`, query)
	case "Harvey Norman":
		return fmt.Sprintf(`Extract product information from this Harvey Norman search results page for %q. `+
			`Focus on main product listings, ignore accessories unless specifically relevant. `+
			`Look for products with clear pricing. Extract the product name, price (as a number without currency symbols), product URL, availability status, brand, and model. `+
			`Return up to 10 most relevant products.`, query)
	case "The Good Guys":
		return fmt.Sprintf(`Extract product information from this The Good Guys search results page for %q. `+
			`Focus on main product listings and electronics, ignore cases, accessories, and extended warranties unless specifically relevant. `+
			`Look for products with clear pricing in AUD ($). Extract the product name, price (as a number without currency symbols), product URL, availability status, brand, and model. `+
			`Return up to 10 most relevant products.`, query)
	default:
		return fmt.Sprintf(`Extract product information from this %s search results page for %q. `+
			`Focus on products that match the search term %q. `+
			`Extract the product name, price (as a number without currency symbols), product URL, availability status, brand, and model if available. `+
			`Return up to 10 most relevant products.`, retailerName, query, query)
	}
}
