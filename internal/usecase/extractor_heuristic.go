package usecase

import (
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Bounds on believable listing prices. Markdown content tends to carry
// shipping costs and review counts, so the floor is higher there.
const (
	markdownPriceMin = 5
	markdownPriceMax = 15000
	htmlPriceMin     = 1
	htmlPriceMax     = 10000

	maxMarkdownCandidates = 15
	maxHTMLCandidates     = 5
)

// markdownPricePatterns are tried in order on every line; the first numeric
// match in range wins.
var markdownPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d{2})?)\s*dollars?`),
	regexp.MustCompile(`(?i)AUD\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)Price:?\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d{2})?)\s*AUD`),
	regexp.MustCompile(`(?i)From\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)Now\s*\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`),
}

var (
	headingMarkerRegex   = regexp.MustCompile(`^#{1,6}\s+`)
	titleDecorationRegex = regexp.MustCompile(`[*\[\]]+`)
	boldRunRegex         = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	markdownLinkRegex    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	tableCellPriceRegex  = regexp.MustCompile(`\$?(\d+(?:,\d{3})*(?:\.\d{2})?)`)
	embeddedPriceRegex   = regexp.MustCompile(`\$\d`)
	htmlTagRegex         = regexp.MustCompile(`<[^>]+>`)
)

// productIndicators mark plain lines that read like product names even
// without markdown decoration.
var productIndicators = []string{
	"router", "mesh", "wifi", "wireless", "system", "pack", "kit",
	"laptop", "tablet", "phone", "headphones", "camera", "monitor",
}

// linkTextPrefixes that disqualify link text from being a title.
var linkTextPrefixes = []string{"http", "www", "click", "view", "see"}

// HeuristicExtractor mines product listings out of loosely structured
// scraped content. The markdown pass runs first; the HTML pass only runs
// when markdown produced nothing.
type HeuristicExtractor struct {
	enableDebugLogging bool
}

// NewHeuristicExtractor creates a heuristic extractor.
func NewHeuristicExtractor(enableDebugLogging bool) *HeuristicExtractor {
	return &HeuristicExtractor{enableDebugLogging: enableDebugLogging}
}

// ExtractCandidates pulls candidate listings from fetched page content.
// Every returned candidate has a positive price and a non-empty title.
func (e *HeuristicExtractor) ExtractCandidates(content *domain.FetchResult, profile *domain.RetailerProfile) []domain.Candidate {
	if content == nil {
		return nil
	}

	var candidates []domain.Candidate

	if content.Markdown != "" {
		candidates = e.extractFromMarkdown(content.Markdown, profile)
		if e.enableDebugLogging {
			log.Printf("[EXTRACT] %s: %d candidates from markdown", profile.Name, len(candidates))
		}
	}

	if len(candidates) == 0 && content.HTML != "" {
		candidates = e.extractFromHTML(content.HTML, profile)
		if e.enableDebugLogging {
			log.Printf("[EXTRACT] %s: %d candidates from html", profile.Name, len(candidates))
		}
	}

	deduped := dedupeCandidates(candidates)
	if e.enableDebugLogging {
		log.Printf("[EXTRACT] %s: %d candidates after dedup", profile.Name, len(deduped))
	}
	return deduped
}

// extractFromMarkdown walks the document line by line, accumulating a
// current title/price/url and emitting a candidate whenever a price lands
// while a title is pending.
func (e *HeuristicExtractor) extractFromMarkdown(markdown string, profile *domain.RetailerProfile) []domain.Candidate {
	var found []domain.Candidate
	var current domain.Candidate

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if title, ok := titleFromLine(line); ok {
			current.Title = title
		}

		for _, pattern := range markdownPricePatterns {
			emitted := false
			for _, match := range pattern.FindAllStringSubmatch(line, -1) {
				price, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
				if err != nil {
					continue
				}
				if price < markdownPriceMin || price > markdownPriceMax {
					continue
				}
				current.Price = price
				if current.Title != "" {
					found = append(found, current)
					current = domain.Candidate{}
					emitted = true
					break
				}
			}
			if emitted {
				break
			}
		}

		// Product links double as candidate URLs
		for _, match := range markdownLinkRegex.FindAllStringSubmatch(line, -1) {
			target := match[2]
			if strings.Contains(target, profile.BaseURL) || strings.Contains(strings.ToLower(target), "product") {
				if strings.HasPrefix(target, "http") {
					current.URL = target
				} else {
					current.URL = profile.BaseURL + target
				}
			}
		}
	}

	found = append(found, extractFromTableRows(markdown, profile)...)

	unique := dropSimilarTitles(found)
	if len(unique) > maxMarkdownCandidates {
		unique = unique[:maxMarkdownCandidates]
	}
	return unique
}

// titleFromLine applies the title heuristics in priority order: heading,
// bold run, link text, then a plain line with product-indicator words.
func titleFromLine(line string) (string, bool) {
	if headingMarkerRegex.MatchString(line) && len(line) > 15 {
		title := headingMarkerRegex.ReplaceAllString(line, "")
		title = strings.TrimSpace(titleDecorationRegex.ReplaceAllString(title, ""))
		if len(title) > 8 {
			return title, true
		}
		return "", false
	}

	if strings.Contains(line, "**") && len(line) > 15 {
		for _, match := range boldRunRegex.FindAllStringSubmatch(line, -1) {
			if bold := strings.TrimSpace(match[1]); len(bold) > 8 {
				return bold, true
			}
		}
		return "", false
	}

	if strings.Contains(line, "[") && strings.Contains(line, "](") {
		for _, match := range markdownLinkRegex.FindAllStringSubmatch(line, -1) {
			text := strings.TrimSpace(match[1])
			if len(text) <= 8 || hasAnyPrefix(strings.ToLower(text), linkTextPrefixes) {
				continue
			}
			return text, true
		}
		return "", false
	}

	if len(line) >= 20 && len(line) <= 150 {
		lower := strings.ToLower(line)
		for _, indicator := range productIndicators {
			if strings.Contains(lower, indicator) {
				return line, true
			}
		}
	}

	return "", false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// extractFromTableRows scans pipe-delimited rows, pairing any price-like
// cell with the longest other cell on the row that reads like a title.
func extractFromTableRows(markdown string, profile *domain.RetailerProfile) []domain.Candidate {
	var candidates []domain.Candidate

	for _, line := range strings.Split(markdown, "\n") {
		if !strings.Contains(line, "|") || len(strings.Split(line, "|")) < 3 {
			continue
		}

		var cells []string
		for _, cell := range strings.Split(line, "|") {
			if cell = strings.TrimSpace(cell); cell != "" {
				cells = append(cells, cell)
			}
		}

		for i, cell := range cells {
			match := tableCellPriceRegex.FindStringSubmatch(cell)
			if match == nil {
				continue
			}
			price, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
			if err != nil || price < markdownPriceMin || price > markdownPriceMax {
				continue
			}
			for j, other := range cells {
				if i == j || len(other) <= 10 || embeddedPriceRegex.MatchString(other) {
					continue
				}
				candidates = append(candidates, domain.Candidate{
					Title: other,
					Price: price,
					URL:   profile.BaseURL,
				})
				break
			}
		}
	}

	return candidates
}

// dropSimilarTitles removes near-duplicate listings: two titles sharing
// more than 70% of their words (relative to the shorter one) count as the
// same listing, and the later one loses.
func dropSimilarTitles(candidates []domain.Candidate) []domain.Candidate {
	var unique []domain.Candidate
	for _, c := range candidates {
		duplicate := false
		for _, kept := range unique {
			if titlesSimilar(c.Title, kept.Title) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, c)
		}
	}
	return unique
}

func titlesSimilar(title1, title2 string) bool {
	if title1 == "" || title2 == "" {
		return false
	}

	words1 := wordSet(strings.ToLower(title1))
	words2 := wordSet(strings.ToLower(title2))
	if len(words1) == 0 || len(words2) == 0 {
		return false
	}

	overlap := 0
	for w := range words1 {
		if words2[w] {
			overlap++
		}
	}

	smaller := len(words1)
	if len(words2) < smaller {
		smaller = len(words2)
	}

	return float64(overlap)/float64(smaller) > 0.7
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// extractFromHTML collects price, title and link matches independently in
// document order and pairs them index for index. The content source is
// pre-rendered text rather than a real DOM, so positional correlation is a
// best-effort approximation.
func (e *HeuristicExtractor) extractFromHTML(html string, profile *domain.RetailerProfile) []domain.Candidate {
	pricePatterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)class="[^"]*price[^"]*"[^>]*>\s*\$?([\d,.]+)`),
		regexp.MustCompile(`(?i)data-price="([\d,.]+)"`),
		regexp.MustCompile(`(?i)\$\s*([\d,.]+)`),
	}
	pricePatterns = append(pricePatterns, selectorsToRegex(profile.PriceSelectors, capturePrice)...)

	titlePatterns := []*regexp.Regexp{
		regexp.MustCompile(`(?i)<h[1-6][^>]*>([^<]+)</h[1-6]>`),
		regexp.MustCompile(`(?i)class="[^"]*title[^"]*"[^>]*>([^<]+)<`),
		regexp.MustCompile(`(?i)class="[^"]*name[^"]*"[^>]*>([^<]+)<`),
	}
	titlePatterns = append(titlePatterns, selectorsToRegex(profile.TitleSelectors, captureText)...)

	linkPatterns := selectorsToRegex(profile.LinkSelectors, captureLink)

	var prices []float64
	for _, pattern := range pricePatterns {
		for _, match := range pattern.FindAllStringSubmatch(html, -1) {
			price := ParsePrice(match[1])
			if price >= htmlPriceMin && price <= htmlPriceMax {
				prices = append(prices, price)
			}
		}
	}

	var titles []string
	for _, pattern := range titlePatterns {
		for _, match := range pattern.FindAllStringSubmatch(html, -1) {
			title := strings.TrimSpace(htmlTagRegex.ReplaceAllString(match[1], ""))
			if len(title) > 5 {
				titles = append(titles, title)
			}
		}
	}

	var links []string
	for _, pattern := range linkPatterns {
		for _, match := range pattern.FindAllStringSubmatch(html, -1) {
			if link := strings.TrimSpace(match[len(match)-1]); link != "" {
				links = append(links, absoluteURL(link, profile.BaseURL))
			}
		}
	}

	count := len(prices)
	if len(titles) < count {
		count = len(titles)
	}

	var candidates []domain.Candidate
	for i := 0; i < count; i++ {
		url := profile.BaseURL
		if i < len(links) {
			url = links[i]
		}
		candidates = append(candidates, domain.Candidate{
			Title: titles[i],
			Price: prices[i],
			URL:   url,
		})
	}

	if len(candidates) > maxHTMLCandidates {
		candidates = candidates[:maxHTMLCandidates]
	}
	return candidates
}

type captureKind int

const (
	capturePrice captureKind = iota
	captureText
	captureLink
)

// selectorsToRegex translates CSS-like selectors into permissive tag/class
// and attribute regexes. Attribute selectors ([attr="value"]) become
// attribute-match patterns; class selectors become class-substring patterns.
func selectorsToRegex(selectors []string, capture captureKind) []*regexp.Regexp {
	var patterns []*regexp.Regexp

	for _, selector := range selectors {
		selector = strings.TrimSpace(selector)
		if selector == "" {
			continue
		}

		var expr string
		if strings.HasPrefix(selector, "[") && strings.Contains(selector, "=") {
			inner := strings.Trim(selector, "[]")
			attr, remainder, _ := strings.Cut(inner, "=")
			attr = strings.TrimSpace(attr)
			value := strings.Trim(strings.TrimSpace(remainder), `"'`)
			switch capture {
			case capturePrice:
				expr = fmt.Sprintf(`(?i)%s\s*=\s*"%s"[^>]*>[^$]*\$?([\d,.]+)`, attr, regexp.QuoteMeta(value))
			case captureLink:
				expr = fmt.Sprintf(`(?i)%s\s*=\s*"%s"[^>]*href="([^"]+)"`, attr, regexp.QuoteMeta(value))
			default:
				expr = fmt.Sprintf(`(?i)%s\s*=\s*"%s"[^>]*>([^<]+)<`, attr, regexp.QuoteMeta(value))
			}
		} else {
			tag := `[^>]*`
			className := ""
			if strings.Contains(selector, ".") {
				parts := strings.Split(selector, ".")
				if parts[0] != "" {
					tag = parts[0]
				}
				className = parts[len(parts)-1]
			} else {
				tag = selector
			}

			classPattern := ""
			if className != "" {
				classPattern = fmt.Sprintf(`class="[^"]*%s[^"]*"`, regexp.QuoteMeta(className))
			}

			switch capture {
			case capturePrice:
				expr = fmt.Sprintf(`(?i)<%s[^>]*%s[^>]*>[^$]*\$?([\d,.]+)`, tag, classPattern)
			case captureLink:
				expr = fmt.Sprintf(`(?i)<%s[^>]*%s[^>]*href="([^"]+)"`, tag, classPattern)
			default:
				expr = fmt.Sprintf(`(?i)<%s[^>]*%s[^>]*>([^<]+)<`, tag, classPattern)
			}
		}

		pattern, err := regexp.Compile(expr)
		if err != nil {
			// A malformed selector only costs us one pattern
			continue
		}
		patterns = append(patterns, pattern)
	}

	return patterns
}

// absoluteURL resolves scraped link targets against the retailer base URL.
func absoluteURL(candidateURL, baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(candidateURL, "http"):
		return candidateURL
	case strings.HasPrefix(candidateURL, "//"):
		return "https:" + candidateURL
	case strings.HasPrefix(candidateURL, "/"):
		return base + candidateURL
	default:
		return base + "/" + strings.TrimLeft(candidateURL, "/")
	}
}

// dedupeCandidates removes exact repeats keyed by (normalized title, price
// rounded to cents). Candidates with the same title but meaningfully
// different prices survive as distinct listings. Anything without a title
// or positive price is dropped here.
func dedupeCandidates(candidates []domain.Candidate) []domain.Candidate {
	type dedupeKey struct {
		title string
		cents int64
	}

	seen := make(map[dedupeKey]bool)
	var deduped []domain.Candidate

	for _, c := range candidates {
		price := c.Price
		if c.Title == "" || price <= 0 {
			continue
		}

		key := dedupeKey{
			title: normalizeText(c.Title),
			cents: int64(math.Round(price * 100)),
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, c)
	}

	return deduped
}
