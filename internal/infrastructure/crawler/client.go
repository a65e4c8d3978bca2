package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pricelens/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client talks to the Firecrawl scrape/extract REST API. It implements both
// domain.ContentFetcher and domain.StructuredExtractor. When no API key is
// configured every call reports a failed result value rather than an error,
// which sends callers down their fallback chain.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
}

// NewClient creates a new Firecrawl API client. Requests are paced to one
// every `pacing` to stay under the service's rate limits.
func NewClient(apiKey, baseURL string, pacing time.Duration) *Client {
	if pacing <= 0 {
		pacing = 2 * time.Second
	}
	limiter := rate.NewLimiter(rate.Every(pacing), 1)

	return &Client{
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		rateLimiter: limiter,
	}
}

// Configured reports whether the client has an API key to work with.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	WaitFor         int      `json:"waitFor,omitempty"`
	Timeout         int      `json:"timeout,omitempty"`
	MaxAge          int      `json:"maxAge"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
		HTML     string `json:"html"`
	} `json:"data"`
}

// Fetch scrapes a URL and returns its markdown and HTML renderings.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*domain.FetchResult, error) {
	if !c.Configured() {
		log.Printf("[Crawler] Fetch skipped, no API key configured")
		return &domain.FetchResult{
			Success: false,
			URL:     pageURL,
			Error:   "crawler API key not configured",
		}, nil
	}

	reqBody := scrapeRequest{
		URL:     pageURL,
		Formats: []string{"markdown", "html"},
		// Dynamic retail pages need a render delay and a live scrape.
		OnlyMainContent: false,
		WaitFor:         3000,
		Timeout:         60000,
		MaxAge:          0,
	}

	body, err := c.doPost(ctx, "/v1/scrape", reqBody)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Crawler] Scrape request failed for %s: %v", pageURL, err)
		return &domain.FetchResult{Success: false, URL: pageURL, Error: err.Error()}, nil
	}

	var resp scrapeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Printf("[Crawler] Scrape decode error for %s: %v", pageURL, err)
		return &domain.FetchResult{Success: false, URL: pageURL, Error: fmt.Sprintf("decode response: %v", err)}, nil
	}

	if !resp.Success {
		log.Printf("[Crawler] Scrape rejected for %s: %s", pageURL, resp.Error)
		return &domain.FetchResult{Success: false, URL: pageURL, Error: resp.Error}, nil
	}

	log.Printf("[Crawler] Scraped %s (markdown %d bytes, html %d bytes)",
		pageURL, len(resp.Data.Markdown), len(resp.Data.HTML))
	return &domain.FetchResult{
		Success:  true,
		Markdown: resp.Data.Markdown,
		HTML:     resp.Data.HTML,
		URL:      pageURL,
	}, nil
}

type extractRequest struct {
	URLs   []string       `json:"urls"`
	Prompt string         `json:"prompt"`
	Schema map[string]any `json:"schema"`
}

type extractResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Products []domain.RawProduct `json:"products"`
	} `json:"data"`
}

// productSchema is the fixed shape requested from the extraction endpoint.
var productSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"products": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":         map[string]any{"type": "string"},
					"price":        map[string]any{"type": "string"},
					"url":          map[string]any{"type": "string"},
					"availability": map[string]any{"type": "string"},
					"brand":        map[string]any{"type": "string"},
					"model":        map[string]any{"type": "string"},
				},
				"required": []string{"name", "price"},
			},
		},
	},
	"required": []string{"products"},
}

// Extract asks the service for structured product records on a page.
func (c *Client) Extract(ctx context.Context, pageURL, prompt string) (*domain.ExtractResult, error) {
	if !c.Configured() {
		return &domain.ExtractResult{
			Success: false,
			URL:     pageURL,
			Error:   "crawler API key not configured",
		}, nil
	}

	reqBody := extractRequest{
		URLs:   []string{pageURL},
		Prompt: prompt,
		Schema: productSchema,
	}

	body, err := c.doPost(ctx, "/v1/extract", reqBody)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Crawler] Extract request failed for %s: %v", pageURL, err)
		return &domain.ExtractResult{Success: false, URL: pageURL, Error: err.Error()}, nil
	}

	var resp extractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Printf("[Crawler] Extract decode error for %s: %v", pageURL, err)
		return &domain.ExtractResult{Success: false, URL: pageURL, Error: fmt.Sprintf("decode response: %v", err)}, nil
	}

	if !resp.Success {
		log.Printf("[Crawler] Extract rejected for %s: %s", pageURL, resp.Error)
		return &domain.ExtractResult{Success: false, URL: pageURL, Error: resp.Error}, nil
	}

	log.Printf("[Crawler] Extracted %d products from %s", len(resp.Data.Products), pageURL)
	return &domain.ExtractResult{
		Success:  true,
		Products: resp.Data.Products,
		URL:      pageURL,
	}, nil
}

// doPost executes a JSON POST with pacing and retry for transient failures.
func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Printf("[Crawler] Request error (attempt %d): %v", attempt, err)
			lastErr = fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Printf("[Crawler] API error (attempt %d) - Status: %d, Body: %s", attempt, resp.StatusCode, truncate(string(body), 300))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrFetchFailure, resp.StatusCode)
			// Client errors other than rate limiting are not transient.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return nil, lastErr
			}
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		return body, nil
	}

	return nil, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
