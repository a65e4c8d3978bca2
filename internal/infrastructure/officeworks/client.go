package officeworks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client talks to the Officeworks stock-check API. It implements
// domain.StockClient and is the price source for the home retailer.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
}

// NewClient creates a new stock-check API client.
func NewClient(baseURL string) *Client {
	// The stock API is unauthenticated; keep well under any server-side limits.
	limiter := rate.NewLimiter(rate.Limit(2), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
	}
}

// productResponse mirrors the stock-check product payload.
type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	URLPath     string          `json:"urlPath"`
	Image       string          `json:"image"`
	Price       json.RawMessage `json:"price"` // number or quoted string
}

type availabilityResponse struct {
	States []string `json:"states"`
	Stores []struct {
		StoreID  string `json:"storeId"`
		Store    string `json:"store"`
		Address  string `json:"address"`
		Suburb   string `json:"suburb"`
		Postcode string `json:"postcode"`
		State    string `json:"state"`
		Phone    string `json:"phone"`
		InStock  bool   `json:"inStock"`
	} `json:"stores"`
}

// GetProductInfo fetches the current product record for a product code.
func (c *Client) GetProductInfo(ctx context.Context, code string) (*domain.ProductInfo, error) {
	reqURL := fmt.Sprintf("%s/stock-check/product/%s", c.baseURL, code)

	body, err := c.doGet(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp productResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode product response: %w", err)
	}

	info := &domain.ProductInfo{
		ID:          resp.ID,
		Code:        code,
		Name:        resp.Name,
		Description: resp.Description,
		URL:         resp.URLPath,
		Image:       resp.Image,
		Price:       parsePriceField(resp.Price),
	}

	log.Printf("[Officeworks] Product %s: %q at $%.2f", code, info.Name, info.Price)
	return info, nil
}

// GetStoreAvailability fetches per-store stock for a product in a state.
func (c *Client) GetStoreAvailability(ctx context.Context, code, state string) ([]domain.StoreAvailability, error) {
	reqURL := fmt.Sprintf("%s/stock-check/product/%s/availability/%s", c.baseURL, code, strings.ToLower(state))

	body, err := c.doGet(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp availabilityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode availability response: %w", err)
	}

	stores := make([]domain.StoreAvailability, 0, len(resp.Stores))
	for _, s := range resp.Stores {
		stores = append(stores, domain.StoreAvailability{
			StoreID:  s.StoreID,
			Name:     s.Store,
			Address:  s.Address,
			Suburb:   s.Suburb,
			Postcode: s.Postcode,
			State:    s.State,
			Phone:    s.Phone,
			InStock:  s.InStock,
		})
	}

	log.Printf("[Officeworks] Availability for %s in %s: %d stores", code, state, len(stores))
	return stores, nil
}

func (c *Client) doGet(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// The stock API rejects non-browser clients.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:141.0) Gecko/20100101 Firefox/141.0")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStockAPIFailure, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Officeworks] API error - Status: %d, URL: %s", resp.StatusCode, reqURL)
		return nil, fmt.Errorf("%w: status %d", domain.ErrStockAPIFailure, resp.StatusCode)
	}

	return body, nil
}

// parsePriceField tolerates both numeric and quoted string price payloads.
func parsePriceField(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		var parsed float64
		if _, err := fmt.Sscanf(strings.TrimPrefix(str, "$"), "%f", &parsed); err == nil {
			return parsed
		}
	}
	return 0
}
