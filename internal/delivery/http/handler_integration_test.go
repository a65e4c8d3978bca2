package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// memProductRepo is an in-memory domain.ProductRepository.
type memProductRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]domain.TrackedProduct
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{items: make(map[int64]domain.TrackedProduct)}
}

func (r *memProductRepo) Add(ctx context.Context, userID, code, name, url string, price float64) (*domain.TrackedProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.items {
		if p.IsActive && p.UserID == userID && p.Code == code {
			return nil, domain.ErrAlreadyTracked
		}
	}

	r.nextID++
	p := domain.TrackedProduct{
		ID:           r.nextID,
		UserID:       userID,
		Code:         code,
		Name:         name,
		URL:          url,
		CurrentPrice: price,
		LowestPrice:  price,
		LastChecked:  time.Now(),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	r.items[p.ID] = p
	return &p, nil
}

func (r *memProductRepo) GetByID(ctx context.Context, id int64) (*domain.TrackedProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok || !p.IsActive {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *memProductRepo) ListByUser(ctx context.Context, userID string) ([]domain.TrackedProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.TrackedProduct
	for _, p := range r.items {
		if p.IsActive && p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductRepo) ListActive(ctx context.Context) ([]domain.TrackedProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.TrackedProduct
	for _, p := range r.items {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductRepo) UpdatePrice(ctx context.Context, id int64, price float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok || !p.IsActive {
		return domain.ErrProductNotFound
	}
	p.CurrentPrice = price
	if p.LowestPrice == 0 || price < p.LowestPrice {
		p.LowestPrice = price
	}
	p.LastChecked = time.Now()
	r.items[id] = p
	return nil
}

func (r *memProductRepo) Deactivate(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok || !p.IsActive {
		return domain.ErrProductNotFound
	}
	p.IsActive = false
	r.items[id] = p
	return nil
}

// memHistoryRepo is an in-memory domain.PriceHistoryRepository.
type memHistoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64][]domain.PriceRecord
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{records: make(map[int64][]domain.PriceRecord)}
}

func (r *memHistoryRepo) Record(ctx context.Context, productID int64, price float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.records[productID] = append(r.records[productID], domain.PriceRecord{
		ID:        r.nextID,
		ProductID: productID,
		Price:     price,
		CheckedAt: time.Now(),
	})
	return nil
}

func (r *memHistoryRepo) History(ctx context.Context, productID int64, limit int) ([]domain.PriceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := r.records[productID]
	// newest first
	out := make([]domain.PriceRecord, 0, len(recs))
	for i := len(recs) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

// memNotificationRepo is an in-memory domain.NotificationRepository.
type memNotificationRepo struct {
	mu    sync.Mutex
	count int
}

func (r *memNotificationRepo) Record(ctx context.Context, productID int64, oldPrice, newPrice float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return nil
}

// stubStock serves canned product records.
type stubStock struct {
	products map[string]domain.ProductInfo
	stores   []domain.StoreAvailability
}

func (s *stubStock) GetProductInfo(ctx context.Context, code string) (*domain.ProductInfo, error) {
	info, ok := s.products[code]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &info, nil
}

func (s *stubStock) GetStoreAvailability(ctx context.Context, code, state string) ([]domain.StoreAvailability, error) {
	if _, ok := s.products[code]; !ok {
		return nil, domain.ErrProductNotFound
	}
	return s.stores, nil
}

// stubFetcher serves one canned markdown page for every retailer.
type stubFetcher struct {
	markdown string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*domain.FetchResult, error) {
	return &domain.FetchResult{
		Success:  true,
		Markdown: f.markdown,
		URL:      url,
	}, nil
}

type testEnv struct {
	router   *gin.Engine
	products *memProductRepo
	stock    *stubStock
}

func setupTestEnv() *testEnv {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"*"},
		},
		RateLimit: config.RateLimitConfig{PerIP: 0},
	}

	products := newMemProductRepo()
	history := newMemHistoryRepo()
	notifications := &memNotificationRepo{}
	stock := &stubStock{
		products: map[string]domain.ProductInfo{
			"ipdmw128g": {
				ID:    "IPDMW128G",
				Code:  "ipdmw128g",
				Name:  "Apple iPad Mini 128GB Wi-Fi Space Grey",
				URL:   "/shop/officeworks/p/apple-ipad-mini-128gb-ipdmw128g",
				Price: 749.00,
			},
		},
		stores: []domain.StoreAvailability{
			{StoreID: "W301", Name: "Bankstown", State: "NSW", InStock: true},
		},
	}

	tracker := usecase.NewTrackerService(products, history, notifications, stock, nil, usecase.TrackerConfig{
		CheckPacing: time.Millisecond,
	})

	retailers := []domain.RetailerProfile{
		{
			Name:           "JB Hi-Fi",
			BaseURL:        "https://www.jbhifi.com.au",
			SearchURL:      "https://www.jbhifi.com.au/search?query={query}",
			MatchThreshold: 0.3,
		},
	}
	fetcher := &stubFetcher{
		markdown: "## Apple iPad Mini 128GB Wi-Fi Space Grey\nNow $699.00\n",
	}
	matcher := usecase.NewMatchingService(usecase.MatchConfig{})
	comparison := usecase.NewComparisonService(retailers, fetcher, nil, matcher, cache.NewMemoryCache(), usecase.ComparisonConfig{
		MaxRetailers:   4,
		RetailerPacing: time.Millisecond,
	})

	handler := NewHandler(tracker, comparison, stock)
	return &testEnv{
		router:   SetupRouter(cfg, handler),
		products: products,
		stock:    stock,
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheckEndpoint(t *testing.T) {
	env := setupTestEnv()

	w := doJSON(t, env.router, "GET", "/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", response["status"])
	}
	if response["service"] != "pricelens-backend" {
		t.Errorf("service = %v, want pricelens-backend", response["service"])
	}
}

func TestTrackProductEndpoint(t *testing.T) {
	t.Run("tracks a product by URL", func(t *testing.T) {
		env := setupTestEnv()

		w := doJSON(t, env.router, "POST", "/api/v1/products", map[string]string{
			"userId": "user-1",
			"url":    "https://www.officeworks.com.au/shop/officeworks/p/apple-ipad-mini-128gb-ipdmw128g",
		})

		if w.Code != http.StatusCreated {
			t.Fatalf("Status = %d, want %d (body: %s)", w.Code, http.StatusCreated, w.Body.String())
		}

		var product domain.TrackedProduct
		if err := json.Unmarshal(w.Body.Bytes(), &product); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if product.Code != "ipdmw128g" {
			t.Errorf("Code = %s, want ipdmw128g", product.Code)
		}
		if product.CurrentPrice != 749.00 {
			t.Errorf("CurrentPrice = %.2f, want 749.00", product.CurrentPrice)
		}
	})

	t.Run("rejects duplicate tracking with 409", func(t *testing.T) {
		env := setupTestEnv()
		body := map[string]string{"userId": "user-1", "url": "ipdmw128g"}

		first := doJSON(t, env.router, "POST", "/api/v1/products", body)
		if first.Code != http.StatusCreated {
			t.Fatalf("first Status = %d, want %d", first.Code, http.StatusCreated)
		}

		second := doJSON(t, env.router, "POST", "/api/v1/products", body)
		if second.Code != http.StatusConflict {
			t.Errorf("second Status = %d, want %d", second.Code, http.StatusConflict)
		}
	})

	t.Run("returns 404 for unknown product code", func(t *testing.T) {
		env := setupTestEnv()

		w := doJSON(t, env.router, "POST", "/api/v1/products", map[string]string{
			"userId": "user-1",
			"url":    "https://www.officeworks.com.au/shop/p/some-gadget-nope123",
		})

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("rejects missing fields with 400", func(t *testing.T) {
		env := setupTestEnv()

		w := doJSON(t, env.router, "POST", "/api/v1/products", map[string]string{"userId": "user-1"})

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestListProductsEndpoint(t *testing.T) {
	env := setupTestEnv()

	doJSON(t, env.router, "POST", "/api/v1/products", map[string]string{"userId": "user-1", "url": "ipdmw128g"})

	t.Run("lists the user's products", func(t *testing.T) {
		w := doJSON(t, env.router, "GET", "/api/v1/products?user=user-1", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response struct {
			Products []domain.TrackedProduct `json:"products"`
			Count    int                     `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response.Count != 1 {
			t.Errorf("Count = %d, want 1", response.Count)
		}
	})

	t.Run("requires the user parameter", func(t *testing.T) {
		w := doJSON(t, env.router, "GET", "/api/v1/products", nil)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestUntrackProductEndpoint(t *testing.T) {
	env := setupTestEnv()

	w := doJSON(t, env.router, "POST", "/api/v1/products", map[string]string{"userId": "user-1", "url": "ipdmw128g"})
	var product domain.TrackedProduct
	if err := json.Unmarshal(w.Body.Bytes(), &product); err != nil {
		t.Fatalf("Failed to unmarshal track response: %v", err)
	}

	t.Run("untracks an existing product", func(t *testing.T) {
		w := doJSON(t, env.router, "DELETE", fmt.Sprintf("/api/v1/products/%d", product.ID), nil)
		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("returns 404 for an already untracked product", func(t *testing.T) {
		w := doJSON(t, env.router, "DELETE", fmt.Sprintf("/api/v1/products/%d", product.ID), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("rejects a non-numeric id", func(t *testing.T) {
		w := doJSON(t, env.router, "DELETE", "/api/v1/products/abc", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestProductHistoryEndpoint(t *testing.T) {
	env := setupTestEnv()

	w := doJSON(t, env.router, "POST", "/api/v1/products", map[string]string{"userId": "user-1", "url": "ipdmw128g"})
	var product domain.TrackedProduct
	if err := json.Unmarshal(w.Body.Bytes(), &product); err != nil {
		t.Fatalf("Failed to unmarshal track response: %v", err)
	}

	w = doJSON(t, env.router, "GET", fmt.Sprintf("/api/v1/products/%d/history", product.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var response struct {
		History []domain.PriceRecord `json:"history"`
		Count   int                  `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	// Tracking records the initial price point.
	if response.Count != 1 {
		t.Errorf("Count = %d, want 1", response.Count)
	}
	if len(response.History) == 1 && response.History[0].Price != 749.00 {
		t.Errorf("History[0].Price = %.2f, want 749.00", response.History[0].Price)
	}
}

func TestCheckProductEndpoint(t *testing.T) {
	env := setupTestEnv()

	w := doJSON(t, env.router, "POST", "/api/v1/products", map[string]string{"userId": "user-1", "url": "ipdmw128g"})
	var product domain.TrackedProduct
	if err := json.Unmarshal(w.Body.Bytes(), &product); err != nil {
		t.Fatalf("Failed to unmarshal track response: %v", err)
	}

	t.Run("reports a price drop", func(t *testing.T) {
		// Lower the live price before checking.
		info := env.stock.products["ipdmw128g"]
		info.Price = 699.00
		env.stock.products["ipdmw128g"] = info

		w := doJSON(t, env.router, "POST", fmt.Sprintf("/api/v1/products/%d/check", product.ID), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
		}

		var response struct {
			Product   domain.TrackedProduct `json:"product"`
			PriceDrop *domain.PriceDrop     `json:"priceDrop"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response.PriceDrop == nil {
			t.Fatal("PriceDrop = nil, want a drop from 749.00 to 699.00")
		}
		if response.PriceDrop.NewPrice != 699.00 {
			t.Errorf("NewPrice = %.2f, want 699.00", response.PriceDrop.NewPrice)
		}
		if response.Product.CurrentPrice != 699.00 {
			t.Errorf("CurrentPrice = %.2f, want 699.00", response.Product.CurrentPrice)
		}
	})

	t.Run("returns 404 for unknown product", func(t *testing.T) {
		w := doJSON(t, env.router, "POST", "/api/v1/products/9999/check", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestCompareEndpoint(t *testing.T) {
	env := setupTestEnv()

	t.Run("returns a comparison summary", func(t *testing.T) {
		w := doJSON(t, env.router, "POST", "/api/v1/compare", map[string]any{
			"productName":    "Apple iPad Mini 128GB Wi-Fi Space Grey",
			"referencePrice": 749.00,
		})

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
		}

		var summary domain.ComparisonSummary
		if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if summary.ReferencePrice != 749.00 {
			t.Errorf("ReferencePrice = %.2f, want 749.00", summary.ReferencePrice)
		}
		if len(summary.Comparisons) != 1 {
			t.Fatalf("len(Comparisons) = %d, want 1", len(summary.Comparisons))
		}
		if summary.Comparisons[0].Price != 699.00 {
			t.Errorf("Comparisons[0].Price = %.2f, want 699.00", summary.Comparisons[0].Price)
		}
		if !summary.BetterPrice {
			t.Error("BetterPrice = false, want true")
		}
	})

	t.Run("rejects a missing reference price", func(t *testing.T) {
		w := doJSON(t, env.router, "POST", "/api/v1/compare", map[string]any{
			"productName": "iPad Mini",
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestStoreAvailabilityEndpoint(t *testing.T) {
	env := setupTestEnv()

	t.Run("returns stores for a known product", func(t *testing.T) {
		w := doJSON(t, env.router, "GET", "/api/v1/stock/ipdmw128g/availability/nsw", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response struct {
			Stores []domain.StoreAvailability `json:"stores"`
			Count  int                        `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response.Count != 1 {
			t.Errorf("Count = %d, want 1", response.Count)
		}
	})

	t.Run("returns 404 for an unknown product", func(t *testing.T) {
		w := doJSON(t, env.router, "GET", "/api/v1/stock/nope/availability/nsw", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}
