package domain

import (
	"context"
	"time"
)

// ContentFetcher retrieves raw page content (markdown and/or HTML) for a URL.
// Transport failures are reported inside the FetchResult; the error return is
// reserved for context cancellation and programmer mistakes.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// StructuredExtractor asks an external schema-driven service for product
// records on a page. Same failure convention as ContentFetcher.
type StructuredExtractor interface {
	Extract(ctx context.Context, url, prompt string) (*ExtractResult, error)
}

// StockClient talks to the home retailer's stock/price API.
type StockClient interface {
	GetProductInfo(ctx context.Context, code string) (*ProductInfo, error)
	GetStoreAvailability(ctx context.Context, code, state string) ([]StoreAvailability, error)
}

// ProductRepository persists tracked products.
type ProductRepository interface {
	Add(ctx context.Context, userID, code, name, url string, price float64) (*TrackedProduct, error)
	GetByID(ctx context.Context, id int64) (*TrackedProduct, error)
	ListByUser(ctx context.Context, userID string) ([]TrackedProduct, error)
	ListActive(ctx context.Context) ([]TrackedProduct, error)
	UpdatePrice(ctx context.Context, id int64, price float64) error
	Deactivate(ctx context.Context, id int64) error
}

// PriceHistoryRepository persists price points over time.
type PriceHistoryRepository interface {
	Record(ctx context.Context, productID int64, price float64) error
	History(ctx context.Context, productID int64, limit int) ([]PriceRecord, error)
}

// NotificationRepository records delivered price-drop notifications.
type NotificationRepository interface {
	Record(ctx context.Context, productID int64, oldPrice, newPrice float64) error
}

// Notifier delivers price-drop alerts to the user.
type Notifier interface {
	NotifyPriceDrop(ctx context.Context, drop PriceDrop) error
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
