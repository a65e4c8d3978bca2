package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// TrackerConfig holds configuration for the tracker service.
type TrackerConfig struct {
	CheckPacing        time.Duration
	EnableDebugLogging bool
}

// TrackerService manages tracked products: registration against the home
// retailer's stock API, periodic price refresh, and drop notifications.
type TrackerService struct {
	products      domain.ProductRepository
	history       domain.PriceHistoryRepository
	notifications domain.NotificationRepository
	stock         domain.StockClient
	notifier      domain.Notifier

	checkPacing        time.Duration
	enableDebugLogging bool
}

// NewTrackerService creates a tracker service. The notifier may be nil
// when notifications are disabled.
func NewTrackerService(
	products domain.ProductRepository,
	history domain.PriceHistoryRepository,
	notifications domain.NotificationRepository,
	stock domain.StockClient,
	notifier domain.Notifier,
	config TrackerConfig,
) *TrackerService {
	pacing := config.CheckPacing
	if pacing <= 0 {
		pacing = time.Second
	}

	return &TrackerService{
		products:           products,
		history:            history,
		notifications:      notifications,
		stock:              stock,
		notifier:           notifier,
		checkPacing:        pacing,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// ExtractProductCode pulls the product code out of a home-retailer product
// URL: the last dash-separated segment, lowercased. A bare code passes
// through unchanged.
func ExtractProductCode(urlOrCode string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(urlOrCode), "/")
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndex(trimmed, "-"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return strings.ToLower(trimmed)
}

// Track registers a product for a user, validating it against the stock
// API first. Accepts either a product URL or a bare product code.
func (s *TrackerService) Track(ctx context.Context, userID, urlOrCode string) (*domain.TrackedProduct, error) {
	if userID == "" || urlOrCode == "" {
		return nil, domain.ErrInvalidRequest
	}

	code := ExtractProductCode(urlOrCode)
	if code == "" {
		return nil, domain.ErrInvalidRequest
	}

	info, err := s.stock.GetProductInfo(ctx, code)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Price <= 0 {
		return nil, domain.ErrProductNotFound
	}

	product, err := s.products.Add(ctx, userID, code, info.Name, info.URL, info.Price)
	if err != nil {
		return nil, err
	}

	if err := s.history.Record(ctx, product.ID, info.Price); err != nil {
		log.Printf("[TRACKER] failed to record initial price for %s: %v", code, err)
	}

	return product, nil
}

// ListProducts returns a user's tracked products.
func (s *TrackerService) ListProducts(ctx context.Context, userID string) ([]domain.TrackedProduct, error) {
	if userID == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.products.ListByUser(ctx, userID)
}

// Untrack soft-deletes a tracked product.
func (s *TrackerService) Untrack(ctx context.Context, id int64) error {
	return s.products.Deactivate(ctx, id)
}

// History returns the recorded price points for a product, newest first.
func (s *TrackerService) History(ctx context.Context, productID int64, limit int) ([]domain.PriceRecord, error) {
	return s.history.History(ctx, productID, limit)
}

// CheckProduct refreshes one product's price from the stock API, records
// the new point, and returns a PriceDrop when the price decreased. A nil
// drop with nil error means "checked, no drop".
func (s *TrackerService) CheckProduct(ctx context.Context, product *domain.TrackedProduct) (*domain.PriceDrop, error) {
	if product == nil {
		return nil, domain.ErrInvalidRequest
	}

	info, err := s.stock.GetProductInfo(ctx, product.Code)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Price <= 0 {
		return nil, fmt.Errorf("%w: no usable price for %s", domain.ErrProductNotFound, product.Code)
	}

	newPrice := info.Price
	oldPrice := product.CurrentPrice

	if err := s.products.UpdatePrice(ctx, product.ID, newPrice); err != nil {
		return nil, err
	}
	if err := s.history.Record(ctx, product.ID, newPrice); err != nil {
		log.Printf("[TRACKER] failed to record price history for %s: %v", product.Code, err)
	}

	if s.enableDebugLogging {
		log.Printf("[TRACKER] %s: $%.2f -> $%.2f", product.Code, oldPrice, newPrice)
	}

	if oldPrice <= 0 || newPrice >= oldPrice {
		return nil, nil
	}

	drop := &domain.PriceDrop{
		Product:  *product,
		OldPrice: oldPrice,
		NewPrice: newPrice,
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyPriceDrop(ctx, *drop); err != nil {
			log.Printf("[TRACKER] notification failed for %s: %v", product.Code, err)
		} else if err := s.notifications.Record(ctx, product.ID, oldPrice, newPrice); err != nil {
			log.Printf("[TRACKER] failed to record notification for %s: %v", product.Code, err)
		}
	}

	return drop, nil
}

// CheckProductByID is the manual-check entry point used by the API layer.
func (s *TrackerService) CheckProductByID(ctx context.Context, id int64) (*domain.TrackedProduct, *domain.PriceDrop, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	drop, err := s.CheckProduct(ctx, product)
	if err != nil {
		return nil, nil, err
	}

	// A failed re-read should not turn a successful check into an empty
	// response; the pre-check record is stale but real.
	refreshed, err := s.products.GetByID(ctx, id)
	if err != nil {
		return product, drop, nil
	}
	return refreshed, drop, nil
}

// CheckAll walks every active product with a pacing delay between stock
// API calls. One product's failure never aborts the sweep.
func (s *TrackerService) CheckAll(ctx context.Context) (checked, drops int) {
	products, err := s.products.ListActive(ctx)
	if err != nil {
		log.Printf("[TRACKER] failed to list active products: %v", err)
		return 0, 0
	}

	if len(products) == 0 {
		log.Printf("[TRACKER] no active products to check")
		return 0, 0
	}

	log.Printf("[TRACKER] checking prices for %d products", len(products))

	for i := range products {
		if ctx.Err() != nil {
			break
		}

		drop, err := s.CheckProduct(ctx, &products[i])
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("[TRACKER] check failed for %s: %v", products[i].Code, err)
			}
			continue
		}

		checked++
		if drop != nil {
			drops++
			log.Printf("[TRACKER] price drop for %s: $%.2f -> $%.2f (save $%.2f)",
				drop.Product.Code, drop.OldPrice, drop.NewPrice, drop.Savings())
		}

		if i < len(products)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(s.checkPacing):
			}
		}
	}

	return checked, drops
}
