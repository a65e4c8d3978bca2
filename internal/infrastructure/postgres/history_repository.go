package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pricelens/backend/internal/domain"
)

// HistoryRepository persists price points. Implements
// domain.PriceHistoryRepository.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a price history repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Record stores one observed price for a product.
func (r *HistoryRepository) Record(ctx context.Context, productID int64, price float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO price_history (product_id, price) VALUES ($1, $2)`,
		productID, price)
	if err != nil {
		return fmt.Errorf("failed to record price: %w", err)
	}
	return nil
}

// History returns the most recent price points for a product, newest first.
func (r *HistoryRepository) History(ctx context.Context, productID int64, limit int) ([]domain.PriceRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, price, checked_at
		 FROM price_history
		 WHERE product_id = $1
		 ORDER BY checked_at DESC
		 LIMIT $2`,
		productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var records []domain.PriceRecord
	for rows.Next() {
		var rec domain.PriceRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Price, &rec.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// NotificationRepository records delivered price-drop notifications.
// Implements domain.NotificationRepository.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a notification repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Record stores one delivered notification.
func (r *NotificationRepository) Record(ctx context.Context, productID int64, oldPrice, newPrice float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (product_id, old_price, new_price) VALUES ($1, $2, $3)`,
		productID, oldPrice, newPrice)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}
