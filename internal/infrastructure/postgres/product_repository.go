package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pricelens/backend/internal/domain"
)

// ProductRepository persists tracked products. Implements
// domain.ProductRepository.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a product repository on the given database.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, user_id, code, name, COALESCE(url, ''), current_price, lowest_price, last_checked, is_active, created_at`

// Add inserts a tracked product. Re-tracking the same code for a user returns
// domain.ErrAlreadyTracked.
func (r *ProductRepository) Add(ctx context.Context, userID, code, name, url string, price float64) (*domain.TrackedProduct, error) {
	query := `
		INSERT INTO tracked_products (user_id, code, name, url, current_price, lowest_price, last_checked)
		VALUES ($1, $2, $3, $4, $5, $5, $6)
		RETURNING ` + productColumns

	var p domain.TrackedProduct
	err := r.db.QueryRowContext(ctx, query, userID, code, name, url, price, time.Now()).Scan(
		&p.ID, &p.UserID, &p.Code, &p.Name, &p.URL,
		&p.CurrentPrice, &p.LowestPrice, &p.LastChecked, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, domain.ErrAlreadyTracked
		}
		return nil, fmt.Errorf("failed to add tracked product: %w", err)
	}

	return &p, nil
}

// GetByID fetches one active tracked product.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.TrackedProduct, error) {
	query := `SELECT ` + productColumns + ` FROM tracked_products WHERE id = $1 AND is_active = true`

	var p domain.TrackedProduct
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Code, &p.Name, &p.URL,
		&p.CurrentPrice, &p.LowestPrice, &p.LastChecked, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get tracked product: %w", err)
	}

	return &p, nil
}

// ListByUser returns a user's active tracked products, newest first.
func (r *ProductRepository) ListByUser(ctx context.Context, userID string) ([]domain.TrackedProduct, error) {
	query := `SELECT ` + productColumns + ` FROM tracked_products WHERE user_id = $1 AND is_active = true ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// ListActive returns every active tracked product across all users.
func (r *ProductRepository) ListActive(ctx context.Context) ([]domain.TrackedProduct, error) {
	query := `SELECT ` + productColumns + ` FROM tracked_products WHERE is_active = true ORDER BY last_checked ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// UpdatePrice stores a freshly observed price and refreshes the lowest seen.
func (r *ProductRepository) UpdatePrice(ctx context.Context, id int64, price float64) error {
	query := `
		UPDATE tracked_products
		SET current_price = $2,
		    lowest_price = LEAST(NULLIF(lowest_price, 0), $2),
		    last_checked = $3
		WHERE id = $1 AND is_active = true`

	res, err := r.db.ExecContext(ctx, query, id, price, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// Deactivate soft-deletes a tracked product.
func (r *ProductRepository) Deactivate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tracked_products SET is_active = false WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func scanProducts(rows *sql.Rows) ([]domain.TrackedProduct, error) {
	var products []domain.TrackedProduct
	for rows.Next() {
		var p domain.TrackedProduct
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Code, &p.Name, &p.URL,
			&p.CurrentPrice, &p.LowestPrice, &p.LastChecked, &p.IsActive, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
