// Package postgres provides the persistence layer for tracked products and
// their price history.
package postgres

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("[DB] Connected to database")
	return db, nil
}

// InitSchema creates the tables if they don't exist.
func InitSchema(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tracked_products (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			code TEXT NOT NULL,
			name TEXT NOT NULL,
			url TEXT,
			current_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			lowest_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			last_checked TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, code)
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id SERIAL PRIMARY KEY,
			product_id INTEGER REFERENCES tracked_products(id) ON DELETE CASCADE,
			price DECIMAL(10,2) NOT NULL,
			checked_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			product_id INTEGER REFERENCES tracked_products(id) ON DELETE CASCADE,
			old_price DECIMAL(10,2) NOT NULL,
			new_price DECIMAL(10,2) NOT NULL,
			sent_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history(product_id, checked_at DESC)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Printf("[DB] Schema initialized")
	return nil
}
