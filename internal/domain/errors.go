package domain

import "errors"

var (
	// ErrProductNotFound is returned when a product cannot be found at the retailer
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrStockAPIFailure is returned when the retailer stock API request fails
	ErrStockAPIFailure = errors.New("stock API request failed")

	// ErrFetchFailure is returned when the content fetch service request fails
	ErrFetchFailure = errors.New("content fetch request failed")

	// ErrAlreadyTracked is returned when a user tracks the same product twice
	ErrAlreadyTracked = errors.New("product already tracked")
)
