package domain

import "time"

// ProductInfo is the live product record returned by the retailer stock API.
type ProductInfo struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Image       string  `json:"image,omitempty"`
	Price       float64 `json:"price"` // 0 means no usable price
}

// TrackedProduct is a product a user is watching for price drops.
type TrackedProduct struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	URL          string    `json:"url,omitempty"`
	CurrentPrice float64   `json:"currentPrice"`
	LowestPrice  float64   `json:"lowestPrice"`
	LastChecked  time.Time `json:"lastChecked"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PriceRecord is one point in a product's price history.
type PriceRecord struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Price     float64   `json:"price"`
	CheckedAt time.Time `json:"checkedAt"`
}

// PriceDrop describes a detected price decrease on a tracked product.
type PriceDrop struct {
	Product  TrackedProduct `json:"product"`
	OldPrice float64        `json:"oldPrice"`
	NewPrice float64        `json:"newPrice"`
}

// Savings returns the absolute drop amount.
func (d PriceDrop) Savings() float64 {
	return d.OldPrice - d.NewPrice
}

// Percent returns the drop as a percentage of the old price.
func (d PriceDrop) Percent() float64 {
	if d.OldPrice <= 0 {
		return 0
	}
	return (d.OldPrice - d.NewPrice) / d.OldPrice * 100
}

// StoreAvailability is per-store stock information from the retailer API.
type StoreAvailability struct {
	StoreID  string `json:"storeId"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Suburb   string `json:"suburb,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	State    string `json:"state,omitempty"`
	Phone    string `json:"phone,omitempty"`
	InStock  bool   `json:"inStock"`
}
