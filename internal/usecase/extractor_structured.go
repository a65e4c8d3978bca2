package usecase

import (
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// NormalizeRawProducts converts records from the structured extraction
// service into candidates. The service is schema-driven but not strict:
// names sometimes arrive under "title" and prices as strings, so both are
// normalized here. Records without a usable name are dropped; price
// validation is left to selection so a zero-priced record can still be
// logged upstream.
func NormalizeRawProducts(products []domain.RawProduct, searchURL string) []domain.Candidate {
	var candidates []domain.Candidate

	for _, product := range products {
		title := strings.TrimSpace(product.Name)
		if title == "" {
			title = strings.TrimSpace(product.Title)
		}
		if title == "" {
			continue
		}

		url := product.URL
		if url == "" {
			url = searchURL
		}

		availability := product.Availability
		if availability == "" {
			availability = "unknown"
		}

		candidates = append(candidates, domain.Candidate{
			Title:        title,
			Price:        ParsePrice(product.Price),
			URL:          url,
			Availability: availability,
			Brand:        product.Brand,
			Model:        product.Model,
		})
	}

	return candidates
}
