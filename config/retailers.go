package config

import "github.com/pricelens/backend/internal/domain"

// Retailers returns the built-in retailer profiles used for price comparison.
// Officeworks is the home retailer: its prices come from the stock API, so the
// comparison fan-out skips it.
func Retailers() []domain.RetailerProfile {
	return []domain.RetailerProfile{
		{
			Name:      "JB Hi-Fi",
			BaseURL:   "https://www.jbhifi.com.au",
			SearchURL: "https://www.jbhifi.com.au/search?query={query}",
			PriceSelectors: []string{
				".price-current",
				".price .price-value",
				".pricing .current-price",
				".price-now",
				`[data-testid="price"]`,
				".ProductPrice__price",
				".ProductPrice__price span",
				".ProductTile__Price",
				`[data-component="ProductPrice"]`,
			},
			TitleSelectors: []string{
				".product-title",
				".product-name",
				"h1.title",
				".product-heading",
				`[data-testid="product-title"]`,
				".ProductTile__Title",
				`[data-component="ProductName"]`,
			},
			LinkSelectors: []string{
				".product-item a",
				".product-card a",
				".product-link",
				".ProductTile__Body a",
			},
			MatchThreshold: 0.3,
		},
		{
			Name:      "Harvey Norman",
			BaseURL:   "https://www.harveynorman.com.au",
			SearchURL: "https://www.harveynorman.com.au/catalogsearch/result/?q={query}",
			PriceSelectors: []string{
				".price-current",
				".current-price",
				".price .now",
				".pricing-price",
				".price-display",
				".special-price .price",
				".regular-price .price",
				".price-box .price",
				".price-container span.price",
			},
			TitleSelectors: []string{
				".product-title",
				".product-name",
				"h1.heading",
				".product-heading",
				".product-item-name",
				"h2.product-name",
				".product-item-link",
			},
			LinkSelectors: []string{
				".product-tile a",
				".product-item a",
				".product-item-link",
			},
			MatchThreshold: 0.3,
		},
		{
			Name:      "Amazon AU",
			BaseURL:   "https://www.amazon.com.au",
			SearchURL: "https://www.amazon.com.au/s?k={query}&ref=nb_sb_noss",
			PriceSelectors: []string{
				".a-price-whole",
				".a-price .a-offscreen",
				".a-price-symbol + .a-price-whole",
				".price .a-price-whole",
				".a-price-amount .a-offscreen",
				".sx-price .a-offscreen",
				".a-row .a-price .a-offscreen",
			},
			TitleSelectors: []string{
				`[data-cy="title-recipe"]`,
				".a-size-medium.a-color-base",
				".s-size-mini .a-color-base",
				"h2 .a-link-normal .a-text-normal",
				".s-link-style .a-text-normal",
				"h3.s-size-mini span",
				".a-text-normal.a-color-base.a-size-base-plus",
			},
			LinkSelectors: []string{
				`[data-cy="title-recipe"] a`,
				".s-product-image-container a",
				".a-link-normal",
				".s-link-style",
			},
			MatchThreshold: 0.3,
		},
		{
			Name:      "The Good Guys",
			BaseURL:   "https://www.thegoodguys.com.au",
			SearchURL: "https://www.thegoodguys.com.au/search?q={query}",
			PriceSelectors: []string{
				".price",
				".product-price",
				".current-price",
				".sale-price",
				".price-current",
				".pricing .price",
				".pricing .price-now",
				".ProductPrice span",
			},
			TitleSelectors: []string{
				".product-title",
				".product-name",
				"h3.product-title",
				"h4.product-title",
				".product-item-name",
				".title",
				".ProductName",
			},
			LinkSelectors: []string{
				".product-tile a",
				".product-item a",
				".product-link",
				"a.product-title",
				".ProductCard a",
			},
			MatchThreshold: 0.3,
		},
		{
			Name:      "Officeworks",
			BaseURL:   "https://www.officeworks.com.au",
			SearchURL: "https://www.officeworks.com.au/shop/SearchDisplay?searchTerm={query}",
			PriceSelectors: []string{
				".price-current",
				".product-price .price",
				".current-price",
				".price-display",
			},
			TitleSelectors: []string{
				".product-title",
				".product-name",
				"h1.title",
			},
			LinkSelectors: []string{
				".product-item a",
				".product-card a",
			},
			MatchThreshold: 0.95,
			HomeRetailer:   true,
		},
	}
}
