// Package gemini provides structured product extraction backed by the Gemini
// API. It reads a retailer search page through the URL context tool and
// returns product records in a fixed JSON shape.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/pricelens/backend/internal/domain"
	"google.golang.org/genai"
)

const systemInstruction = `
You are a product listing extractor for Australian retail websites.

Read the retailer search results page at the provided URL and extract every
distinct product listing you can find. For each listing report:
- name: the full product title exactly as shown
- price: the current advertised price, including the dollar sign
- url: the listing's product page link when present
- availability: "in_stock", "out_of_stock" or "unknown"
- brand: the manufacturer brand when identifiable
- model: the model number or code when identifiable

Only report real product listings. Ignore navigation, advertising banners,
accessories carousels and "customers also bought" sections.
`

// Extractor implements domain.StructuredExtractor on top of Gemini.
type Extractor struct {
	apiKey string
	model  string
}

// NewExtractor creates a Gemini-backed extractor.
func NewExtractor(apiKey, model string) *Extractor {
	return &Extractor{apiKey: apiKey, model: model}
}

type extractionPayload struct {
	Products []domain.RawProduct `json:"products"`
}

// Extract asks Gemini for product records on the given page. Service failures
// are reported inside the result; the error return is reserved for context
// cancellation and client construction problems.
func (e *Extractor) Extract(ctx context.Context, pageURL, prompt string) (*domain.ExtractResult, error) {
	if e.apiKey == "" {
		return &domain.ExtractResult{
			Success: false,
			URL:     pageURL,
			Error:   "gemini API key not configured",
		}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	userPrompt := fmt.Sprintf("%s\n\nPage URL: %s", prompt, pageURL)

	systemContent := &genai.Content{
		Parts: []*genai.Part{{Text: systemInstruction}},
		Role:  "system",
	}
	userContent := &genai.Content{
		Parts: []*genai.Part{{Text: userPrompt}},
		Role:  "user",
	}

	tools := []*genai.Tool{
		{URLContext: &genai.URLContext{}},
	}

	resp, err := client.Models.GenerateContent(ctx, e.model,
		[]*genai.Content{systemContent, userContent},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema(),
			Tools:            tools,
		})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[Gemini] Extraction call failed for %s: %v", pageURL, err)
		return &domain.ExtractResult{Success: false, URL: pageURL, Error: err.Error()}, nil
	}

	respText := resp.Text()

	var payload extractionPayload
	if err := json.Unmarshal([]byte(respText), &payload); err != nil {
		log.Printf("[Gemini] Unparseable response for %s: %v", pageURL, err)
		return &domain.ExtractResult{
			Success: false,
			URL:     pageURL,
			Error:   fmt.Sprintf("unparseable extraction response: %v", err),
		}, nil
	}

	log.Printf("[Gemini] Extracted %d products from %s", len(payload.Products), pageURL)
	return &domain.ExtractResult{
		Success:  true,
		Products: payload.Products,
		URL:      pageURL,
	}, nil
}

func responseSchema() *genai.Schema {
	productSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":         {Type: genai.TypeString, Description: "Full product title as shown on the page."},
			"price":        {Type: genai.TypeString, Description: "Current advertised price, e.g. $749.00."},
			"url":          {Type: genai.TypeString, Description: "Product page link when present."},
			"availability": {Type: genai.TypeString, Description: "in_stock, out_of_stock or unknown."},
			"brand":        {Type: genai.TypeString, Description: "Manufacturer brand when identifiable."},
			"model":        {Type: genai.TypeString, Description: "Model number or code when identifiable."},
		},
		Required: []string{"name", "price"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"products": {
				Type:        genai.TypeArray,
				Items:       productSchema,
				Description: "Every distinct product listing on the page.",
			},
		},
		Required: []string{"products"},
	}
}
