package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	tracker    *usecase.TrackerService
	comparison *usecase.ComparisonService
	stock      domain.StockClient
}

// NewHandler creates a new HTTP handler
func NewHandler(tracker *usecase.TrackerService, comparison *usecase.ComparisonService, stock domain.StockClient) *Handler {
	return &Handler{
		tracker:    tracker,
		comparison: comparison,
		stock:      stock,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
	})
}

type trackRequest struct {
	UserID string `json:"userId" binding:"required"`
	URL    string `json:"url" binding:"required"`
}

// TrackProduct starts tracking a product by Officeworks URL or product code.
func (h *Handler) TrackProduct(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and url are required"})
		return
	}

	product, err := h.tracker.Track(c.Request.Context(), req.UserID, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyTracked):
			c.JSON(http.StatusConflict, gin.H{"error": "product is already tracked"})
		case errors.Is(err, domain.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found at retailer"})
		case errors.Is(err, domain.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to look up product"})
		}
		return
	}

	c.JSON(http.StatusCreated, product)
}

// ListProducts returns the user's tracked products.
func (h *Handler) ListProducts(c *gin.Context) {
	userID := c.Query("user")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user query parameter is required"})
		return
	}

	products, err := h.tracker.ListProducts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// UntrackProduct stops tracking a product.
func (h *Handler) UntrackProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := h.tracker.Untrack(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to untrack product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "untracked"})
}

// ProductHistory returns a product's recorded price history.
func (h *Handler) ProductHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.tracker.History(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load price history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history, "count": len(history)})
}

// CheckProduct runs an immediate price check for a tracked product.
func (h *Handler) CheckProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, drop, err := h.tracker.CheckProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "price check failed"})
		return
	}

	resp := gin.H{"product": product}
	if drop != nil {
		resp["priceDrop"] = drop
	}
	c.JSON(http.StatusOK, resp)
}

type compareRequest struct {
	ProductName    string  `json:"productName" binding:"required"`
	ReferencePrice float64 `json:"referencePrice" binding:"required,gt=0"`
	MaxRetailers   int     `json:"maxRetailers"`
}

// CompareProduct fans the product query out to competitor retailers and
// returns the ranked comparison summary.
func (h *Handler) CompareProduct(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productName and a positive referencePrice are required"})
		return
	}

	summary, err := h.comparison.Compare(c.Request.Context(), req.ProductName, req.ReferencePrice, req.MaxRetailers)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "comparison failed"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// StoreAvailability returns per-store stock for a product code in a state.
func (h *Handler) StoreAvailability(c *gin.Context) {
	code := c.Param("code")
	state := c.Param("state")

	stores, err := h.stock.GetStoreAvailability(c.Request.Context(), code, state)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "availability lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stores": stores, "count": len(stores)})
}
