package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ru-digital/product-estimator/internal/estimates"
	"github.com/ru-digital/product-estimator/internal/fragments"
	"github.com/ru-digital/product-estimator/internal/logging"
	"github.com/ru-digital/product-estimator/internal/models"
)

// Catalog is the read-only catalog surface the estimator endpoints need.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*models.CatalogProduct, error)
	GetVariation(ctx context.Context, id int64) (*models.Variation, error)
}

// HealthChecker reports backing store health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler holds the collaborators behind the HTTP handlers
type Handler struct {
	catalog   Catalog
	estimates *estimates.Service
	fragments *fragments.Renderer
	health    HealthChecker
	timeout   time.Duration
}

// NewHandler creates a new handler instance. health may be nil when running without a database.
func NewHandler(catalog Catalog, svc *estimates.Service, renderer *fragments.Renderer, health HealthChecker, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{catalog: catalog, estimates: svc, fragments: renderer, health: health, timeout: timeout}
}

func ok(c *gin.Context, status int, data gin.H) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "data": gin.H{"message": message}})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.health.Health(ctx); err != nil {
		log.Printf("[HEALTH] database unhealthy: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}

// AddToEstimator handles POST /estimator/add
func (h *Handler) AddToEstimator(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var req struct {
		ProductID int64 `json:"product_id" form:"product_id"`
	}
	if err := c.ShouldBind(&req); err != nil || req.ProductID <= 0 {
		fail(c, http.StatusBadRequest, "Product ID is required")
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		log.Printf("Failed to look up product %d: %v", req.ProductID, err)
		fail(c, http.StatusInternalServerError, "Could not add product to estimator")
		return
	}
	if product == nil {
		// Variation ids are addable too
		variation, err := h.catalog.GetVariation(ctx, req.ProductID)
		if err != nil {
			log.Printf("Failed to look up variation %d: %v", req.ProductID, err)
			fail(c, http.StatusInternalServerError, "Could not add product to estimator")
			return
		}
		if variation == nil {
			fail(c, http.StatusNotFound, "Product not found")
			return
		}
	}

	ok(c, http.StatusOK, gin.H{"message": "Product added to estimator", "product_id": req.ProductID})
}

// GetVariationEstimator handles GET /estimator/variations/:id
func (h *Handler) GetVariationEstimator(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Variation ID is required")
		return
	}

	variation, err := h.catalog.GetVariation(ctx, id)
	if err != nil {
		log.Printf("Failed to look up variation %d: %v", id, err)
		fail(c, http.StatusInternalServerError, "Could not load variation")
		return
	}
	if variation == nil {
		fail(c, http.StatusNotFound, "Variation not found")
		return
	}

	html, err := h.fragments.Variation(*variation)
	if err != nil {
		log.Printf("Failed to render variation %d: %v", id, err)
		fail(c, http.StatusInternalServerError, "Could not load variation")
		return
	}
	ok(c, http.StatusOK, gin.H{"html": html})
}

// SubmitEstimate handles POST /estimates
func (h *Handler) SubmitEstimate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var req struct {
		Estimate        json.RawMessage        `json:"estimate"`
		CustomerDetails models.CustomerDetails `json:"customer_details"`
		Notes           string                 `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	candidate, err := estimates.ParseCandidate(req.Estimate)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid estimate payload")
		return
	}

	res, err := h.estimates.Submit(ctx, candidate, req.CustomerDetails, req.Notes)
	if err != nil {
		logging.LogKV("error", "estimate_submit_failed", map[string]interface{}{
			"request_id":  c.GetString("request_id"),
			"persistence": errors.Is(err, estimates.ErrPersistence),
			"error":       err.Error(),
		})
		fail(c, http.StatusInternalServerError, "Could not save estimate")
		return
	}

	message := "Estimate saved"
	if res.Updated {
		message = "Estimate updated"
	}
	ok(c, http.StatusOK, gin.H{"estimate_id": res.ID, "updated": res.Updated, "message": message})
}

// GetEstimate handles GET /admin/estimates/:id
func (h *Handler) GetEstimate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid estimate id")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	view, found, err := h.estimates.Get(ctx, id)
	if err != nil {
		log.Printf("Failed to load estimate %d: %v", id, err)
		fail(c, http.StatusInternalServerError, "Could not load estimate")
		return
	}
	if !found {
		fail(c, http.StatusNotFound, "Estimate not found")
		return
	}
	ok(c, http.StatusOK, gin.H{"estimate": view})
}
