package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// CreateProduct handles POST /api/admin/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}

	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), user, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/admin/products/:id
func (h *Handlers) UpdateProduct(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), user, id, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/admin/products/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(c.Request.Context(), user, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Stats handles GET /api/admin/stats
func (h *Handlers) Stats(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}

	stats, err := h.stats.Stats(c.Request.Context(), user)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// OrderFeed handles GET /api/admin/orders/feed (websocket)
func (h *Handlers) OrderFeed(c *gin.Context) {
	if h.feed == nil || !h.config.Features.EnableOrderFeed {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	// The upgrader writes its own error response.
	if err := h.feed.Serve(c.Writer, c.Request); err != nil {
		h.logger.Warn("Order feed upgrade failed", logging.Fields{"error": err.Error()})
	}
}
