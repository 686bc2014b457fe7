package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// GetCart handles GET /api/cart
func (h *Handlers) GetCart(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}

	view, err := h.cart.ListItems(c.Request.Context(), user)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// AddToCart handles POST /api/cart. Responds 201 for a new line and 200 when
// the quantity was merged into an existing one.
func (h *Handlers) AddToCart(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}

	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	item, merged, err := h.cart.AddItem(c.Request.Context(), user, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	status := http.StatusCreated
	if merged {
		status = http.StatusOK
	}
	c.JSON(status, item)
}

// UpdateCartItem handles PUT /api/cart/:id
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	item, err := h.cart.UpdateQuantity(c.Request.Context(), user, id, *req.Quantity)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// RemoveCartItem handles DELETE /api/cart/:id
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.cart.RemoveItem(c.Request.Context(), user, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
