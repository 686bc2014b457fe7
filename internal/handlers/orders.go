package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// PlaceOrder handles POST /api/orders
func (h *Handlers) PlaceOrder(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}

	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), user, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// ListOrders handles GET /api/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}

	limit, ok := h.queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := h.queryInt(c, "offset")
	if !ok {
		return
	}

	filter := &models.OrderListFilter{
		UserID: c.Query("userId"),
		Status: models.OrderStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), user, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetOrder handles GET /api/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), user, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus handles PUT /api/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	order, err := h.orders.SetStatus(c.Request.Context(), user, id, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
