package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
)

// GetAuthUser handles GET /api/auth/user
func (h *Handlers) GetAuthUser(c *gin.Context) {
	user, ok := middleware.User(c)
	if !ok {
		h.handleError(c, errors.ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, user)
}
