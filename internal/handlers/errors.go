package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

func (h *Handlers) handleError(c *gin.Context, err error) {
	var validationErr *errors.ValidationError
	var conflictErr *errors.ConflictError

	switch {
	case errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errors.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty", "code": "empty_cart"})
	case errors.Is(err, errors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"details": validationErr.Details,
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   conflictErr.Message,
			"details": conflictErr.Details,
		})
	case errors.Is(err, errors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		h.logger.Error("Request failed", logging.Fields{
			"path":       c.FullPath(),
			"request_id": middleware.RequestIDFromContext(c.Request.Context()),
			"error":      err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindError reports a request body or query that failed to bind.
func (h *Handlers) bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = describeFieldError(fe)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": details})
		return
	}

	h.logger.Debug("Failed to bind request", logging.Fields{"error": err.Error()})
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "category":
		return "must be one of men, women, kids, sports"
	case "orderstatus":
		return "must be one of pending, processing, shipped, delivered, cancelled"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// pathID parses a positive numeric path parameter.
func (h *Handlers) pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		h.handleError(c, errors.NewValidationError(name, "must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

// queryInt parses an optional integer query parameter. An absent parameter
// yields 0.
func (h *Handlers) queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		h.handleError(c, errors.NewValidationError(name, "must be an integer"))
		return 0, false
	}
	return n, true
}

// caller returns the authenticated user or responds 401.
func (h *Handlers) caller(c *gin.Context) (models.CurrentUser, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.handleError(c, errors.ErrUnauthorized)
		return models.CurrentUser{}, false
	}
	return user, true
}
