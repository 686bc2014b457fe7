package service

import (
	"context"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// CartService manages a user's cart lines.
type CartService struct {
	cart     repository.CartRepository
	products repository.ProductRepository
	logger   *logging.LoggerV2
}

func NewCartService(cart repository.CartRepository, products repository.ProductRepository) *CartService {
	return &CartService{
		cart:     cart,
		products: products,
		logger:   logging.NewLoggerV2("cart-service"),
	}
}

// AddItem adds a line or merges it into the existing (product, size) line.
// merged is true when an existing line absorbed the quantity.
func (s *CartService) AddItem(ctx context.Context, user models.CurrentUser, req *models.AddToCartRequest) (*models.CartItem, bool, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, false, errors.NewValidationError("quantity", "must be at least 1")
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, false, err
	}
	if !product.IsActive {
		return nil, false, errors.ErrNotFound
	}

	size := strings.TrimSpace(req.Size)
	if len(product.Sizes) == 0 {
		size = ""
	} else if !product.HasSize(size) {
		err := errors.NewValidationError("size", "size is not offered for this product")
		err.Details["available"] = strings.Join(product.Sizes, ",")
		return nil, false, err
	}

	item, merged, err := s.cart.AddOrMerge(ctx, &models.CartItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Size:      size,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, false, err
	}

	op := "add"
	if merged {
		op = "merge"
	}
	metrics.CartMutationsTotal.WithLabelValues(op).Inc()

	s.logger.Info("Cart line saved", logging.Fields{
		"user_id":    user.ID,
		"product_id": product.ID,
		"size":       size,
		"quantity":   item.Quantity,
		"merged":     merged,
	})
	return item, merged, nil
}

// UpdateQuantity sets a line's quantity, clamping values below 1 to 1.
func (s *CartService) UpdateQuantity(ctx context.Context, user models.CurrentUser, id uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}

	item, err := s.cart.UpdateQuantity(ctx, user.ID, id, quantity)
	if err != nil {
		return nil, err
	}

	metrics.CartMutationsTotal.WithLabelValues("update").Inc()
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, user models.CurrentUser, id uint) error {
	if err := s.cart.Delete(ctx, user.ID, id); err != nil {
		return err
	}

	metrics.CartMutationsTotal.WithLabelValues("remove").Inc()
	return nil
}

// ListItems returns the cart with its subtotal at current prices.
func (s *CartService) ListItems(ctx context.Context, user models.CurrentUser) (*models.CartView, error) {
	items, err := s.cart.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, item := range items {
		count += item.Quantity
	}

	return &models.CartView{
		Items:     items,
		ItemCount: count,
		Subtotal:  CalculateCartSubtotal(items),
	}, nil
}

func (s *CartService) ClearCart(ctx context.Context, user models.CurrentUser) error {
	if err := s.cart.ClearByUser(ctx, user.ID); err != nil {
		return err
	}

	metrics.CartMutationsTotal.WithLabelValues("clear").Inc()
	return nil
}
