package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// PlaceOrder converts the caller's cart into a pending order. Stock is
// decremented and the cart lines are removed in the same transaction; when
// any step fails nothing is persisted.
func (s *OrderService) PlaceOrder(ctx context.Context, user models.CurrentUser, req *models.PlaceOrderRequest) (*models.Order, error) {
	address, err := ValidateShippingAddress(req.ShippingAddress)
	if err != nil {
		metrics.CheckoutFailuresTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	s.logger.Info("Placing order", logging.Fields{"user_id": user.ID})

	var (
		order      *models.Order
		productIDs []uint
	)
	err = s.checkout.WithinCheckout(ctx, func(tx repository.CheckoutTx) error {
		if err := tx.LockUser(ctx, user.ID); err != nil {
			return err
		}

		items, err := tx.LockCart(ctx, user.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errors.ErrEmptyCart
		}

		draft, demand, err := draftOrder(user.ID, address, items)
		if err != nil {
			return err
		}

		if err := tx.CreateOrder(ctx, draft); err != nil {
			return err
		}

		productIDs = sortedProductIDs(demand)
		for _, id := range productIDs {
			ok, err := tx.DecrementStock(ctx, id, demand[id])
			if err != nil {
				return err
			}
			if !ok {
				return errors.NewConflictError("insufficient stock").
					WithDetail("productId", id).
					WithDetail("requested", demand[id])
			}
		}

		cartIDs := make([]uint, len(items))
		for i, item := range items {
			cartIDs[i] = item.ID
		}
		if err := tx.DeleteCartItems(ctx, user.ID, cartIDs); err != nil {
			return err
		}

		order, err = tx.LoadOrder(ctx, draft.ID)
		return err
	})
	if err != nil {
		metrics.CheckoutFailuresTotal.WithLabelValues(checkoutFailureReason(err)).Inc()
		s.logger.Warn("Checkout failed", logging.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return nil, err
	}

	metrics.OrdersPlacedTotal.Inc()
	metrics.OrderRevenueTotal.Add(order.Total.InexactFloat64())

	if s.products != nil {
		s.products.InvalidateProducts(ctx, productIDs...)
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.PublishOrderCreated(ctx, order); err != nil {
			// Log but don't fail
			s.logger.Error("Failed to publish order created event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	if s.notificationsEnabled() {
		go s.sendOrderConfirmationNotification(context.Background(), order)
	}

	s.logger.Info("Order placed", logging.Fields{
		"order_id": order.ID,
		"user_id":  user.ID,
		"total":    order.Total.StringFixed(2),
		"items":    len(order.Items),
	})
	return order, nil
}

// draftOrder prices the locked cart lines and checks them against the locked
// stock. demand is the total quantity requested per product.
func draftOrder(userID string, address models.ShippingAddress, items []models.CartItem) (*models.Order, map[uint]int, error) {
	demand := make(map[uint]int, len(items))
	products := make(map[uint]*models.Product, len(items))
	orderItems := make([]models.OrderItem, 0, len(items))

	for _, item := range items {
		product := item.Product
		if product == nil || !product.IsActive {
			return nil, nil, errors.NewConflictError("product is no longer available").
				WithDetail("productId", item.ProductID)
		}
		products[product.ID] = product
		demand[product.ID] += item.Quantity

		orderItems = append(orderItems, models.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
			Size:      item.Size,
		})
	}

	for id, requested := range demand {
		if available := products[id].Stock; requested > available {
			return nil, nil, errors.NewConflictError(fmt.Sprintf("insufficient stock for %s", products[id].Name)).
				WithDetail("productId", id).
				WithDetail("requested", requested).
				WithDetail("available", available)
		}
	}

	return &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPending,
		Total:           CalculateOrderTotal(orderItems),
		ShippingAddress: address,
		Items:           orderItems,
	}, demand, nil
}

func sortedProductIDs(demand map[uint]int) []uint {
	ids := make([]uint, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func checkoutFailureReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, errors.ErrConflict):
		return "conflict"
	case errors.Is(err, errors.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
