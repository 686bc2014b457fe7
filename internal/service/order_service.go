package service

import (
	"context"
	"fmt"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// OrderEventPublisher receives order lifecycle events after they commit.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error
}

type NotificationSender interface {
	SendNotification(ctx context.Context, notification *models.Notification) error
}

// ProductInvalidator drops cached product data whose stock changed.
type ProductInvalidator interface {
	InvalidateProducts(ctx context.Context, ids ...uint)
}

// OrderService handles checkout and the order lifecycle.
type OrderService struct {
	orders             repository.OrderRepository
	checkout           repository.CheckoutStore
	products           ProductInvalidator
	eventPublisher     OrderEventPublisher
	notificationClient NotificationSender
	config             *config.Config
	logger             *logging.LoggerV2
}

// NewOrderService creates a new order service. products, eventPublisher and
// notificationClient may be nil.
func NewOrderService(
	orders repository.OrderRepository,
	checkout repository.CheckoutStore,
	products ProductInvalidator,
	eventPublisher OrderEventPublisher,
	notificationClient NotificationSender,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		orders:             orders,
		checkout:           checkout,
		products:           products,
		eventPublisher:     eventPublisher,
		notificationClient: notificationClient,
		config:             cfg,
		logger:             logging.NewLoggerV2("order-service"),
	}
}

func (s *OrderService) notificationsEnabled() bool {
	return s.notificationClient != nil && s.config.Features.EnableNotifications
}

// GetOrder returns an order visible to caller. Orders owned by someone else
// are reported as not found unless caller is an admin.
func (s *OrderService) GetOrder(ctx context.Context, caller models.CurrentUser, id uint) (*models.Order, error) {
	s.logger.Debug("Getting order", logging.Fields{"order_id": id})

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && order.UserID != caller.ID {
		return nil, errors.ErrNotFound
	}
	return order, nil
}

// ListOrders returns the caller's orders, newest first. Admins see every
// order and may narrow by filter.UserID.
func (s *OrderService) ListOrders(ctx context.Context, caller models.CurrentUser, filter *models.OrderListFilter) ([]models.Order, int64, error) {
	if filter == nil {
		filter = &models.OrderListFilter{}
	}
	if !caller.IsAdmin() {
		filter.UserID = caller.ID
	}
	if err := ValidateOrderListFilter(filter); err != nil {
		return nil, 0, err
	}

	s.logger.Debug("Listing orders", logging.Fields{
		"user_id": filter.UserID,
		"status":  filter.Status,
	})

	return s.orders.List(ctx, filter)
}

// SetStatus moves an order along the fulfillment state machine. Setting the
// current status again is a no-op.
func (s *OrderService) SetStatus(ctx context.Context, caller models.CurrentUser, id uint, status models.OrderStatus) (*models.Order, error) {
	if !caller.IsAdmin() {
		return nil, errors.ErrForbidden
	}
	if !status.Valid() {
		return nil, errors.NewValidationError("status", fmt.Sprintf("unknown order status %q", status))
	}

	current, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}

	if !isValidStatusTransition(current.Status, status) {
		return nil, errors.NewConflictError(fmt.Sprintf(
			"invalid status transition from %s to %s",
			current.Status,
			status,
		)).WithDetail("from", current.Status).WithDetail("to", status)
	}

	s.logger.Info("Updating order status", logging.Fields{
		"order_id":   id,
		"from":       current.Status,
		"new_status": status,
		"actor":      caller.ID,
	})

	previousStatus := current.Status
	order, err := s.orders.UpdateStatus(ctx, id, previousStatus, status)
	if err != nil {
		return nil, err
	}

	metrics.OrderStatusTransitionsTotal.WithLabelValues(string(previousStatus), string(status)).Inc()

	if s.eventPublisher != nil {
		if err := s.eventPublisher.PublishOrderStatusChanged(ctx, order, previousStatus); err != nil {
			s.logger.Error("Failed to publish status change event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	if s.notificationsEnabled() {
		go s.sendStatusChangeNotification(context.Background(), order)
	}

	return order, nil
}

func (s *OrderService) sendOrderConfirmationNotification(ctx context.Context, order *models.Order) {
	notification := &models.Notification{
		UserID:  order.UserID,
		Type:    models.NotificationTypeOrderConfirmation,
		Channel: "email",
		Subject: "Order Confirmation",
		Body:    fmt.Sprintf("Your order #%d has been received.", order.ID),
		Metadata: map[string]string{
			"order_id": fmt.Sprint(order.ID),
			"total":    order.Total.StringFixed(2),
		},
	}

	if err := s.notificationClient.SendNotification(ctx, notification); err != nil {
		s.logger.Error("Failed to send order confirmation", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func (s *OrderService) sendStatusChangeNotification(ctx context.Context, order *models.Order) {
	var notificationType models.NotificationType
	var subject, body string

	switch order.Status {
	case models.OrderStatusShipped:
		notificationType = models.NotificationTypeOrderShipped
		subject = "Order Shipped"
		body = fmt.Sprintf("Your order #%d has been shipped.", order.ID)
	case models.OrderStatusDelivered:
		notificationType = models.NotificationTypeOrderDelivered
		subject = "Order Delivered"
		body = fmt.Sprintf("Your order #%d has been delivered.", order.ID)
	case models.OrderStatusCancelled:
		notificationType = models.NotificationTypeOrderCancelled
		subject = "Order Cancelled"
		body = fmt.Sprintf("Your order #%d has been cancelled.", order.ID)
	default:
		return // No notification for other status changes
	}

	notification := &models.Notification{
		UserID:   order.UserID,
		Type:     notificationType,
		Channel:  "email",
		Subject:  subject,
		Body:     body,
		Metadata: map[string]string{"order_id": fmt.Sprint(order.ID)},
	}

	if err := s.notificationClient.SendNotification(ctx, notification); err != nil {
		s.logger.Error("Failed to send status change notification", logging.Fields{
			"order_id": order.ID,
			"error":    err.Error(),
		})
	}
}

func isValidStatusTransition(from, to models.OrderStatus) bool {
	validTransitions := map[models.OrderStatus][]models.OrderStatus{
		models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled},
		models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled},
		models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
		models.OrderStatusDelivered:  {},
		models.OrderStatusCancelled:  {},
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}
