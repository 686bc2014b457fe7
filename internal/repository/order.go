package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"gorm.io/gorm"
)

// PostgresOrderRepository reads orders and applies status changes.
// Orders are only created by the checkout transaction.
type PostgresOrderRepository struct {
	db     *gorm.DB
	logger *logging.LoggerV2
}

func NewPostgresOrderRepository(db *gorm.DB, logger *logging.LoggerV2) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db, logger: logger}
}

func withOrderItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product")
}

// GetByID retrieves an order with its items and their products.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	r.logger.Debug("Fetching order by ID", logging.Fields{"order_id": id})

	var order models.Order
	err := retryOnce(ctx, r.logger, "get order", func() error {
		return withOrderItems(r.db.WithContext(ctx)).First(&order, id).Error
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Error("Failed to fetch order", logging.Fields{
				"order_id": id,
				"error":    err.Error(),
			})
		}
		return nil, translateError(err)
	}
	return &order, nil
}

// List retrieves orders newest first along with the unpaged total.
func (r *PostgresOrderRepository) List(ctx context.Context, filter *models.OrderListFilter) ([]models.Order, int64, error) {
	r.logger.Debug("Listing orders", logging.Fields{
		"user_id": filter.UserID,
		"status":  filter.Status,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})

	base := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != "" {
		base = base.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		base = base.Where("status = ?", filter.Status)
	}
	base = base.Session(&gorm.Session{})

	var total int64
	orders := make([]models.Order, 0)
	err := retryOnce(ctx, r.logger, "list orders", func() error {
		if err := base.Count(&total).Error; err != nil {
			return err
		}
		return withOrderItems(base).
			Order("created_at DESC").Order("id DESC").
			Limit(filter.Limit).Offset(filter.Offset).
			Find(&orders).Error
	})
	if err != nil {
		r.logger.Error("Failed to list orders", logging.Fields{"error": err.Error()})
		return nil, 0, translateError(err)
	}

	return orders, total, nil
}

func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus) (*models.Order, error) {
	r.logger.Debug("Updating order status", logging.Fields{
		"order_id":   id,
		"old_status": from,
		"new_status": to,
	})

	var res *gorm.DB
	err := retryOnce(ctx, r.logger, "update order status", func() error {
		res = r.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
		return res.Error
	})
	if err != nil {
		r.logger.Error("Failed to update order status", logging.Fields{
			"order_id": id,
			"error":    err.Error(),
		})
		return nil, translateError(err)
	}

	if res.RowsAffected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, errors.NewConflictError(fmt.Sprintf("order status changed concurrently to %s", current.Status)).
			WithDetail("status", current.Status)
	}

	r.logger.Info("Order status updated", logging.Fields{
		"order_id":   id,
		"new_status": to,
	})
	return r.GetByID(ctx, id)
}
