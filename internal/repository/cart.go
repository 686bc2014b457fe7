package repository

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"gorm.io/gorm"
)

// PostgresCartRepository stores cart lines through gorm.
type PostgresCartRepository struct {
	db     *gorm.DB
	logger *logging.LoggerV2
}

func NewPostgresCartRepository(db *gorm.DB, logger *logging.LoggerV2) *PostgresCartRepository {
	return &PostgresCartRepository{db: db, logger: logger}
}

// ListByUser returns the user's cart with products, newest first.
func (r *PostgresCartRepository) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	items := make([]models.CartItem, 0)
	err := retryOnce(ctx, r.logger, "list cart", func() error {
		return r.db.WithContext(ctx).
			Preload("Product").
			Where("user_id = ?", userID).
			Order("created_at DESC").Order("id DESC").
			Find(&items).Error
	})
	if err != nil {
		r.logger.Error("Failed to list cart", logging.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, translateError(err)
	}
	return items, nil
}

// AddOrMerge is a single INSERT ... ON CONFLICT statement, so concurrent adds
// of the same line never produce duplicates or lose quantity.
func (r *PostgresCartRepository) AddOrMerge(ctx context.Context, item *models.CartItem) (*models.CartItem, bool, error) {
	r.logger.Debug("Adding cart line", logging.Fields{
		"user_id":    item.UserID,
		"product_id": item.ProductID,
		"size":       item.Size,
		"quantity":   item.Quantity,
	})

	var res cartUpsertResult
	err := retryOnce(ctx, r.logger, "add cart line", func() error {
		return upsertCartLine(r.db.WithContext(ctx), item).Scan(&res).Error
	})
	if err != nil {
		r.logger.Error("Failed to add cart line", logging.Fields{
			"user_id": item.UserID,
			"error":   err.Error(),
		})
		return nil, false, translateError(err)
	}

	stored, err := r.get(ctx, item.UserID, res.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, !res.Inserted, nil
}

// cartUpsertResult is the RETURNING row of upsertCartLine. xmax is zero only
// for a row version created by an INSERT, so Inserted stays exact under
// concurrent adds of the same line.
type cartUpsertResult struct {
	ID       uint
	Inserted bool
}

const upsertCartLineSQL = `INSERT INTO cart_items (user_id, product_id, size, quantity, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, product_id, size) DO UPDATE SET
	quantity = cart_items.quantity + EXCLUDED.quantity,
	updated_at = EXCLUDED.updated_at
RETURNING id, (xmax = 0) AS inserted`

func upsertCartLine(db *gorm.DB, item *models.CartItem) *gorm.DB {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	return db.Raw(upsertCartLineSQL, item.UserID, item.ProductID, item.Size, item.Quantity, item.CreatedAt, item.UpdatedAt)
}

func (r *PostgresCartRepository) UpdateQuantity(ctx context.Context, userID string, id uint, quantity int) (*models.CartItem, error) {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.ErrNotFound
	}
	return r.get(ctx, userID, id)
}

func (r *PostgresCartRepository) Delete(ctx context.Context, userID string, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func (r *PostgresCartRepository) ClearByUser(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return translateError(res.Error)
	}

	r.logger.Info("Cart cleared", logging.Fields{
		"user_id": userID,
		"lines":   res.RowsAffected,
	})
	return nil
}

func (r *PostgresCartRepository) get(ctx context.Context, userID string, id uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).Preload("Product").
		Where("id = ? AND user_id = ?", id, userID).
		First(&item).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &item, nil
}
