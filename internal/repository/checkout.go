package repository

import (
	"context"
	"sort"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresCheckoutStore runs checkouts as one gorm transaction.
type PostgresCheckoutStore struct {
	db     *gorm.DB
	logger *logging.LoggerV2
}

func NewPostgresCheckoutStore(db *gorm.DB, logger *logging.LoggerV2) *PostgresCheckoutStore {
	return &PostgresCheckoutStore{db: db, logger: logger}
}

// WithinCheckout retries the whole transaction once on serialization
// failures and deadlocks.
func (s *PostgresCheckoutStore) WithinCheckout(ctx context.Context, fn func(tx CheckoutTx) error) error {
	err := retryOnce(ctx, s.logger, "checkout", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&postgresCheckoutTx{db: tx})
		})
	})
	return translateError(err)
}

type postgresCheckoutTx struct {
	db *gorm.DB
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func (t *postgresCheckoutTx) LockUser(ctx context.Context, userID string) error {
	var user models.User
	err := t.db.WithContext(ctx).Clauses(forUpdate).
		Select("id").
		Where("id = ?", userID).
		Take(&user).Error
	return translateError(err)
}

func (t *postgresCheckoutTx) LockCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	items := make([]models.CartItem, 0)
	err := t.db.WithContext(ctx).Clauses(forUpdate).
		Where("user_id = ?", userID).
		Order("id").
		Find(&items).Error
	if err != nil || len(items) == 0 {
		return items, translateError(err)
	}

	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var products []models.Product
	err = t.db.WithContext(ctx).Clauses(forUpdate).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, translateError(err)
	}

	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range items {
		items[i].Product = byID[items[i].ProductID]
	}

	return items, nil
}

// CreateOrder inserts the order and its items. Item products must be nil.
func (t *postgresCheckoutTx) CreateOrder(ctx context.Context, order *models.Order) error {
	err := t.db.WithContext(ctx).Create(order).Error
	return translateError(err)
}

func (t *postgresCheckoutTx) DecrementStock(ctx context.Context, productID uint, quantity int) (bool, error) {
	res := t.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *postgresCheckoutTx) DeleteCartItems(ctx context.Context, userID string, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&models.CartItem{}).Error
	return translateError(err)
}

func (t *postgresCheckoutTx) LoadOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := withOrderItems(t.db.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}
