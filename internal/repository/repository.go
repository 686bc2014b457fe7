package repository

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// Ensure the gorm repositories satisfy their interfaces.
var (
	_ ProductRepository = (*PostgresProductRepository)(nil)
	_ CartRepository    = (*PostgresCartRepository)(nil)
	_ OrderRepository   = (*PostgresOrderRepository)(nil)
	_ UserRepository    = (*PostgresUserRepository)(nil)
	_ StatsRepository   = (*PostgresStatsRepository)(nil)
	_ CheckoutStore     = (*PostgresCheckoutStore)(nil)
	_ ProductCache      = (*RedisProductCache)(nil)
)

type ProductRepository interface {
	List(ctx context.Context, filter *models.ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id uint, req *models.UpdateProductRequest) (*models.Product, error)
	Deactivate(ctx context.Context, id uint) error
}

// ProductCache returns (nil, nil) on a miss.
type ProductCache interface {
	Get(ctx context.Context, id uint) (*models.Product, error)
	Set(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, ids ...uint) error
}

type CartRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	// AddOrMerge inserts the line or adds its quantity to the existing
	// (user, product, size) line. merged reports which happened.
	AddOrMerge(ctx context.Context, item *models.CartItem) (result *models.CartItem, merged bool, err error)
	UpdateQuantity(ctx context.Context, userID string, id uint, quantity int) (*models.CartItem, error)
	Delete(ctx context.Context, userID string, id uint) error
	ClearByUser(ctx context.Context, userID string) error
}

type OrderRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	List(ctx context.Context, filter *models.OrderListFilter) ([]models.Order, int64, error)
	// UpdateStatus applies the change only if the order is still in status
	// from; otherwise it returns a conflict.
	UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus) (*models.Order, error)
}

type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type StatsRepository interface {
	Stats(ctx context.Context) (*models.StoreStats, error)
}

// CheckoutStore runs fn in a single database transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type CheckoutStore interface {
	WithinCheckout(ctx context.Context, fn func(tx CheckoutTx) error) error
}

// CheckoutTx is the set of operations available inside a checkout
// transaction. Lock methods hold row locks until the transaction ends.
type CheckoutTx interface {
	LockUser(ctx context.Context, userID string) error
	// LockCart returns the user's cart lines with their products, locking the
	// cart rows and the product rows (in product id order).
	LockCart(ctx context.Context, userID string) ([]models.CartItem, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	// DecrementStock subtracts quantity only if enough stock remains.
	DecrementStock(ctx context.Context, productID uint, quantity int) (bool, error)
	DeleteCartItems(ctx context.Context, userID string, ids []uint) error
	LoadOrder(ctx context.Context, id uint) (*models.Order, error)
}
