package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB builds statements without a database connection.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, err := sql.Open("postgres", "host=localhost dbname=dryrun sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestListQuery_AllFilters(t *testing.T) {
	min := decimal.RequireFromString("10")
	max := decimal.RequireFromString("99.99")
	filter := &models.ProductFilter{
		Category:  models.CategorySports,
		Sizes:     []string{"9", "10"},
		Search:    "50% off",
		MinPrice:  &min,
		MaxPrice:  &max,
		SortBy:    models.SortByPrice,
		SortOrder: models.SortDesc,
	}

	stmt := listQuery(dryRunDB(t), filter).Find(&[]models.Product{}).Statement
	query := stmt.SQL.String()

	assert.Contains(t, query, `FROM "products"`)
	assert.Contains(t, query, "is_active = $1")
	assert.Contains(t, query, "category = $2")
	assert.Contains(t, query, "sizes && $3")
	assert.Contains(t, query, "name ILIKE $4")
	assert.Contains(t, query, "price >= $5")
	assert.Contains(t, query, "price <= $6")
	assert.Contains(t, query, `ORDER BY "price" DESC,"id"`)

	require.Len(t, stmt.Vars, 6)
	assert.Equal(t, true, stmt.Vars[0])
	assert.Equal(t, `%50\% off%`, stmt.Vars[3])
}

func TestListQuery_DefaultsToActiveByName(t *testing.T) {
	stmt := listQuery(dryRunDB(t), &models.ProductFilter{}).Find(&[]models.Product{}).Statement
	query := stmt.SQL.String()

	assert.Contains(t, query, "is_active = $1")
	assert.NotContains(t, query, "category")
	assert.NotContains(t, query, "sizes &&")
	assert.Contains(t, query, `ORDER BY "name","id"`)
	assert.Len(t, stmt.Vars, 1)
}

func TestUpsertCartLine_SQL(t *testing.T) {
	item := &models.CartItem{UserID: "u1", ProductID: 3, Size: "9", Quantity: 2}

	stmt := upsertCartLine(dryRunDB(t), item).Statement
	query := stmt.SQL.String()

	assert.Contains(t, query, "INSERT INTO cart_items")
	assert.Contains(t, query, "ON CONFLICT (user_id, product_id, size) DO UPDATE SET")
	assert.Contains(t, query, "cart_items.quantity + EXCLUDED.quantity")
	assert.Contains(t, query, "RETURNING id, (xmax = 0) AS inserted")
	assert.Contains(t, query, "VALUES ($1, $2, $3, $4, $5, $6)")
	require.Len(t, stmt.Vars, 6)
	assert.Equal(t, "u1", stmt.Vars[0])
	assert.Equal(t, 2, stmt.Vars[3])
	assert.False(t, item.CreatedAt.IsZero())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestProductUpdates_OnlyPresentFields(t *testing.T) {
	name := "Trail Runner"
	stock := 0
	sizes := []string{"8", "9"}

	updates := productUpdates(&models.UpdateProductRequest{Name: &name, Stock: &stock, Sizes: &sizes})

	assert.Len(t, updates, 3)
	assert.Equal(t, "Trail Runner", updates["name"])
	assert.Equal(t, 0, updates["stock"])
	assert.Equal(t, pq.StringArray{"8", "9"}, updates["sizes"])
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"record not found", gorm.ErrRecordNotFound, errors.ErrNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), errors.ErrNotFound},
		{"check violation", &pq.Error{Code: "23514", Constraint: "chk_products_stock"}, errors.ErrConflict},
		{"unique violation", &pq.Error{Code: "23505"}, errors.ErrConflict},
		{"foreign key violation", &pq.Error{Code: "23503"}, errors.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(translateError(tt.err), tt.expected))
		})
	}

	assert.Nil(t, translateError(nil))

	other := fmt.Errorf("boom")
	assert.Equal(t, other, translateError(other))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&pq.Error{Code: "40001"}))
	assert.True(t, isTransient(&pq.Error{Code: "40P01"}))
	assert.True(t, isTransient(fmt.Errorf("exec: %w", driver.ErrBadConn)))
	assert.False(t, isTransient(&pq.Error{Code: "23514"}))
	assert.False(t, isTransient(nil))
}

func TestRetryOnce(t *testing.T) {
	logger := logging.NewLoggerV2("test")
	ctx := context.Background()

	t.Run("retries transient failure once", func(t *testing.T) {
		calls := 0
		err := retryOnce(ctx, logger, "op", func() error {
			calls++
			if calls == 1 {
				return &pq.Error{Code: "40001"}
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after second transient failure", func(t *testing.T) {
		calls := 0
		err := retryOnce(ctx, logger, "op", func() error {
			calls++
			return &pq.Error{Code: "40P01"}
		})
		assert.Error(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("does not retry domain errors", func(t *testing.T) {
		calls := 0
		err := retryOnce(ctx, logger, "op", func() error {
			calls++
			return errors.ErrEmptyCart
		})
		assert.Equal(t, errors.ErrEmptyCart, err)
		assert.Equal(t, 1, calls)
	})
}

func TestProductKey(t *testing.T) {
	assert.Equal(t, "product:42", productKey(42))
}

// integrationDB connects to STOREFRONT_TEST_DSN and migrates the schema.
func integrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("STOREFRONT_TEST_DSN")
	if dsn == "" {
		t.Skip("Integration test - requires database (set STOREFRONT_TEST_DSN)")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := OpenGorm(sqlDB)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(context.Background(), db))
	return db
}

func TestPostgresCheckoutStore_Integration(t *testing.T) {
	db := integrationDB(t)
	ctx := context.Background()
	logger := logging.NewLoggerV2("repository-test")

	users := NewPostgresUserRepository(db, logger)
	products := NewPostgresProductRepository(db, logger)
	cart := NewPostgresCartRepository(db, logger)
	store := NewPostgresCheckoutStore(db, logger)

	userID := "it-" + uuid.NewString()
	_, err := users.Upsert(ctx, &models.User{ID: userID, Email: userID + "@example.com"})
	require.NoError(t, err)

	product := &models.Product{
		Name:     "Integration Runner",
		Price:    decimal.RequireFromString("49.99"),
		Category: models.CategorySports,
		Sizes:    pq.StringArray{"9"},
		Stock:    2,
		IsActive: true,
	}
	require.NoError(t, products.Create(ctx, product))

	_, merged, err := cart.AddOrMerge(ctx, &models.CartItem{UserID: userID, ProductID: product.ID, Size: "9", Quantity: 1})
	require.NoError(t, err)
	assert.False(t, merged)
	_, merged, err = cart.AddOrMerge(ctx, &models.CartItem{UserID: userID, ProductID: product.ID, Size: "9", Quantity: 1})
	require.NoError(t, err)
	assert.True(t, merged)

	t.Run("failed callback rolls back", func(t *testing.T) {
		boom := fmt.Errorf("boom")
		err := store.WithinCheckout(ctx, func(tx CheckoutTx) error {
			ok, err := tx.DecrementStock(ctx, product.ID, 1)
			require.NoError(t, err)
			require.True(t, ok)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		reloaded, err := products.GetByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.Stock)
	})

	t.Run("checkout decrements stock and clears the cart", func(t *testing.T) {
		var orderID uint
		err := store.WithinCheckout(ctx, func(tx CheckoutTx) error {
			require.NoError(t, tx.LockUser(ctx, userID))

			items, err := tx.LockCart(ctx, userID)
			require.NoError(t, err)
			require.Len(t, items, 1)
			require.Equal(t, 2, items[0].Quantity)
			require.NotNil(t, items[0].Product)

			ok, err := tx.DecrementStock(ctx, product.ID, 3)
			require.NoError(t, err)
			assert.False(t, ok, "stock never goes negative")

			order := &models.Order{
				UserID: userID,
				Status: models.OrderStatusPending,
				Total:  decimal.RequireFromString("99.98"),
				ShippingAddress: models.ShippingAddress{
					FirstName: "Ada", LastName: "Lovelace", Address: "1 Way",
					City: "London", State: "LDN", ZipCode: "N1", Country: "UK",
				},
				Items: []models.OrderItem{{ProductID: product.ID, Quantity: 2, Price: product.Price, Size: "9"}},
			}
			if err := tx.CreateOrder(ctx, order); err != nil {
				return err
			}
			orderID = order.ID

			ok, err = tx.DecrementStock(ctx, product.ID, 2)
			require.NoError(t, err)
			require.True(t, ok)

			return tx.DeleteCartItems(ctx, userID, []uint{items[0].ID})
		})
		require.NoError(t, err)

		reloaded, err := products.GetByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, reloaded.Stock)

		remaining, err := cart.ListByUser(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, remaining)

		order, err := NewPostgresOrderRepository(db, logger).GetByID(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, order.Items, 1)
		assert.Equal(t, "99.98", order.Total.StringFixed(2))
	})

	t.Run("same user checking out twice places one order", func(t *testing.T) {
		limited := &models.Product{
			Name:     "Integration Limited",
			Price:    decimal.RequireFromString("10.00"),
			Category: models.CategoryKids,
			Stock:    5,
			IsActive: true,
		}
		require.NoError(t, products.Create(ctx, limited))
		_, _, err := cart.AddOrMerge(ctx, &models.CartItem{UserID: userID, ProductID: limited.ID, Quantity: 2})
		require.NoError(t, err)

		orderRepo := NewPostgresOrderRepository(db, logger)
		_, before, err := orderRepo.List(ctx, &models.OrderListFilter{UserID: userID, Limit: 10})
		require.NoError(t, err)

		start := make(chan struct{})
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				errs[i] = store.WithinCheckout(ctx, func(tx CheckoutTx) error {
					return checkoutCart(ctx, tx, userID)
				})
			}(i)
		}
		close(start)
		wg.Wait()

		var placed, empty int
		for _, err := range errs {
			switch {
			case err == nil:
				placed++
			case errors.Is(err, errors.ErrEmptyCart):
				empty++
			default:
				t.Fatalf("unexpected checkout error: %v", err)
			}
		}
		assert.Equal(t, 1, placed)
		assert.Equal(t, 1, empty)

		reloaded, err := products.GetByID(ctx, limited.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, reloaded.Stock)

		_, after, err := orderRepo.List(ctx, &models.OrderListFilter{UserID: userID, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	})
}

// checkoutCart runs the checkout steps for every line in the user's cart.
func checkoutCart(ctx context.Context, tx CheckoutTx, userID string) error {
	if err := tx.LockUser(ctx, userID); err != nil {
		return err
	}
	items, err := tx.LockCart(ctx, userID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.ErrEmptyCart
	}

	order := &models.Order{
		UserID: userID,
		Status: models.OrderStatusPending,
		ShippingAddress: models.ShippingAddress{
			FirstName: "Ada", LastName: "Lovelace", Address: "1 Way",
			City: "London", State: "LDN", ZipCode: "N1", Country: "UK",
		},
	}
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Product.Price,
			Size:      item.Size,
		})
		order.Total = order.Total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		ids = append(ids, item.ID)
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return err
	}

	for _, item := range items {
		ok, err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewConflictError("insufficient stock")
		}
	}
	return tx.DeleteCartItems(ctx, userID, ids)
}
