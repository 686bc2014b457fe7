package handlers

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
)

var (
	_ CatalogService = (*service.CatalogService)(nil)
	_ CartService    = (*service.CartService)(nil)
	_ OrderService   = (*service.OrderService)(nil)
	_ StatsService   = (*service.StatsService)(nil)
)

type CatalogService interface {
	ListProducts(ctx context.Context, q *models.ProductQuery) ([]models.Product, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	CreateProduct(ctx context.Context, caller models.CurrentUser, req *models.CreateProductRequest) (*models.Product, error)
	UpdateProduct(ctx context.Context, caller models.CurrentUser, id uint, req *models.UpdateProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, caller models.CurrentUser, id uint) error
}

type CartService interface {
	AddItem(ctx context.Context, user models.CurrentUser, req *models.AddToCartRequest) (*models.CartItem, bool, error)
	UpdateQuantity(ctx context.Context, user models.CurrentUser, id uint, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, user models.CurrentUser, id uint) error
	ListItems(ctx context.Context, user models.CurrentUser) (*models.CartView, error)
}

type OrderService interface {
	PlaceOrder(ctx context.Context, user models.CurrentUser, req *models.PlaceOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, caller models.CurrentUser, id uint) (*models.Order, error)
	ListOrders(ctx context.Context, caller models.CurrentUser, filter *models.OrderListFilter) ([]models.Order, int64, error)
	SetStatus(ctx context.Context, caller models.CurrentUser, id uint, status models.OrderStatus) (*models.Order, error)
}

type StatsService interface {
	Stats(ctx context.Context, caller models.CurrentUser) (*models.StoreStats, error)
}

// OrderFeed upgrades a request to the live admin order feed.
type OrderFeed interface {
	Serve(w http.ResponseWriter, r *http.Request) error
}

// Pinger reports database reachability for /ready.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers holds all HTTP handlers for the storefront service.
type Handlers struct {
	catalog CatalogService
	cart    CartService
	orders  OrderService
	stats   StatsService
	feed    OrderFeed
	db      Pinger
	metrics http.Handler
	config  *config.Config
	logger  *logging.LoggerV2
}

// NewHandlers creates a new handlers instance. feed and db may be nil.
func NewHandlers(
	catalog CatalogService,
	cart CartService,
	orders OrderService,
	stats StatsService,
	feed OrderFeed,
	db Pinger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		catalog: catalog,
		cart:    cart,
		orders:  orders,
		stats:   stats,
		feed:    feed,
		db:      db,
		metrics: promhttp.Handler(),
		config:  cfg,
		logger:  logging.NewLoggerV2("handlers"),
	}
}
