package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

var (
	_ repository.ProductRepository = (*memStore)(nil)
	_ repository.CartRepository    = memCart{}
	_ repository.OrderRepository   = memOrders{}
	_ repository.StatsRepository   = (*memStore)(nil)
	_ repository.CheckoutStore     = (*memStore)(nil)
)

// memStore is an in-memory stand-in for the Postgres repositories. A
// checkout holds the store mutex for its whole duration and restores the
// previous state when fn fails.
type memStore struct {
	mu       sync.Mutex
	users    map[string]bool
	products map[uint]models.Product
	cart     map[uint]models.CartItem
	orders   map[uint]models.Order
	nextID   uint

	failDeleteCart error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]bool),
		products: make(map[uint]models.Product),
		cart:     make(map[uint]models.CartItem),
		orders:   make(map[uint]models.Order),
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) addUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = true
}

func (s *memStore) addProduct(name, price string, stock int, sizes ...string) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.products[id] = models.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: models.CategoryMen,
		Sizes:    sizes,
		Stock:    stock,
		IsActive: true,
	}
	return id
}

func (s *memStore) addCartLine(userID string, productID uint, size string, quantity int) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.cart[id] = models.CartItem{ID: id, UserID: userID, ProductID: productID, Size: size, Quantity: quantity}
	return id
}

func (s *memStore) stock(productID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

func (s *memStore) cartSize(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.cart {
		if item.UserID == userID {
			n++
		}
	}
	return n
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) productRef(id uint) *models.Product {
	p, ok := s.products[id]
	if !ok {
		return nil
	}
	return &p
}

// ProductRepository

func (s *memStore) List(ctx context.Context, filter *models.ProductFilter) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0)
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.productRef(id)
	if p == nil {
		return nil, errors.ErrNotFound
	}
	return p, nil
}

func (s *memStore) Create(ctx context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	product.ID = s.id()
	s.products[product.ID] = *product
	return nil
}

func (s *memStore) Update(ctx context.Context, id uint, req *models.UpdateProductRequest) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Sizes != nil {
		p.Sizes = *req.Sizes
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	s.products[id] = p
	return &p, nil
}

func (s *memStore) Deactivate(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return errors.ErrNotFound
	}
	p.IsActive = false
	s.products[id] = p
	return nil
}

// memCart exposes the cart side of memStore; its method names overlap with
// the product repository.
type memCart struct{ s *memStore }

func (c memCart) ListByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.cartLines(userID), nil
}

func (c memCart) AddOrMerge(ctx context.Context, item *models.CartItem) (*models.CartItem, bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for id, existing := range c.s.cart {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID && existing.Size == item.Size {
			existing.Quantity += item.Quantity
			c.s.cart[id] = existing
			existing.Product = c.s.productRef(existing.ProductID)
			return &existing, true, nil
		}
	}
	stored := *item
	stored.ID = c.s.id()
	c.s.cart[stored.ID] = stored
	stored.Product = c.s.productRef(stored.ProductID)
	return &stored, false, nil
}

func (c memCart) UpdateQuantity(ctx context.Context, userID string, id uint, quantity int) (*models.CartItem, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	item, ok := c.s.cart[id]
	if !ok || item.UserID != userID {
		return nil, errors.ErrNotFound
	}
	item.Quantity = quantity
	c.s.cart[id] = item
	item.Product = c.s.productRef(item.ProductID)
	return &item, nil
}

func (c memCart) Delete(ctx context.Context, userID string, id uint) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	item, ok := c.s.cart[id]
	if !ok || item.UserID != userID {
		return errors.ErrNotFound
	}
	delete(c.s.cart, id)
	return nil
}

func (c memCart) ClearByUser(ctx context.Context, userID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for id, item := range c.s.cart {
		if item.UserID == userID {
			delete(c.s.cart, id)
		}
	}
	return nil
}

func (s *memStore) cartLines(userID string) []models.CartItem {
	items := make([]models.CartItem, 0)
	for _, item := range s.cart {
		if item.UserID == userID {
			item.Product = s.productRef(item.ProductID)
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// OrderRepository

type memOrders struct{ s *memStore }

func (o memOrders) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	order, ok := o.s.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return &order, nil
}

func (o memOrders) List(ctx context.Context, filter *models.OrderListFilter) ([]models.Order, int64, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	matched := make([]models.Order, 0)
	for _, order := range o.s.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		matched = append(matched, order)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []models.Order{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], total, nil
}

func (o memOrders) UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus) (*models.Order, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	order, ok := o.s.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	if order.Status != from {
		return nil, errors.NewConflictError("order status changed concurrently")
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	o.s.orders[id] = order
	return &order, nil
}

func (s *memStore) Stats(ctx context.Context) (*models.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.StoreStats{TotalUsers: int64(len(s.users)), TotalRevenue: decimal.Zero}
	for _, p := range s.products {
		if p.IsActive {
			stats.TotalProducts++
		}
	}
	for _, order := range s.orders {
		stats.TotalOrders++
		if order.Status != models.OrderStatusCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(order.Total)
		}
	}
	return stats, nil
}

// CheckoutStore

func (s *memStore) WithinCheckout(ctx context.Context, fn func(tx repository.CheckoutTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(map[uint]models.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	cart := make(map[uint]models.CartItem, len(s.cart))
	for k, v := range s.cart {
		cart[k] = v
	}
	orders := make(map[uint]models.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	nextID := s.nextID

	if err := fn(memTx{s}); err != nil {
		s.products, s.cart, s.orders, s.nextID = products, cart, orders, nextID
		return err
	}
	return nil
}

// memTx runs with the store mutex already held.
type memTx struct{ s *memStore }

func (t memTx) LockUser(ctx context.Context, userID string) error {
	if !t.s.users[userID] {
		return errors.ErrNotFound
	}
	return nil
}

func (t memTx) LockCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	return t.s.cartLines(userID), nil
}

func (t memTx) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = t.s.id()
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	items := make([]models.OrderItem, len(order.Items))
	for i, item := range order.Items {
		item.ID = t.s.id()
		item.OrderID = order.ID
		items[i] = item
	}
	order.Items = items
	t.s.orders[order.ID] = *order
	return nil
}

func (t memTx) DecrementStock(ctx context.Context, productID uint, quantity int) (bool, error) {
	p, ok := t.s.products[productID]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	t.s.products[productID] = p
	return true, nil
}

func (t memTx) DeleteCartItems(ctx context.Context, userID string, ids []uint) error {
	if t.s.failDeleteCart != nil {
		return t.s.failDeleteCart
	}
	for _, id := range ids {
		if item, ok := t.s.cart[id]; ok && item.UserID == userID {
			delete(t.s.cart, id)
		}
	}
	return nil
}

func (t memTx) LoadOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, ok := t.s.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	items := make([]models.OrderItem, len(order.Items))
	for i, item := range order.Items {
		item.Product = t.s.productRef(item.ProductID)
		items[i] = item
	}
	order.Items = items
	return &order, nil
}

// Collaborators

type memCache struct {
	mu      sync.Mutex
	entries map[uint]models.Product
	deleted []uint
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[uint]models.Product)}
}

func (c *memCache) Get(ctx context.Context, id uint) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *memCache) Set(ctx context.Context, product *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[product.ID] = *product
	return nil
}

func (c *memCache) Delete(ctx context.Context, ids ...uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
		c.deleted = append(c.deleted, id)
	}
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []uint
	changed []models.OrderStatus
	err     error
}

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, order.ID)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, previous, order.Status)
	return p.err
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []uint
}

func (r *recordingInvalidator) InvalidateProducts(ctx context.Context, ids ...uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ids...)
}

func testConfig() *config.Config {
	return &config.Config{
		Features: config.FeatureFlags{
			EnableProductCaching: true,
		},
	}
}

var (
	customer = models.CurrentUser{ID: "user-1", Role: models.RoleCustomer}
	other    = models.CurrentUser{ID: "user-2", Role: models.RoleCustomer}
	admin    = models.CurrentUser{ID: "admin-1", Role: models.RoleAdmin}
)

func testAddress() *models.ShippingAddress {
	return &models.ShippingAddress{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Address:   "1 Analytical Way",
		City:      "London",
		State:     "LDN",
		ZipCode:   "N1 9GU",
		Country:   "UK",
	}
}
