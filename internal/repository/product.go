package repository

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var sortColumns = map[models.ProductSortField]string{
	models.SortByName:      "name",
	models.SortByPrice:     "price",
	models.SortByCreatedAt: "created_at",
}

// PostgresProductRepository stores products through gorm.
type PostgresProductRepository struct {
	db     *gorm.DB
	logger *logging.LoggerV2
}

func NewPostgresProductRepository(db *gorm.DB, logger *logging.LoggerV2) *PostgresProductRepository {
	return &PostgresProductRepository{db: db, logger: logger}
}

// List returns active products matching every filter dimension.
func (r *PostgresProductRepository) List(ctx context.Context, filter *models.ProductFilter) ([]models.Product, error) {
	r.logger.Debug("Listing products", logging.Fields{
		"category": filter.Category,
		"sizes":    filter.Sizes,
		"search":   filter.Search,
		"sort_by":  filter.SortBy,
	})

	products := make([]models.Product, 0)
	err := retryOnce(ctx, r.logger, "list products", func() error {
		return listQuery(r.db.WithContext(ctx), filter).Find(&products).Error
	})
	if err != nil {
		r.logger.Error("Failed to list products", logging.Fields{"error": err.Error()})
		return nil, translateError(err)
	}

	return products, nil
}

func listQuery(db *gorm.DB, filter *models.ProductFilter) *gorm.DB {
	q := db.Model(&models.Product{}).Where("is_active = ?", true)

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if len(filter.Sizes) > 0 {
		q = q.Where("sizes && ?", pq.Array(filter.Sizes))
	}
	if filter.Search != "" {
		q = q.Where("name ILIKE ?", "%"+escapeLike(filter.Search)+"%")
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "name"
	}
	return q.
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: filter.SortOrder == models.SortDesc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	r.logger.Debug("Fetching product by ID", logging.Fields{"product_id": id})

	var product models.Product
	err := retryOnce(ctx, r.logger, "get product", func() error {
		return r.db.WithContext(ctx).First(&product, id).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

func (r *PostgresProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		r.logger.Error("Failed to create product", logging.Fields{
			"name":  product.Name,
			"error": err.Error(),
		})
		return translateError(err)
	}

	r.logger.Info("Product created", logging.Fields{
		"product_id": product.ID,
		"category":   product.Category,
	})
	return nil
}

// Update writes only the fields present in req.
func (r *PostgresProductRepository) Update(ctx context.Context, id uint, req *models.UpdateProductRequest) (*models.Product, error) {
	updates := productUpdates(req)
	updates["updated_at"] = time.Now()

	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		r.logger.Error("Failed to update product", logging.Fields{
			"product_id": id,
			"error":      res.Error.Error(),
		})
		return nil, translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.ErrNotFound
	}

	r.logger.Info("Product updated", logging.Fields{
		"product_id": id,
		"fields":     len(updates) - 1,
	})
	return r.GetByID(ctx, id)
}

func productUpdates(req *models.UpdateProductRequest) map[string]interface{} {
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Sizes != nil {
		updates["sizes"] = pq.StringArray(*req.Sizes)
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.ImageURLs != nil {
		updates["image_urls"] = pq.StringArray(*req.ImageURLs)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	return updates
}

// Deactivate hides a product from the catalog. Products are never deleted
// because order history references them.
func (r *PostgresProductRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrNotFound
	}

	r.logger.Info("Product deactivated", logging.Fields{"product_id": id})
	return nil
}
