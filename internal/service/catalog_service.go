package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// CatalogService handles product browsing and administration.
type CatalogService struct {
	products repository.ProductRepository
	cache    repository.ProductCache
	config   *config.Config
	logger   *logging.LoggerV2
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(products repository.ProductRepository, cache repository.ProductCache, cfg *config.Config) *CatalogService {
	return &CatalogService{
		products: products,
		cache:    cache,
		config:   cfg,
		logger:   logging.NewLoggerV2("catalog-service"),
	}
}

func (s *CatalogService) cachingEnabled() bool {
	return s.cache != nil && s.config.Features.EnableProductCaching
}

// ListProducts returns the active products matching q.
func (s *CatalogService) ListProducts(ctx context.Context, q *models.ProductQuery) ([]models.Product, error) {
	filter, err := BuildProductFilter(q)
	if err != nil {
		return nil, err
	}
	return s.products.List(ctx, filter)
}

// GetProduct returns an active product. Inactive products are not found.
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, errors.ErrNotFound
	}
	return product, nil
}

func (s *CatalogService) loadProduct(ctx context.Context, id uint) (*models.Product, error) {
	if s.cachingEnabled() {
		if product, err := s.cache.Get(ctx, id); err == nil && product != nil {
			return product, nil
		}
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cachingEnabled() {
		if err := s.cache.Set(ctx, product); err != nil {
			// Log but don't fail
			s.logger.Warn("Failed to cache product", logging.Fields{
				"product_id": id,
				"error":      err.Error(),
			})
		}
	}
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, caller models.CurrentUser, req *models.CreateProductRequest) (*models.Product, error) {
	if !caller.IsAdmin() {
		return nil, errors.ErrForbidden
	}

	product, err := ValidateCreateProductRequest(req)
	if err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", logging.Fields{
		"product_id": product.ID,
		"admin_id":   caller.ID,
	})
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, caller models.CurrentUser, id uint, req *models.UpdateProductRequest) (*models.Product, error) {
	if !caller.IsAdmin() {
		return nil, errors.ErrForbidden
	}
	if err := ValidateUpdateProductRequest(req); err != nil {
		return nil, err
	}

	product, err := s.products.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.InvalidateProducts(ctx, id)
	return product, nil
}

// DeleteProduct soft-deletes a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, caller models.CurrentUser, id uint) error {
	if !caller.IsAdmin() {
		return errors.ErrForbidden
	}

	if err := s.products.Deactivate(ctx, id); err != nil {
		return err
	}

	s.InvalidateProducts(ctx, id)
	s.logger.Info("Product deactivated", logging.Fields{
		"product_id": id,
		"admin_id":   caller.ID,
	})
	return nil
}

// InvalidateProducts evicts cached products after their stock or details change.
func (s *CatalogService) InvalidateProducts(ctx context.Context, ids ...uint) {
	if !s.cachingEnabled() || len(ids) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, ids...); err != nil {
		s.logger.Error("Failed to invalidate product cache", logging.Fields{
			"product_ids": ids,
			"error":       err.Error(),
		})
	}
}
