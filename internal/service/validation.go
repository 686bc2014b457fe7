package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const (
	maxTextLength    = 255
	maxSizeLength    = 20
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// numeric(10,2) upper bound.
var maxPrice = decimal.RequireFromString("99999999.99")

// Limits checked on the raw coefficient and exponent. Rescaling a decimal
// costs time proportional to its exponent, so out-of-range values are
// rejected before any comparison or rounding.
const (
	maxPriceBoundLength     = 20
	minPriceExponent        = -20
	maxPriceExponent        = 8
	maxPriceCoefficientBits = 96
)

// BuildProductFilter validates a raw catalog query and applies the
// defaults (sort by name, ascending).
func BuildProductFilter(q *models.ProductQuery) (*models.ProductFilter, error) {
	filter := &models.ProductFilter{
		SortBy:    models.SortByName,
		SortOrder: models.SortAsc,
	}

	if category := strings.TrimSpace(q.Category); category != "" {
		filter.Category = models.Category(strings.ToLower(category))
		if !filter.Category.Valid() {
			return nil, errors.NewValidationError("category", "must be one of men, women, kids, sports")
		}
	}

	filter.Sizes = splitSizes(q.Sizes)

	filter.Search = strings.TrimSpace(q.Search)
	if len(filter.Search) > maxTextLength {
		return nil, errors.NewValidationError("search", "must be at most 255 characters")
	}

	var err error
	if filter.MinPrice, err = parsePriceBound("minPrice", q.MinPrice); err != nil {
		return nil, err
	}
	if filter.MaxPrice, err = parsePriceBound("maxPrice", q.MaxPrice); err != nil {
		return nil, err
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, errors.NewValidationError("minPrice", "must not exceed maxPrice")
	}

	if sortBy := strings.TrimSpace(q.SortBy); sortBy != "" {
		switch models.ProductSortField(sortBy) {
		case models.SortByName, models.SortByPrice, models.SortByCreatedAt:
			filter.SortBy = models.ProductSortField(sortBy)
		default:
			return nil, errors.NewValidationError("sortBy", "must be one of name, price, createdAt")
		}
	}

	if sortOrder := strings.ToLower(strings.TrimSpace(q.SortOrder)); sortOrder != "" {
		switch models.SortOrder(sortOrder) {
		case models.SortAsc, models.SortDesc:
			filter.SortOrder = models.SortOrder(sortOrder)
		default:
			return nil, errors.NewValidationError("sortOrder", "must be asc or desc")
		}
	}

	return filter, nil
}

func splitSizes(raw string) []string {
	var sizes []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		sizes = append(sizes, part)
	}
	return sizes
}

func parsePriceBound(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if len(raw) > maxPriceBoundLength || strings.ContainsAny(raw, "eE") {
		return nil, errors.NewValidationError(field, "must be a decimal number")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.NewValidationError(field, "must be a decimal number")
	}
	if d.IsNegative() {
		return nil, errors.NewValidationError(field, "must not be negative")
	}
	if !priceMagnitudeOK(d) || d.GreaterThan(maxPrice) {
		return nil, errors.NewValidationError(field, "exceeds the maximum price")
	}
	return &d, nil
}

// priceMagnitudeOK reports whether d is small enough to compare and round
// cheaply. It never rescales d.
func priceMagnitudeOK(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= minPriceExponent && exp <= maxPriceExponent &&
		d.Coefficient().BitLen() <= maxPriceCoefficientBits
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return errors.NewValidationError("price", "must not be negative")
	}
	if price.Exponent() < minPriceExponent {
		return errors.NewValidationError("price", "must have at most two decimal places")
	}
	if !priceMagnitudeOK(price) {
		return errors.NewValidationError("price", "exceeds the maximum price")
	}
	if !price.Equal(price.Round(2)) {
		return errors.NewValidationError("price", "must have at most two decimal places")
	}
	if price.GreaterThan(maxPrice) {
		return errors.NewValidationError("price", "exceeds the maximum price")
	}
	return nil
}

func normalizeSizes(field string, sizes []string) ([]string, error) {
	out := make([]string, 0, len(sizes))
	seen := make(map[string]bool, len(sizes))
	for _, s := range sizes {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, errors.NewValidationError(field, "sizes must not be empty")
		}
		if len(s) > maxSizeLength {
			return nil, errors.NewValidationError(field, "sizes must be at most 20 characters")
		}
		if seen[s] {
			return nil, errors.NewValidationError(field, fmt.Sprintf("duplicate size %q", s))
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

func normalizeImageURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// ValidateCreateProductRequest builds an active product from req.
func ValidateCreateProductRequest(req *models.CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.NewValidationError("name", "name is required")
	}
	if len(name) > maxTextLength {
		return nil, errors.NewValidationError("name", "must be at most 255 characters")
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	if !req.Category.Valid() {
		return nil, errors.NewValidationError("category", "must be one of men, women, kids, sports")
	}
	if req.Stock < 0 {
		return nil, errors.NewValidationError("stock", "must not be negative")
	}
	sizes, err := normalizeSizes("sizes", req.Sizes)
	if err != nil {
		return nil, err
	}

	return &models.Product{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Category:    req.Category,
		Sizes:       sizes,
		Stock:       req.Stock,
		ImageURL:    strings.TrimSpace(req.ImageURL),
		ImageURLs:   normalizeImageURLs(req.ImageURLs),
		IsActive:    true,
	}, nil
}

// ValidateUpdateProductRequest normalizes req in place.
func ValidateUpdateProductRequest(req *models.UpdateProductRequest) error {
	if req.Empty() {
		return errors.NewValidationError("body", "no fields to update")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return errors.NewValidationError("name", "name must not be empty")
		}
		if len(name) > maxTextLength {
			return errors.NewValidationError("name", "must be at most 255 characters")
		}
		req.Name = &name
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return err
		}
	}
	if req.Category != nil && !req.Category.Valid() {
		return errors.NewValidationError("category", "must be one of men, women, kids, sports")
	}
	if req.Stock != nil && *req.Stock < 0 {
		return errors.NewValidationError("stock", "must not be negative")
	}
	if req.Sizes != nil {
		sizes, err := normalizeSizes("sizes", *req.Sizes)
		if err != nil {
			return err
		}
		req.Sizes = &sizes
	}
	if req.ImageURLs != nil {
		urls := normalizeImageURLs(*req.ImageURLs)
		req.ImageURLs = &urls
	}
	return nil
}

// ValidateShippingAddress trims every field; all are required.
func ValidateShippingAddress(addr *models.ShippingAddress) (models.ShippingAddress, error) {
	if addr == nil {
		return models.ShippingAddress{}, errors.NewValidationError("shippingAddress", "shipping address is required")
	}

	out := models.ShippingAddress{
		FirstName: strings.TrimSpace(addr.FirstName),
		LastName:  strings.TrimSpace(addr.LastName),
		Address:   strings.TrimSpace(addr.Address),
		City:      strings.TrimSpace(addr.City),
		State:     strings.TrimSpace(addr.State),
		ZipCode:   strings.TrimSpace(addr.ZipCode),
		Country:   strings.TrimSpace(addr.Country),
	}

	fields := []struct {
		name  string
		value string
	}{
		{"firstName", out.FirstName},
		{"lastName", out.LastName},
		{"address", out.Address},
		{"city", out.City},
		{"state", out.State},
		{"zipCode", out.ZipCode},
		{"country", out.Country},
	}
	for _, f := range fields {
		if f.value == "" {
			return models.ShippingAddress{}, errors.NewValidationError("shippingAddress."+f.name, f.name+" is required")
		}
		if len(f.value) > maxTextLength {
			return models.ShippingAddress{}, errors.NewValidationError("shippingAddress."+f.name, "must be at most 255 characters")
		}
	}

	return out, nil
}

// ValidateOrderListFilter applies paging defaults.
func ValidateOrderListFilter(filter *models.OrderListFilter) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return errors.NewValidationError("status", "unknown order status")
	}
	if filter.Offset < 0 {
		return errors.NewValidationError("offset", "must not be negative")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	return nil
}
