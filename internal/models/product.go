package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryMen    Category = "men"
	CategoryWomen  Category = "women"
	CategoryKids   Category = "kids"
	CategorySports Category = "sports"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMen, CategoryWomen, CategoryKids, CategorySports:
		return true
	}
	return false
}

// Product is never hard-deleted; deactivation hides it from the catalog.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Category    Category        `gorm:"type:varchar(20);not null;index" json:"category"`
	Sizes       pq.StringArray  `gorm:"type:text[];not null;default:'{}'" json:"sizes"`
	Stock       int             `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	ImageURL    string          `gorm:"type:varchar(1024)" json:"imageUrl"`
	ImageURLs   pq.StringArray  `gorm:"type:text[];not null;default:'{}'" json:"imageUrls"`
	IsActive    bool            `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// HasSize reports whether size is one of the product's declared sizes.
// Products without declared sizes accept only the empty size.
func (p *Product) HasSize(size string) bool {
	if len(p.Sizes) == 0 {
		return size == ""
	}
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

type ProductSortField string

const (
	SortByName      ProductSortField = "name"
	SortByPrice     ProductSortField = "price"
	SortByCreatedAt ProductSortField = "createdAt"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ProductQuery is the raw catalog query string.
type ProductQuery struct {
	Category  string `form:"category"`
	Sizes     string `form:"sizes"`
	Search    string `form:"search"`
	MinPrice  string `form:"minPrice"`
	MaxPrice  string `form:"maxPrice"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

// ProductFilter is a validated catalog query. Only active products are
// ever returned.
type ProductFilter struct {
	Category  Category
	Sizes     []string
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	SortBy    ProductSortField
	SortOrder SortOrder
}

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,max=255"`
	Description string          `json:"description" binding:"max=10000"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category" binding:"required,category"`
	Sizes       []string        `json:"sizes" binding:"max=50,dive,max=20"`
	Stock       int             `json:"stock" binding:"min=0"`
	ImageURL    string          `json:"imageUrl" binding:"max=1024"`
	ImageURLs   []string        `json:"imageUrls" binding:"max=20,dive,max=1024"`
}

// UpdateProductRequest is a partial update; nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=255"`
	Description *string          `json:"description" binding:"omitempty,max=10000"`
	Price       *decimal.Decimal `json:"price"`
	Category    *Category        `json:"category" binding:"omitempty,category"`
	Sizes       *[]string        `json:"sizes"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0"`
	ImageURL    *string          `json:"imageUrl" binding:"omitempty,max=1024"`
	ImageURLs   *[]string        `json:"imageUrls"`
	IsActive    *bool            `json:"isActive"`
}

func (r *UpdateProductRequest) Empty() bool {
	return r.Name == nil && r.Description == nil && r.Price == nil && r.Category == nil &&
		r.Sizes == nil && r.Stock == nil && r.ImageURL == nil && r.ImageURLs == nil && r.IsActive == nil
}
