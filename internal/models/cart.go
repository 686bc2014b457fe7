package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is unique per (user, product, size); adding the same line again
// merges quantities.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_cart_user_product_size,priority:1" json:"userId"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_user_product_size,priority:2" json:"productId"`
	Size      string    `gorm:"type:varchar(20);not null;default:'';uniqueIndex:idx_cart_user_product_size,priority:3" json:"size"`
	Quantity  int       `gorm:"not null;default:1;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// LineTotal is the current price of the line; zero when the product is not loaded.
func (i *CartItem) LineTotal() decimal.Decimal {
	if i.Product == nil {
		return decimal.Zero
	}
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type AddToCartRequest struct {
	ProductID uint   `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1,max=1000"`
	Size      string `json:"size" binding:"max=20"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CartView is the cart as returned to the owner.
type CartView struct {
	Items     []CartItem      `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}
