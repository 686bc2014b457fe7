package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type ShippingAddress struct {
	FirstName string `json:"firstName" binding:"required,max=255"`
	LastName  string `json:"lastName" binding:"required,max=255"`
	Address   string `json:"address" binding:"required,max=255"`
	City      string `json:"city" binding:"required,max=255"`
	State     string `json:"state" binding:"required,max=255"`
	ZipCode   string `json:"zipCode" binding:"required,max=255"`
	Country   string `json:"country" binding:"required,max=255"`
}

// Order is immutable after checkout except for Status and UpdatedAt.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(255);not null;index" json:"userId"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	Total           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`
	ShippingAddress ShippingAddress `gorm:"serializer:json;type:jsonb;not null" json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	User  *User       `gorm:"foreignKey:UserID" json:"-"`
}

// OrderItem freezes the unit price at checkout time.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"orderId"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	Quantity  int             `gorm:"not null;check:chk_order_items_quantity,quantity >= 1" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Size      string          `gorm:"type:varchar(20);not null;default:''" json:"size"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

type PlaceOrderRequest struct {
	ShippingAddress *ShippingAddress `json:"shippingAddress" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required,orderstatus"`
}

type OrderListFilter struct {
	UserID string
	Status OrderStatus
	Limit  int
	Offset int
}

// StoreStats backs the admin dashboard.
type StoreStats struct {
	TotalProducts int64           `json:"totalProducts"`
	TotalOrders   int64           `json:"totalOrders"`
	TotalUsers    int64           `json:"totalUsers"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}
