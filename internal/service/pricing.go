package service

import (
	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// CalculateOrderTotal sums price × quantity over the order items.
func CalculateOrderTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}

// CalculateCartSubtotal prices the cart at current product prices.
func CalculateCartSubtotal(items []models.CartItem) decimal.Decimal {
	subtotal := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].LineTotal())
	}
	return subtotal.Round(2)
}
