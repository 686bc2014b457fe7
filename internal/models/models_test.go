package models

import (
	"encoding/json"
	"testing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range []OrderStatus{"pending", "processing", "shipped", "delivered", "cancelled"} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("refunded").Valid())
	assert.False(t, OrderStatus("").Valid())

	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestCategory_Valid(t *testing.T) {
	assert.True(t, CategorySports.Valid())
	assert.False(t, Category("shoes").Valid())
}

func TestProduct_HasSize(t *testing.T) {
	sized := &Product{Sizes: pq.StringArray{"8", "9", "10"}}
	assert.True(t, sized.HasSize("9"))
	assert.False(t, sized.HasSize("11"))
	assert.False(t, sized.HasSize(""))

	unsized := &Product{}
	assert.True(t, unsized.HasSize(""))
	assert.False(t, unsized.HasSize("M"))
}

func TestCartItem_LineTotal(t *testing.T) {
	item := &CartItem{Quantity: 3, Product: &Product{Price: decimal.RequireFromString("49.99")}}
	assert.Equal(t, "149.97", item.LineTotal().StringFixed(2))

	assert.True(t, (&CartItem{Quantity: 2}).LineTotal().IsZero())
}

func TestProduct_JSONShape(t *testing.T) {
	p := Product{
		ID:       1,
		Name:     "Runner",
		Price:    decimal.RequireFromString("49.99"),
		Category: CategorySports,
		Sizes:    pq.StringArray{"9", "10"},
		IsActive: true,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "49.99", out["price"])
	assert.Equal(t, []interface{}{"9", "10"}, out["sizes"])
	assert.Equal(t, true, out["isActive"])
}

func TestCurrentUser_IsAdmin(t *testing.T) {
	assert.True(t, CurrentUser{ID: "a", Role: RoleAdmin}.IsAdmin())
	assert.False(t, CurrentUser{ID: "c", Role: RoleCustomer}.IsAdmin())
	assert.True(t, SystemUser.IsAdmin())
}

func TestUpdateProductRequest_Empty(t *testing.T) {
	assert.True(t, (&UpdateProductRequest{}).Empty())
	stock := 3
	assert.False(t, (&UpdateProductRequest{Stock: &stock}).Empty())
}
