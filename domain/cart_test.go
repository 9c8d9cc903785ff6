package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartTotal(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ProductID: 1, Name: "Carrot", UnitPrice: decimal.NewFromInt(40), Unit: "kg", Quantity: 2},
		{ProductID: 2, Name: "Apple", UnitPrice: decimal.NewFromInt(120), Unit: "kg", Quantity: 1},
	}}

	assert.True(t, cart.Total().Equal(decimal.NewFromInt(200)))
}

func TestCartTotal_EmptyIsZero(t *testing.T) {
	var cart Cart
	assert.True(t, cart.Total().Equal(decimal.Zero))
	assert.True(t, cart.IsEmpty())
}

func TestCartClone_IsDeep(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ProductID: 1, Name: "Carrot", UnitPrice: decimal.NewFromInt(40), Quantity: 2},
	}}

	clone := cart.Clone()
	clone.Items[0].Quantity = 99

	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartFind(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{ProductID: 7, Name: "Spinach", UnitPrice: decimal.NewFromInt(30), Quantity: 1},
	}}

	assert.Equal(t, 0, cart.Find(7))
	assert.Equal(t, -1, cart.Find(8))
}
