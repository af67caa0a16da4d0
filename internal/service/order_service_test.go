package service

import (
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCartSubtotal(t *testing.T) {
	cart := []models.CartItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 12900},
		{ProductID: 2, Quantity: 1, UnitPrice: 8900},
	}

	assert.Equal(t, int64(2*12900+8900), cartSubtotal(cart))
	assert.Equal(t, int64(0), cartSubtotal(nil))
}

func TestCartWeight(t *testing.T) {
	cart := []models.CartItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 5},
	}
	products := map[int64]*models.Product{
		1: {ID: 1, WeightGrams: 300},
		2: {ID: 2, WeightGrams: 150},
	}

	// Product 3 has no catalog entry and contributes nothing.
	assert.Equal(t, 2*300+150, cartWeight(cart, products))
}

func TestApplyCouponPercent(t *testing.T) {
	coupon := &models.Coupon{Code: "VERAO10", PercentOff: 10}

	discount, err := applyCoupon(coupon, 20000)
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), discount)
}

func TestApplyCouponFixedAmount(t *testing.T) {
	coupon := &models.Coupon{Code: "BEMVINDA", AmountOff: 1500}

	discount, err := applyCoupon(coupon, 20000)
	assert.NoError(t, err)
	assert.Equal(t, int64(1500), discount)
}

func TestApplyCouponMinOrder(t *testing.T) {
	coupon := &models.Coupon{Code: "FRETEGRATIS", AmountOff: 2500, MinOrder: 15000}

	_, err := applyCoupon(coupon, 10000)
	assert.ErrorIs(t, err, ErrValidation)

	discount, err := applyCoupon(coupon, 15000)
	assert.NoError(t, err)
	assert.Equal(t, int64(2500), discount)
}

func TestApplyCouponCappedAtSubtotal(t *testing.T) {
	coupon := &models.Coupon{Code: "GENEROSO", AmountOff: 99000}

	discount, err := applyCoupon(coupon, 5000)
	assert.NoError(t, err)
	assert.Equal(t, int64(5000), discount, "discount must not exceed the subtotal")
}
