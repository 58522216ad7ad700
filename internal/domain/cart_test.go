package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testCart() *Cart {
	return &Cart{
		OwnerKey: "user:42",
		Items: []CartItem{
			{ProductID: "milk", Quantity: 2, UnitPrice: 189},
			{ProductID: "bread", Quantity: 1, UnitPrice: 449},
		},
		Saved: []CartItem{
			{ProductID: "chocolate", Quantity: 3, UnitPrice: 250},
		},
	}
}

func TestItemsSubtotal_ExcludesSaved(t *testing.T) {
	cart := testCart()
	assert.Equal(t, int64(2*189+449), cart.ItemsSubtotal())
}

func TestItemCount_ExcludesSaved(t *testing.T) {
	cart := testCart()
	assert.Equal(t, 3, cart.ItemCount())
}

func TestSubtotal_WithPercentCoupon_RoundsDown(t *testing.T) {
	cart := testCart() // 827 pre-coupon
	cart.Coupon = &AppliedCoupon{Code: "TEN", Type: DiscountPercent, Value: 10}

	// 10% of 827 is 82.7, rounded down to 82.
	assert.Equal(t, int64(827-82), cart.Subtotal())
}

func TestSubtotal_FixedCoupon_FloorsAtZero(t *testing.T) {
	cart := testCart()
	cart.Coupon = &AppliedCoupon{Code: "BIG", Type: DiscountFixed, Value: 100000}

	assert.Equal(t, int64(0), cart.Subtotal())
}

func TestDiscountAmount_CappedAtSubtotal(t *testing.T) {
	coupon := &AppliedCoupon{Code: "BIG", Type: DiscountFixed, Value: 500}
	assert.Equal(t, int64(300), coupon.DiscountAmount(300))
	assert.Equal(t, int64(500), coupon.DiscountAmount(900))
}

func TestFindItem(t *testing.T) {
	cart := testCart()
	assert.Equal(t, 0, cart.FindItem("milk"))
	assert.Equal(t, 1, cart.FindItem("bread"))
	assert.Equal(t, -1, cart.FindItem("chocolate")) // saved, not active
}

func TestIsEmpty_IgnoresSavedItems(t *testing.T) {
	cart := &Cart{
		Saved: []CartItem{{ProductID: "chocolate", Quantity: 1, UnitPrice: 250, AddedAt: time.Now()}},
	}
	assert.True(t, cart.IsEmpty())
}
