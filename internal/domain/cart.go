package domain

import (
	"strings"
	"time"
)

// All monetary amounts in this package are integer minor currency units
// (cents). Division rounds toward zero, which matches the storefront's
// round-down rule for percentage discounts.

// Owner key prefixes. A key is "user:<id>" for an authenticated user and
// "guest:<token>" for an anonymous session.
const (
	UserKeyPrefix  = "user:"
	GuestKeyPrefix = "guest:"
)

// IsGuestKey reports whether the owner key names a guest session rather
// than an authenticated user.
func IsGuestKey(ownerKey string) bool {
	return strings.HasPrefix(ownerKey, GuestKeyPrefix)
}

type CartItem struct {
	ProductID string    `bson:"product_id" json:"product_id"`
	Name      string    `bson:"name" json:"name"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	UnitPrice int64     `bson:"unit_price" json:"unit_price"` // snapshot taken at add time
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// Cart holds one owner's in-progress selection. OwnerKey is either an
// authenticated user id or a guest session token; it is the unit of
// concurrency control.
type Cart struct {
	ID        string         `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerKey  string         `bson:"owner_key" json:"owner_key"`
	Items     []CartItem     `bson:"items" json:"items"`
	Saved     []CartItem     `bson:"saved_items" json:"saved_items"` // saved-for-later, excluded from totals
	Coupon    *AppliedCoupon `bson:"coupon,omitempty" json:"coupon,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at" json:"updated_at"`
}

// FindItem returns the index of the active item with the given product id,
// or -1. Carts never hold two items with the same product id.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// FindSaved returns the index of the saved-for-later item with the given
// product id, or -1.
func (c *Cart) FindSaved(productID string) int {
	for i := range c.Saved {
		if c.Saved[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// ItemCount sums the quantities of the active items.
func (c *Cart) ItemCount() int {
	count := 0
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

// ItemsSubtotal is the pre-coupon sum of unit price × quantity over the
// active items. Saved-for-later items do not contribute.
func (c *Cart) ItemsSubtotal() int64 {
	var subtotal int64
	for i := range c.Items {
		subtotal += c.Items[i].UnitPrice * int64(c.Items[i].Quantity)
	}
	return subtotal
}

// Subtotal is the items subtotal minus the applied coupon discount,
// floored at zero.
func (c *Cart) Subtotal() int64 {
	subtotal := c.ItemsSubtotal()
	if c.Coupon != nil {
		subtotal -= c.Coupon.DiscountAmount(subtotal)
	}
	if subtotal < 0 {
		subtotal = 0
	}
	return subtotal
}

// IsEmpty reports whether the cart has no active items. A cart with only
// saved-for-later items cannot be checked out.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
