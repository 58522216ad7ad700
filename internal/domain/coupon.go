package domain

import "time"

type DiscountType string

const (
	DiscountFixed   DiscountType = "fixed"   // value is an amount in minor units
	DiscountPercent DiscountType = "percent" // value is a whole percentage, 1..100
)

// Coupon is a named discount rule as stored by the coupon catalog.
type Coupon struct {
	Code        string       `bson:"_id" json:"code"`
	Type        DiscountType `bson:"type" json:"type"`
	Value       int64        `bson:"value" json:"value"`
	MinSubtotal int64        `bson:"min_subtotal" json:"min_subtotal"`
	ExpiresAt   time.Time    `bson:"expires_at" json:"expires_at"`
	Active      bool         `bson:"active" json:"active"`
}

func (c *Coupon) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// AppliedCoupon is the subset of a coupon carried on a cart once accepted.
type AppliedCoupon struct {
	Code  string       `bson:"code" json:"code"`
	Type  DiscountType `bson:"type" json:"type"`
	Value int64        `bson:"value" json:"value"`
}

// DiscountAmount computes the discount against a pre-coupon subtotal.
// Percentage discounts round down to the smallest currency unit; the result
// is capped so the discounted total never goes negative.
func (a *AppliedCoupon) DiscountAmount(subtotal int64) int64 {
	var amount int64
	switch a.Type {
	case DiscountPercent:
		amount = subtotal * a.Value / 100
	default:
		amount = a.Value
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// Discount is the evaluator's accepted outcome for a specific subtotal.
type Discount struct {
	Code   string       `json:"code"`
	Type   DiscountType `json:"type"`
	Value  int64        `json:"value"`
	Amount int64        `json:"amount"` // computed against the subtotal it was evaluated for
}
