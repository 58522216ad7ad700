package domain

import "time"

// PredictedBasket is produced by the external prediction service. It is
// read-only input to cart sync: ranked product ids plus an opaque
// confidence score. It never carries authoritative pricing.
type PredictedBasket struct {
	OwnerKey    string    `json:"owner_key"`
	ProductIDs  []string  `json:"product_ids"`
	Confidence  float64   `json:"confidence"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"` // name of the strategy that produced it
}

func (b *PredictedBasket) Empty() bool {
	return b == nil || len(b.ProductIDs) == 0
}

// SyncMode selects how a predicted basket is applied to a cart.
type SyncMode string

const (
	// SyncReplace discards the cart's active items and rebuilds them from
	// the predicted product ids at quantity 1 each.
	SyncReplace SyncMode = "replace"
	// SyncAugment adds predicted product ids not already in the cart at
	// quantity 1; existing items are left untouched.
	SyncAugment SyncMode = "augment"
)

func (m SyncMode) Known() bool {
	return m == SyncReplace || m == SyncAugment
}
