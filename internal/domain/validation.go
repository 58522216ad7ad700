package domain

import "time"

type ItemOutcome string

const (
	ItemUnchanged    ItemOutcome = "UNCHANGED"
	ItemPriceChanged ItemOutcome = "PRICE_CHANGED"
	ItemUnavailable  ItemOutcome = "UNAVAILABLE"
)

type UnavailableReason string

const (
	ReasonOutOfStock   UnavailableReason = "OUT_OF_STOCK"
	ReasonDiscontinued UnavailableReason = "DISCONTINUED"
)

// ItemCheck is the result of re-checking a single cart line against live
// catalog state. CurrentPrice and Name are filled for unchanged and
// price-changed items so checkout can freeze the authoritative values.
type ItemCheck struct {
	ProductID    string            `json:"product_id"`
	Name         string            `json:"name,omitempty"`
	Quantity     int               `json:"quantity"`
	Outcome      ItemOutcome       `json:"outcome"`
	OldPrice     int64             `json:"old_price,omitempty"`
	CurrentPrice int64             `json:"current_price,omitempty"`
	Reason       UnavailableReason `json:"reason,omitempty"`
}

// ValidationReport is the per-item outcome of re-checking a cart against
// the catalog immediately before checkout. It is surfaced to the caller
// verbatim; the validator never auto-corrects quantities or prices.
type ValidationReport struct {
	Items     []ItemCheck `json:"items"`
	CheckedAt time.Time   `json:"checked_at"`
}

// Valid reports whether every item came back unchanged.
func (r *ValidationReport) Valid() bool {
	for i := range r.Items {
		if r.Items[i].Outcome != ItemUnchanged {
			return false
		}
	}
	return true
}

// Find returns the check for the given product id, or nil.
func (r *ValidationReport) Find(productID string) *ItemCheck {
	for i := range r.Items {
		if r.Items[i].ProductID == productID {
			return &r.Items[i]
		}
	}
	return nil
}
