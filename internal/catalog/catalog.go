package catalog

import (
	"context"
	"errors"
)

var (
	ErrProductNotFound = errors.New("product not found in catalog")
)

// PriceStock is the catalog collaborator's answer for one product:
// authoritative unit price (minor units) and availability.
type PriceStock struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Stock     int    `json:"stock"`
	Available bool   `json:"available"` // false once a product is discontinued
}

// Catalog is the external product catalog contract. Implementations must
// honor the context deadline; the storefront treats a timeout as the
// collaborator being unavailable, never as the product being fine.
type Catalog interface {
	GetPriceAndStock(ctx context.Context, productID string) (*PriceStock, error)
}
