package repository

import (
	"context"
	"errors"

	"github.com/grocerly/storefront/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository defines the interface for cart persistence. The service
// mutates carts as whole documents under the per-owner lock, so the
// contract is deliberately get/upsert/delete.
type CartRepository interface {
	GetCart(ctx context.Context, ownerKey string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, ownerKey string) error

	// CreateIndexes sets up the store's indexes. Called once at startup.
	CreateIndexes(ctx context.Context) error
}
