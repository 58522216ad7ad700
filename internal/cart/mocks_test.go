package cart

import (
	"context"
	"sync"

	"github.com/grocerly/storefront/internal/cart/cache"
	"github.com/grocerly/storefront/internal/cart/repository"
	"github.com/grocerly/storefront/internal/catalog"
	"github.com/grocerly/storefront/internal/coupon"
	"github.com/grocerly/storefront/internal/domain"
	"github.com/grocerly/storefront/pkg/logger"
)

// mockRepository is an in-memory CartRepository. It is safe for concurrent
// use so the lock tests can hammer it from many goroutines.
type mockRepository struct {
	mu       sync.Mutex
	carts    map[string]*domain.Cart
	upserts  int
	upsertFn func(cart *domain.Cart) error
	deleteFn func(ownerKey string) error
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: make(map[string]*domain.Cart)}
}

func (m *mockRepository) GetCart(_ context.Context, ownerKey string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[ownerKey]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	clone := *c
	clone.Items = append([]domain.CartItem(nil), c.Items...)
	clone.Saved = append([]domain.CartItem(nil), c.Saved...)
	return &clone, nil
}

func (m *mockRepository) UpsertCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertFn != nil {
		if err := m.upsertFn(cart); err != nil {
			return err
		}
	}
	m.upserts++
	clone := *cart
	clone.Items = append([]domain.CartItem(nil), cart.Items...)
	clone.Saved = append([]domain.CartItem(nil), cart.Saved...)
	m.carts[cart.OwnerKey] = &clone
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, ownerKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteFn != nil {
		if err := m.deleteFn(ownerKey); err != nil {
			return err
		}
	}
	if _, ok := m.carts[ownerKey]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, ownerKey)
	return nil
}

func (m *mockRepository) CreateIndexes(context.Context) error { return nil }

// seed installs a cart directly, bypassing the service.
func (m *mockRepository) seed(cart *domain.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.OwnerKey] = cart
}

// missCache always misses. Cart reads in these tests must come from the
// repository so the assertions see what was persisted.
type missCache struct{}

func (missCache) Get(context.Context, string) (*domain.Cart, error) {
	return nil, cache.ErrCacheMiss
}

func (missCache) Set(context.Context, string, *domain.Cart) error { return nil }

func (missCache) Delete(context.Context, string) error { return nil }

// mockEvaluator accepts every code as a fixed discount, or fails with err.
type mockEvaluator struct {
	err   error
	calls int
}

func (m *mockEvaluator) Evaluate(_ context.Context, code string, subtotal int64, appliedCode string) (*domain.Discount, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if appliedCode != "" && appliedCode == code {
		return nil, &coupon.Error{Code: code, Reason: coupon.ReasonAlreadyApplied}
	}
	return &domain.Discount{
		Code:   code,
		Type:   domain.DiscountFixed,
		Value:  500,
		Amount: min64(500, subtotal),
	}, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func newTestService(repo repository.CartRepository, cat catalog.Catalog, eval Evaluator) *Service {
	return NewService(repo, missCache{}, cat, eval, logger.NewNop())
}

func groceryCatalog() *catalog.MemoryCatalog {
	c := catalog.NewMemoryCatalog()
	c.SetProduct("milk", "Milk", 189, 100)
	c.SetProduct("bread", "Bread", 449, 100)
	c.SetProduct("eggs", "Eggs", 329, 100)
	return c
}
