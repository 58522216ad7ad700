package order

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	cartrepo "github.com/grocerly/storefront/internal/cart/repository"
	"github.com/grocerly/storefront/internal/domain"
	"github.com/grocerly/storefront/internal/order/repository"
)

// mockOrderRepo is an in-memory OrderRepository with the same guarantees
// the postgres implementation gives the engine: idempotency-key uniqueness
// and status-guarded updates.
type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*domain.Order
	events    []*repository.OutboxEvent
	nextEvent int64
	createFn  func(order *domain.Order) error
	deletes   int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *mockOrderRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createFn != nil {
		if err := m.createFn(order); err != nil {
			return err
		}
	}
	if order.IdempotencyKey != "" {
		for _, o := range m.orders {
			if o.IdempotencyKey == order.IdempotencyKey {
				return repository.ErrDuplicateIdempotencyKey
			}
		}
	}
	clone := *order
	m.orders[order.ID] = &clone
	m.nextEvent++
	m.events = append(m.events, &repository.OutboxEvent{
		ID:        m.nextEvent,
		OrderID:   order.ID,
		EventType: repository.EventOrderCreated,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *mockOrderRepo) DeleteOrder(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	m.deletes++
	return nil
}

func (m *mockOrderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *mockOrderRepo) GetOrderByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.orders {
		if o.IdempotencyKey == key {
			clone := *o
			return &clone, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) ListOrdersByOwner(_ context.Context, ownerKey string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Order
	for _, o := range m.orders {
		if o.OwnerKey == ownerKey {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateOrder(_ context.Context, order *domain.Order, from domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if stored.Status != from {
		return repository.ErrStatusConflict
	}
	clone := *order
	m.orders[order.ID] = &clone
	m.nextEvent++
	m.events = append(m.events, &repository.OutboxEvent{
		ID:        m.nextEvent,
		OrderID:   order.ID,
		EventType: repository.EventOrderStatusChanged,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *mockOrderRepo) GetUnprocessedEvents(context.Context, int) ([]*repository.OutboxEvent, error) {
	return nil, nil
}

func (m *mockOrderRepo) MarkEventProcessed(context.Context, int64) error { return nil }

func (m *mockOrderRepo) DeleteProcessedEventsBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (m *mockOrderRepo) RunMigrations(*repository.Credentials) error { return nil }

func (m *mockOrderRepo) Close() error { return nil }

// mockCartRepo holds at most one cart per owner.
type mockCartRepo struct {
	mu       sync.Mutex
	carts    map[string]*domain.Cart
	deleteFn func(ownerKey string) error
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]*domain.Cart)}
}

func (m *mockCartRepo) GetCart(_ context.Context, ownerKey string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[ownerKey]
	if !ok {
		return nil, cartrepo.ErrCartNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *mockCartRepo) UpsertCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *cart
	m.carts[cart.OwnerKey] = &clone
	return nil
}

func (m *mockCartRepo) DeleteCart(_ context.Context, ownerKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteFn != nil {
		if err := m.deleteFn(ownerKey); err != nil {
			return err
		}
	}
	if _, ok := m.carts[ownerKey]; !ok {
		return cartrepo.ErrCartNotFound
	}
	delete(m.carts, ownerKey)
	return nil
}

func (m *mockCartRepo) CreateIndexes(context.Context) error { return nil }

// passGate satisfies CartGate without a real cart service behind it.
type passGate struct {
	mu          sync.Mutex
	invalidated []string
}

func (g *passGate) WithOwnerLock(_ string, fn func() error) error { return fn() }

func (g *passGate) InvalidateCache(ownerKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.invalidated = append(g.invalidated, ownerKey)
}

// scriptedValidator returns a fixed report or error.
type scriptedValidator struct {
	report *domain.ValidationReport
	err    error
}

func (v *scriptedValidator) Validate(_ context.Context, cart *domain.Cart) (*domain.ValidationReport, error) {
	if v.err != nil {
		return nil, v.err
	}
	if v.report != nil {
		return v.report, nil
	}
	report := &domain.ValidationReport{CheckedAt: time.Now()}
	for i := range cart.Items {
		item := &cart.Items[i]
		report.Items = append(report.Items, domain.ItemCheck{
			ProductID:    item.ProductID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			Outcome:      domain.ItemUnchanged,
			OldPrice:     item.UnitPrice,
			CurrentPrice: item.UnitPrice,
		})
	}
	return report, nil
}

// decliningAuthorizer rejects every authorization.
type decliningAuthorizer struct{}

func (decliningAuthorizer) Authorize(context.Context, string, int64) (string, error) {
	return "", ErrDeclined
}

// downAuthorizer simulates a payment provider outage.
type downAuthorizer struct{}

func (downAuthorizer) Authorize(ctx context.Context, _ string, _ int64) (string, error) {
	return "", context.DeadlineExceeded
}
