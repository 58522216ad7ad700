package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/grocerly/storefront/internal/domain"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrDuplicateIdempotencyKey = errors.New("order for this idempotency key already exists")
	ErrStatusConflict          = errors.New("order status changed concurrently")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a pending notification written in the same transaction as
// the order change it describes.
type OutboxEvent struct {
	ID        int64
	OrderID   uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderRepository interface {
	// CreateOrder inserts the order and its order.created outbox event in
	// one transaction.
	CreateOrder(ctx context.Context, order *domain.Order) error
	// DeleteOrder removes an order outright. Only the checkout saga's
	// compensation path uses it.
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListOrdersByOwner(ctx context.Context, ownerKey string) ([]*domain.Order, error)
	// UpdateOrder persists the mutable fields guarded on the expected
	// current status, and writes a status-changed outbox event in the same
	// transaction. Returns ErrStatusConflict when the guard misses.
	UpdateOrder(ctx context.Context, order *domain.Order, from domain.OrderStatus) error

	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, eventID int64) error
	DeleteProcessedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	RunMigrations(cred *Credentials) error
	Close() error
}
