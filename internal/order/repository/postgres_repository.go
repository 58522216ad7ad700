package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/grocerly/storefront/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

const orderColumns = `id, owner_key, idempotency_key, items, subtotal, discount, total,
	coupon_code, currency, address, payment_method, payment_auth_ref, status,
	tracking_number, cancel_reason, refund, created_at, status_changed_at,
	cancelled_at, delivered_at`

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(order.Address)
	if err != nil {
		return fmt.Errorf("failed to marshal address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order tx: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (id, owner_key, idempotency_key, items, subtotal, discount, total,
	            coupon_code, currency, address, payment_method, status, created_at, status_changed_at)
	          VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID,
		order.OwnerKey,
		order.IdempotencyKey,
		itemsJSON,
		order.Subtotal,
		order.Discount,
		order.Total,
		order.CouponCode,
		order.Currency,
		addressJSON,
		order.PaymentMethod,
		order.Status,
		order.CreatedAt,
		order.StatusChangedAt)
	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	if err := insertEvent(ctx, tx, order, EventOrderCreated); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order tx: %w", err)
	}
	return nil
}

func (r *Repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete order tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_events WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete order events: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete order tx: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *Repository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = $1`
	return r.queryOne(ctx, query, key)
}

func (r *Repository) queryOne(ctx context.Context, query string, arg interface{}) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func (r *Repository) ListOrdersByOwner(ctx context.Context, ownerKey string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE owner_key = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("query orders by owner: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *Repository) UpdateOrder(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	refundJSON, err := marshalNullable(order.Refund)
	if err != nil {
		return fmt.Errorf("failed to marshal refund record: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update order tx: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE orders
	          SET status = $1, payment_auth_ref = $2, tracking_number = $3,
	              cancel_reason = $4, refund = $5, status_changed_at = $6,
	              cancelled_at = $7, delivered_at = $8
	          WHERE id = $9 AND status = $10`

	result, err := tx.ExecContext(ctx, query,
		order.Status,
		order.PaymentAuthRef,
		order.TrackingNumber,
		order.CancelReason,
		refundJSON,
		order.StatusChangedAt,
		order.CancelledAt,
		order.DeliveredAt,
		order.ID,
		from)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrStatusConflict
	}

	if err := insertEvent(ctx, tx, order, EventOrderStatusChanged); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update order tx: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, order *domain.Order, eventType string) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `INSERT INTO order_events (order_id, event_type, payload, created_at)
	          VALUES ($1, $2, $3, NOW())`
	if _, err := tx.ExecContext(ctx, query, order.ID, eventType, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, order_id, event_type, payload, created_at
	          FROM order_events
	          WHERE processed_at IS NULL
	          ORDER BY id
	          LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.Scan(&event.ID, &event.OrderID, &event.EventType, &event.Payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("event row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventProcessed(ctx context.Context, eventID int64) error {
	query := `UPDATE order_events SET processed_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

func (r *Repository) DeleteProcessedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM order_events WHERE processed_at IS NOT NULL AND processed_at < $1`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete processed events: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order       domain.Order
		idemKey     sql.NullString
		itemsJSON   []byte
		addressJSON []byte
		refundJSON  []byte
	)

	err := row.Scan(
		&order.ID,
		&order.OwnerKey,
		&idemKey,
		&itemsJSON,
		&order.Subtotal,
		&order.Discount,
		&order.Total,
		&order.CouponCode,
		&order.Currency,
		&addressJSON,
		&order.PaymentMethod,
		&order.PaymentAuthRef,
		&order.Status,
		&order.TrackingNumber,
		&order.CancelReason,
		&refundJSON,
		&order.CreatedAt,
		&order.StatusChangedAt,
		&order.CancelledAt,
		&order.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}

	order.IdempotencyKey = idemKey.String
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.Address); err != nil {
		return nil, fmt.Errorf("unmarshal address: %w", err)
	}
	if len(refundJSON) > 0 {
		if err := json.Unmarshal(refundJSON, &order.Refund); err != nil {
			return nil, fmt.Errorf("unmarshal refund record: %w", err)
		}
	}

	return &order, nil
}

func marshalNullable(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if refund, ok := v.(*domain.RefundRecord); ok && refund == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
