package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocerly/storefront/internal/domain"
	"github.com/grocerly/storefront/internal/order/repository"
	"github.com/grocerly/storefront/pkg/logger"
)

// mockEventRepo implements only the outbox slice of OrderRepository.
type mockEventRepo struct {
	events    []*repository.OutboxEvent
	processed []int64
	fetchErr  error
	markErr   error
	pruned    int64
	cutoffs   []time.Time
}

func (m *mockEventRepo) GetUnprocessedEvents(_ context.Context, limit int) ([]*repository.OutboxEvent, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

func (m *mockEventRepo) MarkEventProcessed(_ context.Context, eventID int64) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.processed = append(m.processed, eventID)
	return nil
}

func (m *mockEventRepo) DeleteProcessedEventsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.cutoffs = append(m.cutoffs, cutoff)
	return m.pruned, nil
}

func (m *mockEventRepo) CreateOrder(context.Context, *domain.Order) error { return nil }
func (m *mockEventRepo) DeleteOrder(context.Context, uuid.UUID) error     { return nil }
func (m *mockEventRepo) GetOrderByID(context.Context, uuid.UUID) (*domain.Order, error) {
	return nil, repository.ErrOrderNotFound
}
func (m *mockEventRepo) GetOrderByIdempotencyKey(context.Context, string) (*domain.Order, error) {
	return nil, repository.ErrOrderNotFound
}
func (m *mockEventRepo) ListOrdersByOwner(context.Context, string) ([]*domain.Order, error) {
	return nil, nil
}
func (m *mockEventRepo) UpdateOrder(context.Context, *domain.Order, domain.OrderStatus) error {
	return nil
}
func (m *mockEventRepo) RunMigrations(*repository.Credentials) error { return nil }
func (m *mockEventRepo) Close() error                                { return nil }

// mockWriter records messages; failAt makes the nth write fail.
type mockWriter struct {
	messages []kafka.Message
	failAt   int
	writes   int
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.writes++
	if m.failAt > 0 && m.writes == m.failAt {
		return errors.New("broker unreachable")
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func newTestPoller(repo repository.OrderRepository, w Writer) *OutboxPoller {
	return &OutboxPoller{
		repo:        repo,
		writer:      w,
		log:         logger.NewNop(),
		eventTick:   10 * time.Millisecond,
		cleanupTick: time.Hour,
		retention:   7 * 24 * time.Hour,
		batchSize:   100,
	}
}

func outboxEvent(id int64, eventType string) *repository.OutboxEvent {
	return &repository.OutboxEvent{
		ID:        id,
		OrderID:   uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{"status":"PENDING"}`),
		CreatedAt: time.Now(),
	}
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	repo := &mockEventRepo{events: []*repository.OutboxEvent{
		outboxEvent(1, repository.EventOrderCreated),
		outboxEvent(2, repository.EventOrderStatusChanged),
	}}
	writer := &mockWriter{}
	p := newTestPoller(repo, writer)

	p.processUnpublishedEvents(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, []int64{1, 2}, repo.processed)

	msg := writer.messages[0]
	assert.Equal(t, repo.events[0].OrderID.String(), string(msg.Key))
	assert.JSONEq(t, `{"status":"PENDING"}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, repository.EventOrderCreated, string(msg.Headers[0].Value))
}

func TestProcessUnpublishedEvents_FailedPublishStaysUnmarked(t *testing.T) {
	repo := &mockEventRepo{events: []*repository.OutboxEvent{
		outboxEvent(1, repository.EventOrderCreated),
		outboxEvent(2, repository.EventOrderCreated),
		outboxEvent(3, repository.EventOrderCreated),
	}}
	writer := &mockWriter{failAt: 2}
	p := newTestPoller(repo, writer)

	p.processUnpublishedEvents(context.Background())

	// Event 2 failed to publish; it must not be marked, while the rest of
	// the batch still goes through.
	assert.Equal(t, []int64{1, 3}, repo.processed)
	assert.Len(t, writer.messages, 2)
}

func TestProcessUnpublishedEvents_FailedMarkIsRetriedNextTick(t *testing.T) {
	repo := &mockEventRepo{
		events:  []*repository.OutboxEvent{outboxEvent(1, repository.EventOrderCreated)},
		markErr: errors.New("connection lost"),
	}
	writer := &mockWriter{}
	p := newTestPoller(repo, writer)

	p.processUnpublishedEvents(context.Background())
	assert.Empty(t, repo.processed)

	// The mark failure heals; the same event is delivered again. That is
	// the at-least-once contract.
	repo.markErr = nil
	p.processUnpublishedEvents(context.Background())
	assert.Equal(t, []int64{1}, repo.processed)
	assert.Len(t, writer.messages, 2)
}

func TestProcessUnpublishedEvents_FetchErrorSkipsTick(t *testing.T) {
	repo := &mockEventRepo{fetchErr: errors.New("db down")}
	writer := &mockWriter{}
	p := newTestPoller(repo, writer)

	p.processUnpublishedEvents(context.Background())
	assert.Empty(t, writer.messages)
}

func TestPruneProcessedEvents_UsesRetentionCutoff(t *testing.T) {
	repo := &mockEventRepo{pruned: 12}
	p := newTestPoller(repo, &mockWriter{})

	before := time.Now().Add(-p.retention)
	p.pruneProcessedEvents(context.Background())

	require.Len(t, repo.cutoffs, 1)
	assert.WithinDuration(t, before, repo.cutoffs[0], time.Second)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := &mockEventRepo{events: []*repository.OutboxEvent{outboxEvent(1, repository.EventOrderCreated)}}
	writer := &mockWriter{}
	p := newTestPoller(repo, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Let at least one tick fire, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
	assert.NotEmpty(t, writer.messages)
}
