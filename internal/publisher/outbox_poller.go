package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/grocerly/storefront/internal/order/repository"
	"github.com/grocerly/storefront/pkg/logger"
)

// Writer is the slice of kafka.Writer the poller needs; tests substitute
// their own.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxPoller ships order events from the outbox table to Kafka. Events
// are written in the same transaction as the order change they describe,
// so delivery is at-least-once: anything unmarked gets retried on the next
// tick. A slower cleanup tick prunes events that have been processed for
// longer than the retention window.
type OutboxPoller struct {
	repo        repository.OrderRepository
	writer      Writer
	log         *logger.Logger
	eventTick   time.Duration
	cleanupTick time.Duration
	retention   time.Duration
	batchSize   int
}

func NewOutboxPoller(repo repository.OrderRepository, log *logger.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "order-events",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		repo:        repo,
		writer:      w,
		log:         log,
		eventTick:   time.Second,
		cleanupTick: time.Hour,
		retention:   7 * 24 * time.Hour,
		batchSize:   100,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	cleanupTicker := time.NewTicker(p.cleanupTick)
	defer eventTicker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-cleanupTicker.C:
			p.pruneProcessedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", "err", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publish(ctx, event); errPublish != nil {
			p.log.Error("failed to publish event", "event", event.ID, "err", errPublish)
			continue
		}

		if errMark := p.repo.MarkEventProcessed(ctx, event.ID); errMark != nil {
			p.log.Error("failed to mark event as processed", "event", event.ID, "err", errMark)
			continue
		}
	}
}

func (p *OutboxPoller) pruneProcessedEvents(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)
	pruned, err := p.repo.DeleteProcessedEventsBefore(ctx, cutoff)
	if err != nil {
		p.log.Error("failed to prune processed events", "err", err)
		return
	}
	if pruned > 0 {
		p.log.Info("pruned processed outbox events", "count", pruned)
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.OrderID.String()), // order_id for per-order ordering
		Value: event.Payload,                  // already JSON from the database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
