package predict

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/grocerly/storefront/internal/domain"
	"github.com/grocerly/storefront/pkg/logger"
)

// ErrNoBasket means the prediction service has nothing for this owner.
// Distinct from the service being unreachable, which fails closed.
var ErrNoBasket = errors.New("no predicted basket for owner")

// Client is the external prediction service contract. The basket it
// returns is opaque to this core: ranked ids, a pass-through confidence
// score and a source tag, nothing more.
type Client interface {
	GetPredictedBasket(ctx context.Context, ownerKey string) (*domain.PredictedBasket, error)
}

// Service wraps the client with a bounded timeout. A timeout surfaces as
// domain.ErrCollaboratorUnavailable, never as an empty basket.
type Service struct {
	client  Client
	timeout time.Duration
	log     *logger.Logger
}

func NewService(client Client, timeout time.Duration, log *logger.Logger) *Service {
	return &Service{
		client:  client,
		timeout: timeout,
		log:     log,
	}
}

func (s *Service) Fetch(ctx context.Context, ownerKey string) (*domain.PredictedBasket, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	basket, err := s.client.GetPredictedBasket(fetchCtx, ownerKey)
	if err != nil {
		if errors.Is(err, ErrNoBasket) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("prediction fetch timed out: %w", domain.ErrCollaboratorUnavailable)
		}
		return nil, fmt.Errorf("prediction fetch failed: %w", domain.ErrCollaboratorUnavailable)
	}
	if basket.Empty() {
		return nil, ErrNoBasket
	}

	s.log.Debug("fetched predicted basket",
		"owner", ownerKey, "source", basket.Source, "products", len(basket.ProductIDs))
	return basket, nil
}

// StaticClient serves pre-seeded baskets. Used by tests and the demo
// binary in place of the real prediction service.
type StaticClient struct {
	mu      sync.RWMutex
	baskets map[string]*domain.PredictedBasket
}

func NewStaticClient() *StaticClient {
	return &StaticClient{
		baskets: make(map[string]*domain.PredictedBasket),
	}
}

func (c *StaticClient) SetBasket(b *domain.PredictedBasket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baskets[b.OwnerKey] = b
}

func (c *StaticClient) GetPredictedBasket(ctx context.Context, ownerKey string) (*domain.PredictedBasket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	basket, exists := c.baskets[ownerKey]
	if !exists {
		return nil, ErrNoBasket
	}
	return basket, nil
}
