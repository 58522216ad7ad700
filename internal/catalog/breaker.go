package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/grocerly/storefront/internal/domain"
	"github.com/grocerly/storefront/pkg/logger"
)

// BreakerCatalog wraps a Catalog with a circuit breaker so a struggling
// catalog service fails fast instead of holding every checkout on a
// timeout. Breaker-open and transport failures surface as
// domain.ErrCollaboratorUnavailable; a definitive "product not found"
// answer passes through and does not trip the breaker.
type BreakerCatalog struct {
	inner Catalog
	cb    *gobreaker.CircuitBreaker[*PriceStock]
	log   *logger.Logger
}

func NewBreakerCatalog(inner Catalog, log *logger.Logger) *BreakerCatalog {
	settings := gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("catalog breaker state change", "from", from.String(), "to", to.String())
		},
	}

	return &BreakerCatalog{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*PriceStock](settings),
		log:   log,
	}
}

func (b *BreakerCatalog) GetPriceAndStock(ctx context.Context, productID string) (*PriceStock, error) {
	ps, err := b.cb.Execute(func() (*PriceStock, error) {
		return b.inner.GetPriceAndStock(ctx, productID)
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("catalog breaker open: %w", domain.ErrCollaboratorUnavailable)
		}
		return nil, fmt.Errorf("catalog lookup failed: %w", domain.ErrCollaboratorUnavailable)
	}
	return ps, nil
}
