package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grocerly/storefront/internal/domain"
)

// Evaluator applies a named discount rule to a cart subtotal. Lookup goes
// out to the coupon store with a bounded timeout; a timeout fails closed
// as domain.ErrCollaboratorUnavailable, never as an accepted code.
type Evaluator struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

func NewEvaluator(store Store, timeout time.Duration) *Evaluator {
	return &Evaluator{
		store:   store,
		timeout: timeout,
		now:     time.Now,
	}
}

// Evaluate resolves a code against a pre-coupon subtotal. appliedCode is
// the code currently on the cart, empty if none; re-applying it is
// rejected. On success the returned discount carries the computed amount
// for that subtotal.
func (e *Evaluator) Evaluate(ctx context.Context, code string, subtotal int64, appliedCode string) (*domain.Discount, error) {
	if appliedCode != "" && appliedCode == code {
		return nil, &Error{Code: code, Reason: ReasonAlreadyApplied}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	c, err := e.store.GetByCode(lookupCtx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return nil, &Error{Code: code, Reason: ReasonNotFound}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("coupon lookup timed out: %w", domain.ErrCollaboratorUnavailable)
		}
		return nil, fmt.Errorf("coupon lookup failed: %w", domain.ErrCollaboratorUnavailable)
	}

	if !c.Active || c.Expired(e.now()) {
		return nil, &Error{Code: code, Reason: ReasonExpired}
	}
	if subtotal < c.MinSubtotal {
		return nil, &Error{Code: code, Reason: ReasonMinimumNotMet}
	}

	applied := domain.AppliedCoupon{Code: c.Code, Type: c.Type, Value: c.Value}
	return &domain.Discount{
		Code:   c.Code,
		Type:   c.Type,
		Value:  c.Value,
		Amount: applied.DiscountAmount(subtotal),
	}, nil
}
