package order

import (
	"errors"
	"fmt"

	"github.com/grocerly/storefront/internal/domain"
)

var (
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrReasonRequired       = errors.New("a reason is required for this transition")
	ErrPaymentDeclined      = errors.New("payment was declined")
	ErrRefundItemNotInOrder = errors.New("refund lists a product not in the order")
)

// StaleCartError blocks checkout when validation found discrepancies. It
// carries the full report so the caller can show exactly what changed and
// retry after reconciling; the engine never resolves it silently.
type StaleCartError struct {
	Report *domain.ValidationReport
}

func (e *StaleCartError) Error() string {
	changed := 0
	for i := range e.Report.Items {
		if e.Report.Items[i].Outcome != domain.ItemUnchanged {
			changed++
		}
	}
	return fmt.Sprintf("cart is stale: %d of %d items changed since they were added", changed, len(e.Report.Items))
}

// IllegalTransitionError reports a status move outside the transition table.
type IllegalTransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order status transition %s -> %s", e.From, e.To)
}
