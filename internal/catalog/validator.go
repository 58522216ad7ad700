package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grocerly/storefront/internal/domain"
)

// Validator re-checks a cart's active items against live catalog state.
// It is the single required gate before a cart may become an order.
type Validator struct {
	catalog Catalog
	timeout time.Duration
}

func NewValidator(catalog Catalog, timeout time.Duration) *Validator {
	return &Validator{
		catalog: catalog,
		timeout: timeout,
	}
}

// Validate produces one check per active item: unchanged, price changed,
// or unavailable. Discrepancies are reported verbatim; nothing is
// auto-corrected. A catalog timeout or transport failure aborts the whole
// validation with domain.ErrCollaboratorUnavailable so checkout stays
// blocked rather than letting unverified items through.
func (v *Validator) Validate(ctx context.Context, cart *domain.Cart) (*domain.ValidationReport, error) {
	report := &domain.ValidationReport{
		Items:     make([]domain.ItemCheck, 0, len(cart.Items)),
		CheckedAt: time.Now(),
	}

	for i := range cart.Items {
		item := &cart.Items[i]

		check, err := v.checkItem(ctx, item)
		if err != nil {
			return nil, err
		}
		report.Items = append(report.Items, *check)
	}

	return report, nil
}

func (v *Validator) checkItem(ctx context.Context, item *domain.CartItem) (*domain.ItemCheck, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	check := &domain.ItemCheck{
		ProductID: item.ProductID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		OldPrice:  item.UnitPrice,
	}

	ps, err := v.catalog.GetPriceAndStock(lookupCtx, item.ProductID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			check.Outcome = domain.ItemUnavailable
			check.Reason = domain.ReasonDiscontinued
			return check, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("catalog lookup for %s timed out: %w", item.ProductID, domain.ErrCollaboratorUnavailable)
		}
		if errors.Is(err, domain.ErrCollaboratorUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog lookup for %s: %w", item.ProductID, domain.ErrCollaboratorUnavailable)
	}

	check.Name = ps.Name
	check.CurrentPrice = ps.Price

	switch {
	case !ps.Available:
		check.Outcome = domain.ItemUnavailable
		check.Reason = domain.ReasonDiscontinued
	case ps.Stock < item.Quantity:
		check.Outcome = domain.ItemUnavailable
		check.Reason = domain.ReasonOutOfStock
	case ps.Price != item.UnitPrice:
		check.Outcome = domain.ItemPriceChanged
	default:
		check.Outcome = domain.ItemUnchanged
	}

	return check, nil
}
