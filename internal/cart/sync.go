package cart

import (
	"context"
	"errors"
	"time"

	"github.com/grocerly/storefront/internal/catalog"
	"github.com/grocerly/storefront/internal/domain"
)

// SyncWithPredictedBasket applies a machine-generated basket to the cart.
// Replace swaps the active items for the predicted ids at quantity 1 each;
// Augment only adds ids not already present, never touching an explicit
// user quantity. Every item the sync introduces is re-priced through the
// catalog: a predicted basket never carries authoritative pricing.
// Predicted products the catalog no longer knows are skipped and returned
// so callers can see where the applied set diverged from the basket.
func (s *Service) SyncWithPredictedBasket(ctx context.Context, ownerKey string, basket *domain.PredictedBasket, mode domain.SyncMode) (*domain.Cart, []string, error) {
	if !mode.Known() {
		return nil, nil, ErrUnknownSyncMode
	}
	if basket.Empty() && mode == domain.SyncAugment {
		cart, err := s.GetCart(ctx, ownerKey)
		return cart, nil, err
	}

	var skipped []string
	cart, err := s.mutate(ctx, ownerKey, func(c *domain.Cart) error {
		var err error
		switch mode {
		case domain.SyncReplace:
			skipped, err = s.syncReplace(ctx, c, basket)
		default:
			skipped, err = s.syncAugment(ctx, c, basket)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return cart, skipped, nil
}

func (s *Service) syncReplace(ctx context.Context, c *domain.Cart, basket *domain.PredictedBasket) ([]string, error) {
	if basket.Empty() {
		c.Items = nil
		return nil, nil
	}
	items, skipped, err := s.priceBasket(ctx, basket, nil)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return skipped, nil
}

func (s *Service) syncAugment(ctx context.Context, c *domain.Cart, basket *domain.PredictedBasket) ([]string, error) {
	present := make(map[string]bool, len(c.Items))
	for i := range c.Items {
		present[c.Items[i].ProductID] = true
	}

	added, skipped, err := s.priceBasket(ctx, basket, present)
	if err != nil {
		return nil, err
	}
	c.Items = append(c.Items, added...)
	return skipped, nil
}

// priceBasket builds quantity-1 lines for the basket's product ids,
// skipping ids in the exclude set. Ids the catalog reports unknown are
// dropped from the lines and collected into the skipped list.
func (s *Service) priceBasket(ctx context.Context, basket *domain.PredictedBasket, exclude map[string]bool) ([]domain.CartItem, []string, error) {
	items := make([]domain.CartItem, 0, len(basket.ProductIDs))
	seen := make(map[string]bool, len(basket.ProductIDs))
	var skipped []string

	for _, productID := range basket.ProductIDs {
		if exclude[productID] || seen[productID] {
			continue
		}
		seen[productID] = true

		ps, err := s.lookupProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				s.log.Info("skipping unknown predicted product",
					"product", productID, "source", basket.Source)
				skipped = append(skipped, productID)
				continue
			}
			return nil, nil, err
		}

		items = append(items, domain.CartItem{
			ProductID: productID,
			Name:      ps.Name,
			Quantity:  1,
			UnitPrice: ps.Price,
			AddedAt:   time.Now(),
		})
	}

	return items, skipped, nil
}
