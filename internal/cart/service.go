package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/grocerly/storefront/internal/cart/cache"
	"github.com/grocerly/storefront/internal/cart/repository"
	"github.com/grocerly/storefront/internal/catalog"
	"github.com/grocerly/storefront/internal/domain"
	"github.com/grocerly/storefront/pkg/logger"
)

// Evaluator resolves a coupon code against a subtotal. Implemented by the
// coupon package; kept as an interface here so the consumer defines it.
type Evaluator interface {
	Evaluate(ctx context.Context, code string, subtotal int64, appliedCode string) (*domain.Discount, error)
}

// Service owns cart aggregates. Every mutation runs under the owner's lock
// and writes the whole document, so failed operations leave the stored
// aggregate untouched.
type Service struct {
	repo           repository.CartRepository
	cache          cache.CartCache
	catalog        catalog.Catalog
	coupons        Evaluator
	locks          *ownerLocks
	sfg            singleflight.Group // Prevents cache stampede
	log            *logger.Logger
	catalogTimeout time.Duration
}

func NewService(repo repository.CartRepository, cache cache.CartCache, cat catalog.Catalog, coupons Evaluator, log *logger.Logger) *Service {
	return &Service{
		repo:           repo,
		cache:          cache,
		catalog:        cat,
		coupons:        coupons,
		locks:          newOwnerLocks(),
		log:            log,
		catalogTimeout: 3 * time.Second,
	}
}

// GetCart returns the owner's cart, an empty one if none exists yet.
// Read-only: served from cache when possible, deduplicated per owner.
func (s *Service) GetCart(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(ownerKey, func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, ownerKey)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get error", "owner", ownerKey, "err", err)
		}

		stored, errGet := s.repo.GetCart(ctx, ownerKey)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			now := time.Now()
			return &domain.Cart{
				OwnerKey:  ownerKey,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), ownerKey, stored); errSet != nil {
				s.log.Warn("cache set error", "owner", ownerKey, "err", errSet)
			}
		}()

		return stored, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// GetSubtotal is the coupon-adjusted subtotal of the active items.
func (s *Service) GetSubtotal(ctx context.Context, ownerKey string) (int64, error) {
	cart, err := s.GetCart(ctx, ownerKey)
	if err != nil {
		return 0, err
	}
	return cart.Subtotal(), nil
}

// GetItemCount is the total quantity across active items.
func (s *Service) GetItemCount(ctx context.Context, ownerKey string) (int, error) {
	cart, err := s.GetCart(ctx, ownerKey)
	if err != nil {
		return 0, err
	}
	return cart.ItemCount(), nil
}

// AddItem appends a product at the given quantity, summing quantities when
// the product is already present. New lines get a fresh unit price
// snapshot from the catalog.
func (s *Service) AddItem(ctx context.Context, ownerKey, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	return s.mutate(ctx, ownerKey, func(c *domain.Cart) error {
		if idx := c.FindItem(productID); idx >= 0 {
			c.Items[idx].Quantity += quantity
			return nil
		}

		ps, err := s.lookupProduct(ctx, productID)
		if err != nil {
			return err
		}

		c.Items = append(c.Items, domain.CartItem{
			ProductID: productID,
			Name:      ps.Name,
			Quantity:  quantity,
			UnitPrice: ps.Price,
			AddedAt:   time.Now(),
		})
		return nil
	})
}

// UpdateItemQuantity sets the quantity in place; zero or below removes the
// item, and removing an absent item is a no-op.
func (s *Service) UpdateItemQuantity(ctx context.Context, ownerKey, productID string, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, ownerKey, func(c *domain.Cart) error {
		idx := c.FindItem(productID)
		if quantity <= 0 {
			if idx >= 0 {
				c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			}
			return nil
		}
		if idx < 0 {
			return ErrItemNotFound
		}
		c.Items[idx].Quantity = quantity
		return nil
	})
}

// RemoveItem drops the item from the active list. Idempotent.
func (s *Service) RemoveItem(ctx context.Context, ownerKey, productID string) (*domain.Cart, error) {
	return s.UpdateItemQuantity(ctx, ownerKey, productID, 0)
}

// ClearCart empties the active and saved lists and drops any coupon.
// An already-empty cart is not an error.
func (s *Service) ClearCart(ctx context.Context, ownerKey string) error {
	s.locks.lock(ownerKey)
	defer s.locks.unlock(ownerKey)

	err := s.repo.DeleteCart(ctx, ownerKey)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return err
	}

	s.invalidateCache(ownerKey)
	return nil
}

// SaveForLater moves an active item into the saved-for-later list,
// preserving its quantity and price snapshot.
func (s *Service) SaveForLater(ctx context.Context, ownerKey, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, ownerKey, func(c *domain.Cart) error {
		idx := c.FindItem(productID)
		if idx < 0 {
			return ErrItemNotFound
		}
		item := c.Items[idx]
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)

		if saved := c.FindSaved(productID); saved >= 0 {
			c.Saved[saved].Quantity += item.Quantity
			return nil
		}
		c.Saved = append(c.Saved, item)
		return nil
	})
}

// MoveToCart moves a saved-for-later item back to the active list,
// preserving its quantity and price snapshot. If the product reappeared in
// the active list in the meantime the quantities merge.
func (s *Service) MoveToCart(ctx context.Context, ownerKey, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, ownerKey, func(c *domain.Cart) error {
		idx := c.FindSaved(productID)
		if idx < 0 {
			return ErrItemNotFound
		}
		item := c.Saved[idx]
		c.Saved = append(c.Saved[:idx], c.Saved[idx+1:]...)

		if active := c.FindItem(productID); active >= 0 {
			c.Items[active].Quantity += item.Quantity
			return nil
		}
		c.Items = append(c.Items, item)
		return nil
	})
}

// ApplyCoupon delegates the code to the evaluator; rejection leaves the
// cart unchanged.
func (s *Service) ApplyCoupon(ctx context.Context, ownerKey, code string) (*domain.Cart, error) {
	return s.mutate(ctx, ownerKey, func(c *domain.Cart) error {
		appliedCode := ""
		if c.Coupon != nil {
			appliedCode = c.Coupon.Code
		}

		discount, err := s.coupons.Evaluate(ctx, code, c.ItemsSubtotal(), appliedCode)
		if err != nil {
			return err
		}

		c.Coupon = &domain.AppliedCoupon{
			Code:  discount.Code,
			Type:  discount.Type,
			Value: discount.Value,
		}
		return nil
	})
}

// RemoveCoupon clears the applied coupon. Idempotent.
func (s *Service) RemoveCoupon(ctx context.Context, ownerKey string) (*domain.Cart, error) {
	return s.mutate(ctx, ownerKey, func(c *domain.Cart) error {
		c.Coupon = nil
		return nil
	})
}

// WithOwnerLock runs fn while holding the owner's mutation lock. The order
// engine uses it to make checkout atomic with respect to cart mutations.
func (s *Service) WithOwnerLock(ownerKey string, fn func() error) error {
	s.locks.lock(ownerKey)
	defer s.locks.unlock(ownerKey)
	return fn()
}

// InvalidateCache drops the owner's cached cart. Exposed for the order
// engine, which clears carts through the repository during checkout.
func (s *Service) InvalidateCache(ownerKey string) {
	s.invalidateCache(ownerKey)
}

// mutate loads the owner's cart (creating an empty one on first mutation),
// applies fn and persists the result. A failing fn writes nothing.
func (s *Service) mutate(ctx context.Context, ownerKey string, fn func(c *domain.Cart) error) (*domain.Cart, error) {
	s.locks.lock(ownerKey)
	defer s.locks.unlock(ownerKey)

	cart, err := s.repo.GetCart(ctx, ownerKey)
	if errors.Is(err, repository.ErrCartNotFound) {
		now := time.Now()
		cart = &domain.Cart{
			OwnerKey:  ownerKey,
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		return nil, err
	}

	s.invalidateCache(ownerKey)
	return cart, nil
}

func (s *Service) lookupProduct(ctx context.Context, productID string) (*catalog.PriceStock, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.catalogTimeout)
	defer cancel()

	ps, err := s.catalog.GetPriceAndStock(lookupCtx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		if errors.Is(err, domain.ErrCollaboratorUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog lookup for %s: %w", productID, domain.ErrCollaboratorUnavailable)
	}
	return ps, nil
}

func (s *Service) invalidateCache(ownerKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ownerKey); err != nil {
		s.log.Warn("cache invalidate error", "owner", ownerKey, "err", err)
	}
}
