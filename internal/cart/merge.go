package cart

import (
	"context"
	"errors"
	"time"

	"github.com/grocerly/storefront/internal/cart/repository"
	"github.com/grocerly/storefront/internal/domain"
)

// MergeGuestCart folds a guest cart into the user's cart at login. For a
// product present in both, quantities sum and the user cart's price
// snapshot wins (the authenticated context is presumed fresher); guest-only
// items are appended as-is. The guest cart is deleted on success, so this
// is a consuming operation: callers must discard their guest handle after
// a successful merge.
func (s *Service) MergeGuestCart(ctx context.Context, guestKey, userKey string) (*domain.Cart, error) {
	if guestKey == userKey {
		return nil, ErrMergeSameOwner
	}

	s.locks.lockPair(guestKey, userKey)
	defer s.locks.unlockPair(guestKey, userKey)

	guest, err := s.repo.GetCart(ctx, guestKey)
	if err != nil {
		return nil, err // includes ErrCartNotFound for a stale guest handle
	}

	user, err := s.repo.GetCart(ctx, userKey)
	if errors.Is(err, repository.ErrCartNotFound) {
		now := time.Now()
		user = &domain.Cart{
			OwnerKey:  userKey,
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else if err != nil {
		return nil, err
	}

	for i := range guest.Items {
		gi := guest.Items[i]
		if idx := user.FindItem(gi.ProductID); idx >= 0 {
			user.Items[idx].Quantity += gi.Quantity
			continue
		}
		user.Items = append(user.Items, gi)
	}

	// Saved-for-later lists merge under the same policy.
	for i := range guest.Saved {
		gs := guest.Saved[i]
		if idx := user.FindSaved(gs.ProductID); idx >= 0 {
			user.Saved[idx].Quantity += gs.Quantity
			continue
		}
		user.Saved = append(user.Saved, gs)
	}

	// The user's coupon wins; a guest coupon is dropped with the cart.

	if err := s.repo.UpsertCart(ctx, user); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteCart(ctx, guestKey); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	s.invalidateCache(guestKey)
	s.invalidateCache(userKey)
	return user, nil
}
