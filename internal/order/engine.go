package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	cartrepo "github.com/grocerly/storefront/internal/cart/repository"
	"github.com/grocerly/storefront/internal/domain"
	"github.com/grocerly/storefront/internal/order/repository"
	"github.com/grocerly/storefront/pkg/logger"
)

// CartGate is the slice of the cart service the engine needs: the owner
// lock so checkout serializes with cart mutations, and cache invalidation
// after the cart is cleared through the repository.
type CartGate interface {
	WithOwnerLock(ownerKey string, fn func() error) error
	InvalidateCache(ownerKey string)
}

// Validator re-checks cart contents against the catalog. Implemented by
// the catalog package.
type Validator interface {
	Validate(ctx context.Context, cart *domain.Cart) (*domain.ValidationReport, error)
}

// Engine converts validated carts into immutable orders and drives each
// order through its status state machine.
type Engine struct {
	carts          CartGate
	cartRepo       cartrepo.CartRepository
	validator      Validator
	orders         repository.OrderRepository
	payments       Authorizer
	log            *logger.Logger
	paymentTimeout time.Duration
	currency       string
}

func NewEngine(carts CartGate, cartRepo cartrepo.CartRepository, validator Validator, orders repository.OrderRepository, payments Authorizer, log *logger.Logger) *Engine {
	return &Engine{
		carts:          carts,
		cartRepo:       cartRepo,
		validator:      validator,
		orders:         orders,
		payments:       payments,
		log:            log,
		paymentTimeout: 5 * time.Second,
		currency:       "USD",
	}
}

// CreateOrder freezes the owner's cart into a Pending order and clears the
// cart. Both effects happen under the owner lock: the order and its outbox
// event commit in one transaction, then the cart is deleted; if the delete
// fails the order insert is compensated away so neither side is left
// half-done. Item snapshots come from the validated prices, not the
// possibly stale cart snapshots.
func (e *Engine) CreateOrder(ctx context.Context, ownerKey string, address domain.Address, paymentMethod, idempotencyKey string) (*domain.Order, error) {
	if idempotencyKey != "" {
		existing, err := e.orders.GetOrderByIdempotencyKey(ctx, idempotencyKey)
		if err == nil {
			e.log.Info("duplicate checkout request", "owner", ownerKey, "order", existing.ID)
			return existing, nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
	}

	var order *domain.Order
	err := e.carts.WithOwnerLock(ownerKey, func() error {
		cart, err := e.cartRepo.GetCart(ctx, ownerKey)
		if errors.Is(err, cartrepo.ErrCartNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return ErrEmptyCart
		}

		report, err := e.validator.Validate(ctx, cart)
		if err != nil {
			return err
		}
		if !report.Valid() {
			return &StaleCartError{Report: report}
		}

		order = e.freeze(cart, report, address, paymentMethod, idempotencyKey)

		if err := e.orders.CreateOrder(ctx, order); err != nil {
			if errors.Is(err, repository.ErrDuplicateIdempotencyKey) && idempotencyKey != "" {
				existing, getErr := e.orders.GetOrderByIdempotencyKey(ctx, idempotencyKey)
				if getErr == nil {
					order = existing
					return nil
				}
			}
			return err
		}

		if err := e.cartRepo.DeleteCart(ctx, ownerKey); err != nil && !errors.Is(err, cartrepo.ErrCartNotFound) {
			// Compensate: never leave an order behind while the cart still
			// shows the same items as available for a second checkout.
			if delErr := e.orders.DeleteOrder(ctx, order.ID); delErr != nil {
				e.log.Error("checkout compensation failed",
					"order", order.ID, "owner", ownerKey, "err", delErr)
			}
			return fmt.Errorf("failed to clear cart after order creation: %w", err)
		}

		e.carts.InvalidateCache(ownerKey)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("order created", "order", order.ID, "owner", ownerKey, "total", order.Total)
	return order, nil
}

func (e *Engine) freeze(cart *domain.Cart, report *domain.ValidationReport, address domain.Address, paymentMethod, idempotencyKey string) *domain.Order {
	items := make([]domain.OrderItem, 0, len(cart.Items))
	var subtotal int64
	for i := range cart.Items {
		ci := &cart.Items[i]
		price := ci.UnitPrice
		name := ci.Name
		if check := report.Find(ci.ProductID); check != nil {
			price = check.CurrentPrice
			name = check.Name
		}
		line := domain.OrderItem{
			ProductID: ci.ProductID,
			Name:      name,
			Quantity:  ci.Quantity,
			UnitPrice: price,
			Subtotal:  price * int64(ci.Quantity),
		}
		subtotal += line.Subtotal
		items = append(items, line)
	}

	var discount int64
	couponCode := ""
	if cart.Coupon != nil {
		discount = cart.Coupon.DiscountAmount(subtotal)
		couponCode = cart.Coupon.Code
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	now := time.Now()
	return &domain.Order{
		ID:              uuid.New(),
		OwnerKey:        cart.OwnerKey,
		IdempotencyKey:  idempotencyKey,
		Items:           items,
		Subtotal:        subtotal,
		Discount:        discount,
		Total:           total,
		CouponCode:      couponCode,
		Currency:        e.currency,
		Address:         address,
		PaymentMethod:   paymentMethod,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		StatusChangedAt: now,
	}
}

// Confirm authorizes payment and moves the order Pending -> Confirmed.
func (e *Engine) Confirm(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := e.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionTo(order.Status, domain.OrderStatusConfirmed) {
		return nil, &IllegalTransitionError{From: order.Status, To: domain.OrderStatusConfirmed}
	}

	authCtx, cancel := context.WithTimeout(ctx, e.paymentTimeout)
	defer cancel()

	authRef, err := e.payments.Authorize(authCtx, order.PaymentMethod, order.Total)
	if err != nil {
		if errors.Is(err, ErrDeclined) {
			return nil, ErrPaymentDeclined
		}
		return nil, fmt.Errorf("payment authorization failed: %w", domain.ErrCollaboratorUnavailable)
	}

	from := order.Status
	order.Status = domain.OrderStatusConfirmed
	order.PaymentAuthRef = authRef
	order.StatusChangedAt = time.Now()

	if err := e.persistTransition(ctx, order, from); err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel closes the order inside the cancellation window. A reason is
// required; the window closes once the order has shipped. The order must
// belong to ownerKey; a foreign id reads as not found.
func (e *Engine) Cancel(ctx context.Context, ownerKey string, orderID uuid.UUID, reason string) (*domain.Order, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	order, err := e.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OwnerKey != ownerKey {
		return nil, repository.ErrOrderNotFound
	}
	if !domain.CanTransitionTo(order.Status, domain.OrderStatusCancelled) {
		return nil, &IllegalTransitionError{From: order.Status, To: domain.OrderStatusCancelled}
	}

	from := order.Status
	now := time.Now()
	order.Status = domain.OrderStatusCancelled
	order.CancelReason = reason
	order.CancelledAt = &now
	order.StatusChangedAt = now

	if err := e.persistTransition(ctx, order, from); err != nil {
		return nil, err
	}
	return order, nil
}

// RequestRefund opens the post-delivery remedy path. productIDs restricts
// the refund to a subset of the order's items; empty means the full order.
// Like Cancel, the order must belong to ownerKey.
func (e *Engine) RequestRefund(ctx context.Context, ownerKey string, orderID uuid.UUID, reason string, productIDs []string) (*domain.Order, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	order, err := e.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OwnerKey != ownerKey {
		return nil, repository.ErrOrderNotFound
	}
	if !domain.CanTransitionTo(order.Status, domain.OrderStatusRefundRequested) {
		return nil, &IllegalTransitionError{From: order.Status, To: domain.OrderStatusRefundRequested}
	}

	for _, productID := range productIDs {
		found := false
		for i := range order.Items {
			if order.Items[i].ProductID == productID {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrRefundItemNotInOrder, productID)
		}
	}

	from := order.Status
	now := time.Now()
	order.Status = domain.OrderStatusRefundRequested
	order.Refund = &domain.RefundRecord{
		Reason:      reason,
		ProductIDs:  productIDs,
		RequestedAt: now,
	}
	order.StatusChangedAt = now

	if err := e.persistTransition(ctx, order, from); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus drives the forward transitions that carry no mandatory
// payload: Processing, Shipped (with optional tracking number), Delivered
// and Refunded. Cancellation and refund requests have their own entry
// points because they require a reason. Fulfilment collaborators address
// orders by id across owners, so there is no owner scoping here.
func (e *Engine) UpdateStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus, trackingNumber string) (*domain.Order, error) {
	if !to.Known() {
		return nil, fmt.Errorf("unknown order status %q", to)
	}
	if to == domain.OrderStatusCancelled || to == domain.OrderStatusRefundRequested {
		return nil, ErrReasonRequired
	}

	order, err := e.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransitionTo(order.Status, to) {
		return nil, &IllegalTransitionError{From: order.Status, To: to}
	}

	from := order.Status
	now := time.Now()
	order.Status = to
	order.StatusChangedAt = now

	switch to {
	case domain.OrderStatusShipped:
		order.TrackingNumber = trackingNumber
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	case domain.OrderStatusRefunded:
		if order.Refund != nil {
			order.Refund.ResolvedAt = &now
		}
	}

	if err := e.persistTransition(ctx, order, from); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder fetches a single order.
func (e *Engine) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return e.orders.GetOrderByID(ctx, orderID)
}

// ListOrders returns the owner's orders, newest first.
func (e *Engine) ListOrders(ctx context.Context, ownerKey string) ([]*domain.Order, error) {
	return e.orders.ListOrdersByOwner(ctx, ownerKey)
}

func (e *Engine) persistTransition(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	if err := e.orders.UpdateOrder(ctx, order, from); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Someone moved the order concurrently; report against the
			// status we now observe.
			current, getErr := e.orders.GetOrderByID(ctx, order.ID)
			if getErr == nil {
				return &IllegalTransitionError{From: current.Status, To: order.Status}
			}
		}
		return err
	}

	e.log.Info("order status changed",
		"order", order.ID, "from", from, "to", order.Status)
	return nil
}
