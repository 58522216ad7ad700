package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusConfirmed       OrderStatus = "CONFIRMED"
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRefundRequested OrderStatus = "REFUND_REQUESTED"
	OrderStatusRefunded        OrderStatus = "REFUNDED"
)

// orderTransitions is the complete transition table. Anything absent here
// is illegal: the happy path is forward-only, the cancellation window
// closes at SHIPPED, and refunds only follow delivery.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:       {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:      {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:         {OrderStatusDelivered},
	OrderStatusDelivered:       {OrderStatusRefundRequested},
	OrderStatusRefundRequested: {OrderStatusRefunded},
}

// CanTransitionTo reports whether moving from one status to another is in
// the transition table.
func CanTransitionTo(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist for the status.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

func (s OrderStatus) String() string {
	return string(s)
}

// Known reports whether the status is one of the defined states. Used to
// validate request bodies at the boundary.
func (s OrderStatus) Known() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
		OrderStatusRefundRequested, OrderStatusRefunded:
		return true
	}
	return false
}

// OrderItem is a frozen line from the cart at the moment the order was
// created. Prices come from the checkout-time validation, never from the
// possibly stale cart snapshots.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// RefundRecord captures a post-delivery refund request. ProductIDs lists
// the items being refunded; empty means the full order.
type RefundRecord struct {
	Reason      string     `json:"reason"`
	ProductIDs  []string   `json:"product_ids,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Order is the immutable audit record produced from a validated cart.
// Item snapshots and totals never change after creation; only the status
// and status-dependent fields (tracking, cancellation, refund) mutate.
type Order struct {
	ID              uuid.UUID     `json:"id"`
	OwnerKey        string        `json:"owner_key"`
	IdempotencyKey  string        `json:"idempotency_key,omitempty"`
	Items           []OrderItem   `json:"items"`
	Subtotal        int64         `json:"subtotal"`
	Discount        int64         `json:"discount"`
	Total           int64         `json:"total"`
	CouponCode      string        `json:"coupon_code,omitempty"`
	Currency        string        `json:"currency"`
	Address         Address       `json:"address"`
	PaymentMethod   string        `json:"payment_method"`
	PaymentAuthRef  string        `json:"payment_auth_ref,omitempty"`
	Status          OrderStatus   `json:"status"`
	TrackingNumber  string        `json:"tracking_number,omitempty"`
	CancelReason    string        `json:"cancel_reason,omitempty"`
	Refund          *RefundRecord `json:"refund,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	StatusChangedAt time.Time     `json:"status_changed_at"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
}
