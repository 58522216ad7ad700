package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/grocerly/storefront/internal/domain"
)

// OrderService is the slice of the order transition engine the HTTP layer
// consumes.
type OrderService interface {
	CreateOrder(ctx context.Context, ownerKey string, address domain.Address, paymentMethod, idempotencyKey string) (*domain.Order, error)
	Confirm(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	Cancel(ctx context.Context, ownerKey string, orderID uuid.UUID, reason string) (*domain.Order, error)
	RequestRefund(ctx context.Context, ownerKey string, orderID uuid.UUID, reason string, productIDs []string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus, trackingNumber string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, ownerKey string) ([]*domain.Order, error)
}

type OrderHandler struct {
	orders OrderService
}

func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type checkoutRequest struct {
	Address       domain.Address `json:"address"`
	PaymentMethod string         `json:"payment_method"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type refundRequest struct {
	Reason     string   `json:"reason"`
	ProductIDs []string `json:"product_ids,omitempty"`
}

type updateStatusRequest struct {
	Status         domain.OrderStatus `json:"status"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Address.Line1 == "" || req.Address.City == "" || req.Address.Country == "" {
		respondError(w, http.StatusBadRequest, "invalid_address", "address line1, city and country are required")
		return
	}
	if req.PaymentMethod == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "payment_method is required")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	order, err := h.orders.CreateOrder(r.Context(), getOwnerKey(r.Context()), req.Address, req.PaymentMethod, idempotencyKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if order.OwnerKey != getOwnerKey(r.Context()) {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), getOwnerKey(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Confirm(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.Cancel(r.Context(), getOwnerKey(r.Context()), orderID, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.RequestRefund(r.Context(), getOwnerKey(r.Context()), orderID, req.Reason, req.ProductIDs)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !req.Status.Known() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown order status")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status, req.TrackingNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return uuid.Nil, false
	}
	return orderID, true
}
