package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	cartsvc "github.com/grocerly/storefront/internal/cart"
	cartrepo "github.com/grocerly/storefront/internal/cart/repository"
	"github.com/grocerly/storefront/internal/catalog"
	"github.com/grocerly/storefront/internal/coupon"
	"github.com/grocerly/storefront/internal/domain"
	ordersvc "github.com/grocerly/storefront/internal/order"
	orderrepo "github.com/grocerly/storefront/internal/order/repository"
	"github.com/grocerly/storefront/internal/predict"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps the typed errors of the cart, coupon, catalog
// and order packages onto HTTP statuses. Error payloads that carry
// structure (the stale-cart validation report, coupon sub-reasons) are
// passed through verbatim.
func respondServiceError(w http.ResponseWriter, err error) {
	var staleCart *ordersvc.StaleCartError
	if errors.As(err, &staleCart) {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   staleCart.Error(),
			Code:    "stale_cart",
			Details: staleCart.Report,
		})
		return
	}

	var illegal *ordersvc.IllegalTransitionError
	if errors.As(err, &illegal) {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error: illegal.Error(),
			Code:  "illegal_status_transition",
			Details: map[string]string{
				"from": illegal.From.String(),
				"to":   illegal.To.String(),
			},
		})
		return
	}

	if couponErr, ok := coupon.AsCouponError(err); ok {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   couponErr.Error(),
			Code:    "invalid_coupon",
			Details: map[string]string{"reason": string(couponErr.Reason)},
		})
		return
	}

	switch {
	case errors.Is(err, cartsvc.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, cartsvc.ErrUnknownSyncMode):
		respondError(w, http.StatusBadRequest, "invalid_sync_mode", err.Error())
	case errors.Is(err, cartsvc.ErrMergeSameOwner):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ordersvc.ErrReasonRequired),
		errors.Is(err, ordersvc.ErrRefundItemNotInOrder):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ordersvc.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, ordersvc.ErrPaymentDeclined):
		respondError(w, http.StatusPaymentRequired, "payment_declined", err.Error())
	case errors.Is(err, cartsvc.ErrItemNotFound),
		errors.Is(err, cartrepo.ErrCartNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, orderrepo.ErrOrderNotFound),
		errors.Is(err, predict.ErrNoBasket):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrCollaboratorUnavailable):
		respondError(w, http.StatusServiceUnavailable, "collaborator_unavailable", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
