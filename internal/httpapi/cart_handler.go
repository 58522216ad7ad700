package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grocerly/storefront/internal/domain"
)

// CartService is the slice of the cart aggregate the HTTP layer consumes.
type CartService interface {
	GetCart(ctx context.Context, ownerKey string) (*domain.Cart, error)
	AddItem(ctx context.Context, ownerKey, productID string, quantity int) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, ownerKey, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, ownerKey, productID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, ownerKey string) error
	SaveForLater(ctx context.Context, ownerKey, productID string) (*domain.Cart, error)
	MoveToCart(ctx context.Context, ownerKey, productID string) (*domain.Cart, error)
	ApplyCoupon(ctx context.Context, ownerKey, code string) (*domain.Cart, error)
	RemoveCoupon(ctx context.Context, ownerKey string) (*domain.Cart, error)
	MergeGuestCart(ctx context.Context, guestKey, userKey string) (*domain.Cart, error)
	SyncWithPredictedBasket(ctx context.Context, ownerKey string, basket *domain.PredictedBasket, mode domain.SyncMode) (*domain.Cart, []string, error)
}

// CartValidator re-checks a cart against the catalog on demand.
type CartValidator interface {
	Validate(ctx context.Context, cart *domain.Cart) (*domain.ValidationReport, error)
}

// Predictions fetches the owner's machine-generated basket.
type Predictions interface {
	Fetch(ctx context.Context, ownerKey string) (*domain.PredictedBasket, error)
}

type CartHandler struct {
	carts       CartService
	validator   CartValidator
	predictions Predictions
}

func NewCartHandler(carts CartService, validator CartValidator, predictions Predictions) *CartHandler {
	return &CartHandler{
		carts:       carts,
		validator:   validator,
		predictions: predictions,
	}
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

type mergeRequest struct {
	GuestToken string `json:"guest_token"`
}

type syncRequest struct {
	Mode domain.SyncMode `json:"mode"`
}

// syncResponse reports the applied cart plus the predicted ids the catalog
// no longer carries, so the caller can see where the basket diverged.
type syncResponse struct {
	Cart              *domain.Cart `json:"cart"`
	SkippedProductIDs []string     `json:"skipped_product_ids,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), getOwnerKey(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	cart, err := h.carts.AddItem(r.Context(), getOwnerKey(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	productID := chi.URLParam(r, "productID")
	cart, err := h.carts.UpdateItemQuantity(r.Context(), getOwnerKey(r.Context()), productID, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	cart, err := h.carts.RemoveItem(r.Context(), getOwnerKey(r.Context()), productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.ClearCart(r.Context(), getOwnerKey(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) SaveForLater(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	cart, err := h.carts.SaveForLater(r.Context(), getOwnerKey(r.Context()), productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) MoveToCart(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	cart, err := h.carts.MoveToCart(r.Context(), getOwnerKey(r.Context()), productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	cart, err := h.carts.ApplyCoupon(r.Context(), getOwnerKey(r.Context()), req.Code)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveCoupon(r.Context(), getOwnerKey(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// MergeGuestCart folds the guest cart named in the request into the
// authenticated caller's cart. Guests cannot merge into each other.
func (h *CartHandler) MergeGuestCart(w http.ResponseWriter, r *http.Request) {
	if !isAuthenticatedUser(r.Context()) {
		respondError(w, http.StatusForbidden, "forbidden", "merging requires an authenticated user")
		return
	}

	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.GuestToken == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "guest_token is required")
		return
	}

	cart, err := h.carts.MergeGuestCart(r.Context(), domain.GuestKeyPrefix+req.GuestToken, getOwnerKey(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// SyncPredicted fetches the owner's predicted basket and applies it to the
// cart in the requested mode.
func (h *CartHandler) SyncPredicted(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !req.Mode.Known() {
		respondError(w, http.StatusBadRequest, "invalid_sync_mode", "mode must be replace or augment")
		return
	}

	ownerKey := getOwnerKey(r.Context())
	basket, err := h.predictions.Fetch(r.Context(), ownerKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	cart, skipped, err := h.carts.SyncWithPredictedBasket(r.Context(), ownerKey, basket, req.Mode)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, syncResponse{Cart: cart, SkippedProductIDs: skipped})
}

// Validate re-checks the cart against the catalog and returns the report.
func (h *CartHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ownerKey := getOwnerKey(r.Context())
	cart, err := h.carts.GetCart(r.Context(), ownerKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	report, err := h.validator.Validate(r.Context(), cart)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
