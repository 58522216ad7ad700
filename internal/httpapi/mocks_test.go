package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/grocerly/storefront/internal/domain"
	"github.com/grocerly/storefront/pkg/logger"
)

// cartServiceMock returns the same canned cart from every method, or err.
type cartServiceMock struct {
	cart *domain.Cart
	err  error

	lastOwnerKey  string
	lastProductID string
	lastQuantity  int
	lastGuestKey  string
	lastMode      domain.SyncMode
	clearCalls    int
	syncSkipped   []string
}

func (m *cartServiceMock) result() (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m *cartServiceMock) GetCart(_ context.Context, ownerKey string) (*domain.Cart, error) {
	m.lastOwnerKey = ownerKey
	return m.result()
}

func (m *cartServiceMock) AddItem(_ context.Context, ownerKey, productID string, quantity int) (*domain.Cart, error) {
	m.lastOwnerKey, m.lastProductID, m.lastQuantity = ownerKey, productID, quantity
	return m.result()
}

func (m *cartServiceMock) UpdateItemQuantity(_ context.Context, ownerKey, productID string, quantity int) (*domain.Cart, error) {
	m.lastOwnerKey, m.lastProductID, m.lastQuantity = ownerKey, productID, quantity
	return m.result()
}

func (m *cartServiceMock) RemoveItem(_ context.Context, ownerKey, productID string) (*domain.Cart, error) {
	m.lastOwnerKey, m.lastProductID = ownerKey, productID
	return m.result()
}

func (m *cartServiceMock) ClearCart(_ context.Context, ownerKey string) error {
	m.lastOwnerKey = ownerKey
	m.clearCalls++
	return m.err
}

func (m *cartServiceMock) SaveForLater(_ context.Context, ownerKey, productID string) (*domain.Cart, error) {
	m.lastOwnerKey, m.lastProductID = ownerKey, productID
	return m.result()
}

func (m *cartServiceMock) MoveToCart(_ context.Context, ownerKey, productID string) (*domain.Cart, error) {
	m.lastOwnerKey, m.lastProductID = ownerKey, productID
	return m.result()
}

func (m *cartServiceMock) ApplyCoupon(_ context.Context, ownerKey, code string) (*domain.Cart, error) {
	m.lastOwnerKey = ownerKey
	return m.result()
}

func (m *cartServiceMock) RemoveCoupon(_ context.Context, ownerKey string) (*domain.Cart, error) {
	m.lastOwnerKey = ownerKey
	return m.result()
}

func (m *cartServiceMock) MergeGuestCart(_ context.Context, guestKey, userKey string) (*domain.Cart, error) {
	m.lastGuestKey, m.lastOwnerKey = guestKey, userKey
	return m.result()
}

func (m *cartServiceMock) SyncWithPredictedBasket(_ context.Context, ownerKey string, _ *domain.PredictedBasket, mode domain.SyncMode) (*domain.Cart, []string, error) {
	m.lastOwnerKey, m.lastMode = ownerKey, mode
	cart, err := m.result()
	return cart, m.syncSkipped, err
}

type validatorMock struct {
	report *domain.ValidationReport
	err    error
}

func (m *validatorMock) Validate(context.Context, *domain.Cart) (*domain.ValidationReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

type predictionsMock struct {
	basket *domain.PredictedBasket
	err    error
}

func (m *predictionsMock) Fetch(context.Context, string) (*domain.PredictedBasket, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.basket, nil
}

// orderServiceMock mirrors cartServiceMock for the order routes.
type orderServiceMock struct {
	order  *domain.Order
	orders []*domain.Order
	err    error

	lastOwnerKey   string
	lastOrderID    uuid.UUID
	lastReason     string
	lastProductIDs []string
	lastStatus     domain.OrderStatus
	lastTracking   string
	lastIdemKey    string
}

func (m *orderServiceMock) result() (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *orderServiceMock) CreateOrder(_ context.Context, ownerKey string, _ domain.Address, _, idempotencyKey string) (*domain.Order, error) {
	m.lastOwnerKey, m.lastIdemKey = ownerKey, idempotencyKey
	return m.result()
}

func (m *orderServiceMock) Confirm(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	m.lastOrderID = orderID
	return m.result()
}

func (m *orderServiceMock) Cancel(_ context.Context, ownerKey string, orderID uuid.UUID, reason string) (*domain.Order, error) {
	m.lastOwnerKey, m.lastOrderID, m.lastReason = ownerKey, orderID, reason
	return m.result()
}

func (m *orderServiceMock) RequestRefund(_ context.Context, ownerKey string, orderID uuid.UUID, reason string, productIDs []string) (*domain.Order, error) {
	m.lastOwnerKey, m.lastOrderID, m.lastReason, m.lastProductIDs = ownerKey, orderID, reason, productIDs
	return m.result()
}

func (m *orderServiceMock) UpdateStatus(_ context.Context, orderID uuid.UUID, to domain.OrderStatus, trackingNumber string) (*domain.Order, error) {
	m.lastOrderID, m.lastStatus, m.lastTracking = orderID, to, trackingNumber
	return m.result()
}

func (m *orderServiceMock) GetOrder(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	m.lastOrderID = orderID
	return m.result()
}

func (m *orderServiceMock) ListOrders(_ context.Context, ownerKey string) ([]*domain.Order, error) {
	m.lastOwnerKey = ownerKey
	if m.err != nil {
		return nil, m.err
	}
	return m.orders, nil
}

func sampleCart() *domain.Cart {
	return &domain.Cart{
		OwnerKey: "user:1",
		Items: []domain.CartItem{
			{ProductID: "milk", Name: "Milk", Quantity: 2, UnitPrice: 189, AddedAt: time.Now()},
		},
	}
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:       uuid.New(),
		OwnerKey: "user:1",
		Items: []domain.OrderItem{
			{ProductID: "milk", Name: "Milk", Quantity: 2, UnitPrice: 189, Subtotal: 378},
		},
		Subtotal: 378,
		Total:    378,
		Currency: "USD",
		Status:   domain.OrderStatusPending,
	}
}

func newTestRouter(carts *cartServiceMock, orders *orderServiceMock, validator *validatorMock, predictions *predictionsMock) http.Handler {
	if validator == nil {
		validator = &validatorMock{report: &domain.ValidationReport{CheckedAt: time.Now()}}
	}
	if predictions == nil {
		predictions = &predictionsMock{}
	}
	cartHandler := NewCartHandler(carts, validator, predictions)
	orderHandler := NewOrderHandler(orders)
	return NewRouter(cartHandler, orderHandler, logger.NewNop())
}

// doRequest runs an authenticated request through the router.
func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if headers == nil {
		req.Header.Set("X-User-ID", "1")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}
