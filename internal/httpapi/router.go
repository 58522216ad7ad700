package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grocerly/storefront/pkg/logger"
)

// NewRouter assembles the storefront API. Every route runs behind the
// owner-key middleware; the caller wires outer instrumentation.
func NewRouter(carts *CartHandler, orders *OrderHandler, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(OwnerKeyMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Patch("/items/{productID}", carts.UpdateQuantity)
			r.Delete("/items/{productID}", carts.RemoveItem)
			r.Post("/items/{productID}/save", carts.SaveForLater)
			r.Post("/items/{productID}/activate", carts.MoveToCart)
			r.Post("/coupon", carts.ApplyCoupon)
			r.Delete("/coupon", carts.RemoveCoupon)
			r.Post("/merge", carts.MergeGuestCart)
			r.Post("/sync", carts.SyncPredicted)
			r.Post("/validate", carts.Validate)
		})

		r.Post("/checkout", orders.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.ListOrders)
			r.Get("/{orderID}", orders.GetOrder)
			r.Post("/{orderID}/confirm", orders.Confirm)
			r.Post("/{orderID}/cancel", orders.Cancel)
			r.Post("/{orderID}/refund", orders.RequestRefund)
			r.Patch("/{orderID}/status", orders.UpdateStatus)
		})
	})

	return r
}
