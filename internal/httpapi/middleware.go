package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/grocerly/storefront/internal/domain"
	"github.com/grocerly/storefront/pkg/logger"
)

type contextKey string

const (
	ownerKeyContextKey  contextKey = "owner_key"
	userContextKey      contextKey = "is_user"
	requestIDContextKey contextKey = "request_id"
)

// OwnerKeyMiddleware resolves the identity that scopes a cart: an
// authenticated user id (X-User-ID, normally injected by the auth layer in
// front of this service) or a guest session token (X-Guest-Token).
// Requests carrying neither are rejected; identity management itself is a
// collaborator, not this core.
func OwnerKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if userID := r.Header.Get("X-User-ID"); userID != "" {
			ctx = context.WithValue(ctx, ownerKeyContextKey, domain.UserKeyPrefix+userID)
			ctx = context.WithValue(ctx, userContextKey, true)
		} else if guestToken := r.Header.Get("X-Guest-Token"); guestToken != "" {
			ctx = context.WithValue(ctx, ownerKeyContextKey, domain.GuestKeyPrefix+guestToken)
		} else {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing user or guest identity")
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware tags every request with an id for log correlation.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware emits one structured line per request.
func LoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", getRequestID(r.Context()),
				"duration", time.Since(start).String())
		})
	}
}

func getOwnerKey(ctx context.Context) string {
	if ownerKey, ok := ctx.Value(ownerKeyContextKey).(string); ok {
		return ownerKey
	}
	return ""
}

func isAuthenticatedUser(ctx context.Context) bool {
	isUser, ok := ctx.Value(userContextKey).(bool)
	return ok && isUser
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}
