package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys
type contextKey string

const signerContextKey contextKey = "signer"

// OptionalAuth validates a Bearer token when one is present and injects
// the signer's user ID into the request context. Requests without an
// Authorization header pass through anonymously; a present but invalid
// token is rejected rather than silently downgraded to anonymous.
func OptionalAuth(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), signerContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that did not authenticate. Must run after
// OptionalAuth.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SignerID(r) == nil {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SignerID returns the authenticated signer's user ID, or nil for
// anonymous requests.
func SignerID(r *http.Request) *uuid.UUID {
	id, ok := r.Context().Value(signerContextKey).(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}
