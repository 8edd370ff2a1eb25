package handlers

import (
	"context"
	"net/http"
	"strings"

	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
)

type contextKey string

const userIDKey contextKey = "userID"

type MiddlewareProvider struct {
	tokens secondary.TokenVerifier
}

func New(tokens secondary.TokenVerifier) *MiddlewareProvider {
	return &MiddlewareProvider{
		tokens: tokens,
	}
}

// JWTMiddleware authenticates the bearer token and stores the resolved
// user id on the request context.
func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, ok := m.tokens.Resolve(r.Context(), tokenString)
		if !ok {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

// UserIDFromContext returns the identity stored by JWTMiddleware
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}
