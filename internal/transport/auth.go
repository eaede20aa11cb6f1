package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type playerKey struct{}

// PlayerResolver resolves a player ID from a bearer token.
type PlayerResolver interface {
	ResolvePlayer(ctx context.Context, token string) (string, error)
}

// PlayerFromContext returns the authenticated player ID, if present.
func PlayerFromContext(ctx context.Context) (string, bool) {
	playerID, ok := ctx.Value(playerKey{}).(string)
	return playerID, ok
}

// WithPlayer returns a context carrying playerID.
func WithPlayer(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, playerKey{}, playerID)
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver PlayerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			playerID, err := resolver.ResolvePlayer(r.Context(), token)
			if err != nil || playerID == "" {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPlayer(r.Context(), playerID)))
		})
	}
}
