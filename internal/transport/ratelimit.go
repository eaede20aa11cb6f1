package transport

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per player.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows rps requests per second per player, with bursts of burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether playerID may make another request now.
func (l *RateLimiter) Allow(playerID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[playerID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[playerID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects requests over the player's budget. It must run after
// AuthMiddleware.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		playerID, _ := PlayerFromContext(r.Context())
		if !l.Allow(playerID) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
