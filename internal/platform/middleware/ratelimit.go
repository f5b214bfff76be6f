package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"veridoc/pkg/requestcontext"
)

// RateLimit applies a per-operator token bucket. Unauthenticated requests
// share one bucket keyed by client IP.
func RateLimit(rps rate.Limit, burst int) func(http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*rate.Limiter)
	)

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if limiter, ok := buckets[key]; ok {
			return limiter
		}
		limiter := rate.NewLimiter(rps, burst)
		buckets[key] = limiter
		return limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := requestcontext.OperatorID(ctx)
			if key == "" {
				key = "ip:" + requestcontext.ClientIP(ctx)
			}

			if !limiterFor(key).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","error_description":"Too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
