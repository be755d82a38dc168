package httputil

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware rejects requests with 429 once limiter runs out of tokens.
// A nil limiter disables limiting.
func RateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				Text(w, http.StatusTooManyRequests, "请求过于频繁")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
