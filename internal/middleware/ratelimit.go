// File: internal/middleware/ratelimit.go
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/iyunix/go-gemchat/internal/ratelimit"
)

// KeyFunc picks the identifier a request is counted against.
type KeyFunc func(r *http.Request) string

// KeyByPrincipal counts per authenticated subject, falling back to the
// client IP. It must run after the auth middleware.
func KeyByPrincipal(r *http.Request) string {
	if principal, ok := PrincipalFromContext(r.Context()); ok {
		return "sub:" + principal.Subject
	}
	return "ip:" + ratelimit.GetClientIP(r)
}

func KeyByClientIP(r *http.Request) string {
	return "ip:" + ratelimit.GetClientIP(r)
}

// RateLimitMiddleware creates a rate limiting middleware
func RateLimitMiddleware(limiter *ratelimit.MemoryRateLimiter, name string, key KeyFunc, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := key(r)
			allowed, info := limiter.Allow(identifier)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))

			if !allowed {
				logger.Warn("[RateLimit] blocked request", "limiter", name, "identifier", identifier, "banned", info.Banned)

				if info.RetryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%.0f", info.RetryAfter.Seconds()))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"code":       "RATE_LIMITED",
					"error":      "Too many requests. Please try again later.",
					"retryAfter": int(info.RetryAfter.Seconds()),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
