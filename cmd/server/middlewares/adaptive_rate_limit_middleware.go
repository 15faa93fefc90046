package middlewares

import (
	"net/http"
	"strconv"

	"github.com/ta-forever/server/pkg/infra/security"
)

// AdaptiveRateLimitMiddleware wraps security.AdaptiveRateLimiter for the
// sensitive lobby/galactic-war endpoints the router wires it onto (game
// creation, game connect, admin scenario rotation). Unauthenticated
// requests are rated as TierAnonymous by remote IP; every other route the
// router registers runs without a rate limiter.
type AdaptiveRateLimitMiddleware struct {
	limiter *security.AdaptiveRateLimiter
}

func NewAdaptiveRateLimitMiddleware(limiter *security.AdaptiveRateLimiter) *AdaptiveRateLimitMiddleware {
	return &AdaptiveRateLimitMiddleware{limiter: limiter}
}

func (m *AdaptiveRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)
		result := m.limiter.Allow(r.Context(), &security.RateLimitRequest{
			ClientID:  clientIP,
			Tier:      security.TierAnonymous,
			Endpoint:  r.URL.Path,
			Method:    r.Method,
			UserAgent: r.UserAgent(),
			IP:        clientIP,
		})

		if !result.Allowed {
			if result.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			}
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
