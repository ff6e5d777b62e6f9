package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"tradematch/internal/domain/ports/adapter"
	"tradematch/internal/infra/logging"
	"tradematch/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// ThrottleKey derives the limiter key for a request.
type ThrottleKey func(r *http.Request) string

// PerUser keys by authenticated user, falling back to the client address.
func PerUser(class string) ThrottleKey {
	return func(r *http.Request) string {
		if p, ok := PrincipalFrom(r.Context()); ok {
			return "rate_limit:" + class + ":" + p.UserID
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return "rate_limit:" + class + ":ip:" + host
	}
}

// Throttle is a sliding-window request limiter. It is unrelated to the monthly
// reveal quota. A limiter failure lets the request through.
func Throttle(limiter adapter.RateLimiter, class string, limit int, window time.Duration, key ThrottleKey, logger *zerolog.Logger) Middleware {
	if key == nil {
		key = PerUser(class)
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), key(r), limit, window)
			if err != nil {
				logging.With(r.Context(), logger).Error().Err(err).Str("class", class).Msg("rate limiter unavailable; allowing request")
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter)))
				metrics.IncRateLimited(class)
				WriteError(w, http.StatusTooManyRequests, CodeRateLimited, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
