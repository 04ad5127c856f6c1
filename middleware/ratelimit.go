package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	goIntake "github.com/MrEthical07/goIntake"
)

// RateLimitMessage is the body text of every 429 written by RateLimit.
const RateLimitMessage = "too many requests, please try again later"

// Admitter records one request against the sliding window.
// *goIntake.Engine satisfies it.
type Admitter interface {
	Admit(ctx context.Context, scope, identity string) goIntake.RateDecision
}

// RateLimit admits each request through engine keyed on the client IP. A
// rejected request gets 429 before the wrapped handler runs.
//
// Run it after ClientContext (and chi's RealIP only behind a trusted proxy) so the
// identity is the caller's address.
func RateLimit(engine Admitter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				next.ServeHTTP(w, r)
				return
			}

			d := engine.Admit(r.Context(), scope, ClientIP(r))
			if d.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			}
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, r, http.StatusTooManyRequests, RateLimitMessage, "rate_limited")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
