// Package requesttime pins a single "now" per request so quota windows, usage logs and
// subscriber periods computed during one request agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"dorkforge/pkg/requestcontext"
)

// Middleware stores the request start time; read it back with requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Middleware with an injectable clock.
func WithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
