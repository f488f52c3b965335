package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds each request with the deadline returned by
// timeout, evaluated per request so a reloaded value applies to the next
// request. A non-positive value leaves the request unbounded.
// Handlers observe the deadline through context.Done().
func TimeoutMiddleware(timeout func() time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := timeout()
			if d <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FixedTimeout adapts a constant duration for TimeoutMiddleware.
func FixedTimeout(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}
