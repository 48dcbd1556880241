// Package requesttime pins a single timestamp to each request. Services read
// it via requestcontext.Now so every write and expiry comparison inside one
// operation observes the same instant.
package requesttime

import (
	"net/http"
	"time"

	"amicale/pkg/requestcontext"
)

// WithRequestTime stamps the request context with the arrival time.
func WithRequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
