// Package request provides request-ID middleware so every log line and audit
// entry produced while serving a call can be correlated.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"amicale/pkg/requestcontext"
)

// HeaderRequestID is honored when the caller supplies its own correlation ID.
const HeaderRequestID = "X-Request-Id"

// WithRequestID assigns a request ID (caller-provided or generated) and makes
// it available through requestcontext.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
