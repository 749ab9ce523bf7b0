package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"unigraph/pkg/requestcontext"
)

const requestIDHeader = "X-Request-Id"

// RequestID attaches a correlation ID to every request, honoring one supplied
// by the caller. The ID is echoed on the response and tagged onto every audit
// record produced by the request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID set by RequestID middleware.
func GetRequestID(r *http.Request) string {
	return requestcontext.RequestID(r.Context())
}
