package middleware

import (
	"net/http"
	"time"

	"unigraph/pkg/requestcontext"
)

// RequestTime captures one timestamp at the start of the request so every
// operation inside it, audit record timestamps included, sees the same now.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
