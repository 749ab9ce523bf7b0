package middleware

import (
	"log/slog"
	"net/http"
	"time"

	platformredis "unigraph/internal/platform/redis"
	"unigraph/pkg/requestcontext"
)

// RateLimit caps tool calls per caller per minute with a fixed window counter
// in Redis. A nil client or non-positive limit disables limiting. Redis
// outages fail open: availability of reads outranks the limiter, and every
// served call is still audited.
func RateLimit(client *platformredis.Client, perMinute int, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if client == nil || perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller := requestcontext.CallerID(ctx)
			if caller == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := "unigraph:ratelimit:" + caller + ":" + time.Now().UTC().Format("200601021504")
			count, err := client.Incr(ctx, key).Result()
			if err != nil {
				logger.WarnContext(ctx, "rate limiter unavailable, failing open",
					"error", err.Error(),
					"caller_id", caller,
				)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				client.Expire(ctx, key, time.Minute)
			}
			if count > int64(perMinute) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
