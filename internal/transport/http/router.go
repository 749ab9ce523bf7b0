// Package httptransport wires the assembler, resolver, and vault behind the
// fixed tool-style HTTP surface upstream agent frameworks call.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unigraph/internal/platform/middleware"
	platformredis "unigraph/internal/platform/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Tools  *ToolsHandler
	Admin  *AdminHandler
	Auth   middleware.JWTValidator
	Redis  *platformredis.Client
	Logger *slog.Logger

	RateLimitPerMinute int
}

// latency is registered once; NewRouter may be called more than once in
// tests and the default registry rejects duplicates.
var latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "unigraph_http_request_duration_seconds",
	Help:    "HTTP request latency by path and status",
	Buckets: prometheus.DefBuckets,
}, []string{"path", "status"})

// NewRouter builds the full middleware chain plus routes. Tool and admin
// endpoints require a bearer token; health and metrics do not.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(latency))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(d.Auth, d.Logger))
		if d.Redis != nil && d.RateLimitPerMinute > 0 {
			r.Use(middleware.RateLimit(d.Redis, d.RateLimitPerMinute, d.Logger))
		}

		d.Tools.Register(r)
		d.Admin.Register(r)
	})

	return r
}
