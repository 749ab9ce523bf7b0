//go:build integration

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unigraph/internal/platform/config"
	"unigraph/internal/platform/logger"
	"unigraph/internal/platform/middleware"
	platformredis "unigraph/internal/platform/redis"
	"unigraph/pkg/domain"
	"unigraph/pkg/requestcontext"
	"unigraph/pkg/testutil/containers"
)

func TestRateLimit_EnforcesPerCallerWindow(t *testing.T) {
	rc := containers.StartRedis(t)

	client, err := platformredis.New(config.RedisConfig{
		URL:          rc.URL,
		PoolSize:     5,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	limited := middleware.RateLimit(client, 3, logger.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	call := func(caller string) int {
		req := httptest.NewRequest(http.MethodPost, "/tools/search_entities", nil)
		req = req.WithContext(requestcontext.WithCaller(req.Context(), caller, domain.PermissionRetail))
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, call("teller.1"), "call %d within the limit", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, call("teller.1"))

	// A different caller has an independent window.
	assert.Equal(t, http.StatusOK, call("teller.2"))

	// An anonymous request bypasses the limiter; auth rejects it upstream.
	assert.Equal(t, http.StatusOK, call(""))
}
