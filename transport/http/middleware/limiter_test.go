package middleware_test

import (
	"hotel/config"
	otelMocks "hotel/infras/otel/mocks"
	"hotel/shared/cache"
	"hotel/shared/constant"
	"hotel/transport/http/middleware"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.RateLimiter.Enable = true
	cfg.App.RateLimiter.MaxRequests = 2
	cfg.App.RateLimiter.WindowSeconds = 60

	ot := otelMocks.NewOtel()
	app := middleware.NewAppMiddleware(ot, cfg, cache.NewMemoryCache(ot))

	handler := app.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/rooms", nil)
		req.Header.Set(constant.RequestHeaderForwardedFor, ip+", 10.0.0.1")
		req.Header.Set(constant.RequestHeaderUserAgent, "test-agent")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec
	}

	first := send("203.0.113.5")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get(constant.RequestHeaderRateLimit))
	assert.Equal(t, "1", first.Header().Get(constant.RequestHeaderRateLimitRemaining))

	second := send("203.0.113.5")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get(constant.RequestHeaderRateLimitRemaining))

	third := send("203.0.113.5")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Contains(t, third.Body.String(), `"kind":"too_many_requests"`)

	other := send("198.51.100.7")
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.RateLimiter.MaxRequests = 0

	ot := otelMocks.NewOtel()
	app := middleware.NewAppMiddleware(ot, cfg, cache.NewMemoryCache(ot))

	handler := app.RateLimit()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
