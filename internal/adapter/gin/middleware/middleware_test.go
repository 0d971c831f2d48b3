package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	grpcmiddleware "mongo-user-service/internal/adapter/grpc/middleware"
	"mongo-user-service/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func newEngine(t *testing.T, handlers ...gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	return r
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id when none is sent", func(t *testing.T) {
		var seen string
		r := newEngine(t, RequestID())
		r.GET("/ping", func(c *gin.Context) {
			seen = logger.GetRequestID(c.Request.Context())
			c.Status(http.StatusOK)
		})

		w := serve(r, http.MethodGet, "/ping")

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("reuses the incoming header", func(t *testing.T) {
		var seen string
		r := newEngine(t, RequestID())
		r.GET("/ping", func(c *gin.Context) {
			seen = logger.GetRequestID(c.Request.Context())
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		r.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newEngine(t, RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/missing", func(c *gin.Context) { c.String(http.StatusNotFound, "nope") })
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })

	serve(r, http.MethodGet, "/ok?x=1")
	serve(r, http.MethodGet, "/missing")
	serve(r, http.MethodGet, "/boom")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/ok?x=1", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.NotEmpty(t, fields["request_id"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := newEngine(t, Recovery(zap.New(core)))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := serve(r, http.MethodGet, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func newLimiter(t *testing.T, cfg grpcmiddleware.RateLimiterConfig) (*grpcmiddleware.RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return grpcmiddleware.NewRateLimiter(client, cfg, zaptest.NewLogger(t)), mr
}

func TestRateLimiter(t *testing.T) {
	t.Run("rejects requests over the burst", func(t *testing.T) {
		limiter, _ := newLimiter(t, grpcmiddleware.RateLimiterConfig{RequestsPerSecond: 0.001, BurstCapacity: 2, Enabled: true})
		r := newEngine(t, RateLimiter(limiter, zaptest.NewLogger(t)))
		r.GET("/api/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/a").Code)
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/b").Code)

		w := serve(r, http.MethodGet, "/api/c")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "Rate limit exceeded")
	})

	t.Run("buckets are per route", func(t *testing.T) {
		limiter, mr := newLimiter(t, grpcmiddleware.RateLimiterConfig{RequestsPerSecond: 0.001, BurstCapacity: 1, Enabled: true})
		r := newEngine(t, RateLimiter(limiter, zaptest.NewLogger(t)))
		r.GET("/api", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
		r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api").Code)
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health").Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/api").Code)
		assert.True(t, mr.Exists(grpcmiddleware.KeyPrefix+"GET:/api:192.0.2.1"))
	})

	t.Run("nil limiter passes through", func(t *testing.T) {
		r := newEngine(t, RateLimiter(nil, zaptest.NewLogger(t)))
		r.GET("/api", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api").Code)
		}
	})

	t.Run("redis failure fails open", func(t *testing.T) {
		limiter, mr := newLimiter(t, grpcmiddleware.RateLimiterConfig{RequestsPerSecond: 1, BurstCapacity: 1, Enabled: true})
		mr.Close()
		r := newEngine(t, RateLimiter(limiter, zaptest.NewLogger(t)))
		r.GET("/api", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api").Code)
	})
}
