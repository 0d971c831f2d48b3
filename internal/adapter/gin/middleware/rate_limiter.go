package middleware

import (
	"fmt"
	"net/http"

	grpcmiddleware "mongo-user-service/internal/adapter/grpc/middleware"
	"mongo-user-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter returns a Gin middleware for rate limiting using the Token Bucket algorithm.
// Buckets are keyed by method, route pattern and client IP.
func RateLimiter(limiter *grpcmiddleware.RateLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		clientIP := c.ClientIP()
		key := fmt.Sprintf("%s%s:%s:%s", grpcmiddleware.KeyPrefix, c.Request.Method, path, clientIP)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// fail open
			logger.WithContext(c.Request.Context(), log).Warn("rate limiter redis error, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			cfg := limiter.Config()
			c.String(http.StatusTooManyRequests,
				"Rate limit exceeded: %.2f requests/second (burst capacity: %d)",
				cfg.RequestsPerSecond, cfg.BurstCapacity)
			c.Abort()
			return
		}

		c.Next()
	}
}
