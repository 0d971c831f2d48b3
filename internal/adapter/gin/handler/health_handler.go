package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"mongo-user-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports whether the service dependencies are reachable.
type HealthHandler struct {
	service string
	checks  map[string]HealthCheck
	log     *zap.Logger
}

// NewHealthHandler creates a HealthHandler running the given named checks.
func NewHealthHandler(service string, checks map[string]HealthCheck, log *zap.Logger) *HealthHandler {
	return &HealthHandler{service: service, checks: checks, log: log}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	log := logger.WithContext(c.Request.Context(), h.log)
	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": h.service,
		"checks":  results,
	})
}
