package server

import (
	"net/http"
	"time"

	ginhandler "mongo-user-service/internal/adapter/gin/handler"
	ginrouter "mongo-user-service/internal/adapter/gin/router"
	grpcmiddleware "mongo-user-service/internal/adapter/grpc/middleware"

	"go.uber.org/zap"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(
	userHandler *ginhandler.UserHandler,
	healthHandler *ginhandler.HealthHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	ginAddr string,
	l *zap.Logger,
) *http.Server {
	// Setup Gin router with all middleware and routes
	router := ginrouter.SetupRouter(userHandler, healthHandler, rateLimiter, l)

	l.Info("Gin REST API configured",
		zap.String("address", ginAddr),
		zap.String("swagger", "http://"+ginAddr+"/swagger/index.html"),
	)

	return &http.Server{
		Addr:              ginAddr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
