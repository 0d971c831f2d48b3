package server

import (
	"mongo-user-service/internal/adapter/grpc/middleware"
	"mongo-user-service/pkg/logger"

	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// UserServiceName is the health service name reported alongside the overall server status.
const UserServiceName = "user.UserService"

// SetupGRPC creates the gRPC server exposing the standard health service.
func SetupGRPC(rateLimiter *middleware.RateLimiter) (*grpc.Server, *health.Server) {
	// Create gRPC server with request ID and rate limit interceptors
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(UserServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer, healthServer
}
