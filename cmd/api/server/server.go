package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"mongo-user-service/cmd/api/di"
	"mongo-user-service/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Server
	GRPC   *grpc.Server
	Health *health.Server
}

// New creates a new server instance. The gRPC server is only built when GRPC_ENABLED is set.
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	s := &Server{
		Config: cfg,
		Logger: l,
		HTTP:   SetupGinServer(c.UserHandler, c.HealthHandler, c.RateLimiter, cfg.App.HTTPAddr(), l),
	}
	if cfg.App.GRPCEnabled {
		s.GRPC, s.Health = SetupGRPC(c.RateLimiter)
	}
	return s
}

// Start runs the HTTP server and, when enabled, the gRPC server until both are shut down.
// If either server fails the other is stopped and the first error is returned.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.GRPC != nil {
		lc := net.ListenConfig{}
		lis, err := lc.Listen(ctx, "tcp", s.Config.App.GRPCAddr())
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC: %w", err)
		}

		g.Go(func() error {
			s.Logger.Info("gRPC server running", zap.String("address", lis.Addr().String()))
			if err := s.GRPC.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				_ = s.HTTP.Close()
				return fmt.Errorf("gRPC server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.Logger.Info("HTTP server running", zap.String("address", s.HTTP.Addr))
		if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.GRPC != nil {
				s.GRPC.Stop()
			}
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.HTTP != nil {
		s.Logger.Info("shutting down HTTP server...")
		if err := s.HTTP.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		}
	}

	if s.GRPC != nil {
		s.Logger.Info("shutting down gRPC server...")
		s.Health.Shutdown()
		stopped := make(chan struct{})
		go func() {
			s.GRPC.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.GRPC.Stop()
			errs = append(errs, fmt.Errorf("gRPC shutdown: %w", ctx.Err()))
		}
	}

	return errors.Join(errs...)
}
