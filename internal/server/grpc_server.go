package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/auth"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/config"
)

// NewGRPCServer builds a gRPC server with authentication, logging, health
// and reflection, and registers all provided services.
func NewGRPCServer(provider auth.Provider, log *slog.Logger, registrars ...Registrar) *grpc.Server {
	public := PublicMethods{}
	for _, r := range registrars {
		if p, ok := r.(PublicRegistrar); ok {
			for _, m := range p.PublicMethods() {
				public[m] = true
			}
		}
	}

	grpcServer := grpc.NewServer(
		// logging runs outermost so rejected tokens are logged too
		grpc.ChainUnaryInterceptor(UnaryLoggingInterceptor(log), UnaryAuthInterceptor(provider, public)),
		grpc.ChainStreamInterceptor(StreamLoggingInterceptor(log), StreamAuthInterceptor(provider, public)),
	)

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer
}

// StartGRPCServer serves on the configured address until ctx ends, then
// stops gracefully.
func StartGRPCServer(ctx context.Context, cfg *config.Config, grpcServer *grpc.Server) error {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	err = grpcServer.Serve(lis)
	if ctx.Err() != nil {
		<-stopped
		return nil
	}
	return err
}
