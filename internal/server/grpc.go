package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/alfredjeanlab/dealdesk/internal/auth"
)

// ServiceName is the health-check service name reported for dealdesk.
const ServiceName = "dealdesk.v1.DealDesk"

// NewGRPCServer creates a gRPC server exposing the standard health service
// and reflection. The returned health server lets the caller flip serving
// status during shutdown.
func NewGRPCServer(logger *slog.Logger, authOpts auth.Options) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			RequestIDInterceptor,
			LoggingInterceptor(logger),
			AuthInterceptor(authOpts),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv, hs
}
