package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

// HealthServiceName is the service name probes can ask for besides "".
const HealthServiceName = "course-extractor"

// NewGRPCServer returns a gRPC server carrying only the health and
// reflection services, so orchestrators can probe the process over gRPC.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(grpcServer)
	return grpcServer, hs
}

// WatchHealth flips the serving status with the store's reachability until ctx ends.
func WatchHealth(ctx context.Context, hs *health.Server, store Pinger, interval time.Duration, logger *zap.Logger) {
	logger = common.OrNop(logger)
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_SERVING
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
		next := healthpb.HealthCheckResponse_SERVING
		if err := PingStore(ctx, store, logger, interval/2); err != nil {
			next = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if next != last {
			logger.Warn("grpc.health.changed", zap.String("status", next.String()))
			hs.SetServingStatus("", next)
			hs.SetServingStatus(HealthServiceName, next)
			last = next
		}
	}
}
