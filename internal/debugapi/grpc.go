package debugapi

import (
	"context"
	"log/slog"
	"time"

	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewGRPCServer wires grpc-ecosystem/go-grpc-middleware logging around the
// standard health service and the control plane, grounded on
// infra/server/grpc/interceptors/stream_auth.go's interceptor-wrapping
// pattern (that interceptor authenticates; this one only logs, and no call
// on this server is authenticated, including the control plane's Register
// and Retire).
func NewGRPCServer(insp *Inspector, cp *ControlPlane, logger *slog.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(grpcmiddleware.ChainUnaryServer(loggingUnaryInterceptor(logger))),
	)

	hs := health.NewServer()
	hs.SetServingStatus("actorhub.debug", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	srv.RegisterService(&controlPlaneServiceDesc, cp)

	registerLiveCountWatcher(hs, insp)
	return srv
}

func loggingUnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		lvl := slog.LevelInfo
		if err != nil {
			lvl = slog.LevelWarn
		}
		logger.Log(ctx, lvl, "debugapi grpc call", slog.String("method", info.FullMethod), slog.Duration("elapsed", time.Since(start)), slog.Any("err", err))
		return resp, err
	}
}

// registerLiveCountWatcher flips the health status to NOT_SERVING once the
// runtime has no live services left, matching the scheduler's own
// shutdown-readiness signal.
func registerLiveCountWatcher(hs *health.Server, insp *Inspector) {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			status := healthpb.HealthCheckResponse_SERVING
			if insp.LiveCount() <= 0 {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			hs.SetServingStatus("actorhub.debug", status)
		}
	}()
}
