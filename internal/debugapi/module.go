package debugapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"go.uber.org/fx"

	"github.com/relaygrid/actorhub/internal/runtime/registry"
	"github.com/relaygrid/actorhub/internal/runtime/service"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string
}

var Module = fx.Module("debugapi",
	fx.Provide(
		func(reg *registry.Registry, core *service.Core) *Inspector { return NewInspector(reg, core) },
		NewTailer,
		NewControlPlane,
	),
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, cfg Config, insp *Inspector, tail *Tailer, cp *ControlPlane, logger *slog.Logger) error {
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: NewHTTPHandler(insp, tail)}
	grpcSrv := NewGRPCServer(insp, cp, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.HTTPAddr != "" {
				go func() {
					if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("debugapi http server error", slog.Any("err", err))
					}
				}()
			}
			if cfg.GRPCAddr != "" {
				lis, err := net.Listen("tcp", cfg.GRPCAddr)
				if err != nil {
					return err
				}
				go func() {
					if err := grpcSrv.Serve(lis); err != nil {
						logger.Error("debugapi grpc server error", slog.Any("err", err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			grpcSrv.GracefulStop()
			return httpSrv.Shutdown(ctx)
		},
	})
	return nil
}
