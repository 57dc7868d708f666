package cmd

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.uber.org/fx"

	"github.com/relaygrid/actorhub/config"
	"github.com/relaygrid/actorhub/internal/cluster"
	"github.com/relaygrid/actorhub/internal/debugapi"
	"github.com/relaygrid/actorhub/internal/runtimefx"
)

// fanoutHandler forwards every record to both a local sink (JSON-on-stdout,
// for operators tailing the process directly) and the OTel logs bridge (for
// whatever collector the deployment points its OTLP exporter at).
type fanoutHandler struct {
	local, otel slog.Handler
}

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.local.Enabled(ctx, level) || h.otel.Enabled(ctx, level)
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.local.Handle(ctx, r.Clone()); err != nil {
		return err
	}
	return h.otel.Handle(ctx, r.Clone())
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanoutHandler{local: h.local.WithAttrs(attrs), otel: h.otel.WithAttrs(attrs)}
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	return fanoutHandler{local: h.local.WithGroup(name), otel: h.otel.WithGroup(name)}
}

// ProvideLogger builds the process-wide slog.Logger, namespaced the way
// every runtime subsystem's `slog.With("component", ...)` calls expect, and
// bridged to OpenTelemetry logs via otelslog so the same records reach
// whatever log pipeline the OTel SDK is configured to export to.
func ProvideLogger() *slog.Logger {
	handler := fanoutHandler{
		local: slog.NewJSONHandler(os.Stdout, nil),
		otel:  otelslog.NewHandler(ServiceName),
	}
	return slog.New(handler).With(slog.String("service", ServiceName))
}

func provideClusterConfig(cfg *config.Config) cluster.Config {
	return cluster.Config{AMQPURI: cfg.AMQPURI, Topic: cfg.ClusterTopic}
}

func provideDebugConfig(cfg *config.Config) debugapi.Config {
	return debugapi.Config{HTTPAddr: cfg.DebugHTTPAddr, GRPCAddr: cfg.DebugGRPCAddr}
}

// NewApp assembles the fx.App: runtime core, cluster forwarder, and the
// debug/inspection surface, wiring every handler/store fx.Module behind
// a single *config.Config.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			provideClusterConfig,
			provideDebugConfig,
		),
		runtimefx.Module,
		cluster.Module,
		debugapi.Module,
	)
}
