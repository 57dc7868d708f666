// Package runtimefx wires the core actor runtime (registry, mailboxes,
// scheduler, timer wheel, network reactor, and the builtin logger
// service) as a single fx.Module, following the same per-subsystem
// fx.Module composition used elsewhere in this codebase.
package runtimefx

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/relaygrid/actorhub/config"
	builtinlogger "github.com/relaygrid/actorhub/internal/builtin/logger"
	"github.com/relaygrid/actorhub/internal/debugapi"
	"github.com/relaygrid/actorhub/internal/netreactor/netservice"
	"github.com/relaygrid/actorhub/internal/netreactor/reactor"
	"github.com/relaygrid/actorhub/internal/observability"
	"github.com/relaygrid/actorhub/internal/runtime/env"
	"github.com/relaygrid/actorhub/internal/runtime/errsink"
	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
	"github.com/relaygrid/actorhub/internal/runtime/metrics"
	"github.com/relaygrid/actorhub/internal/runtime/module"
	"github.com/relaygrid/actorhub/internal/runtime/queue"
	"github.com/relaygrid/actorhub/internal/runtime/registry"
	"github.com/relaygrid/actorhub/internal/runtime/scheduler"
	"github.com/relaygrid/actorhub/internal/runtime/service"
	"github.com/relaygrid/actorhub/internal/runtime/timer"
)

// Module provides every runtime subsystem, wired in dependency order:
// atomicx (implicit in every primitive below) -> env -> registry -> queue
// -> module -> timer -> reactor, with the scheduler started last and
// stopped first.
var Module = fx.Module("runtime",
	fx.Provide(
		env.New,
		module.NewRegistry,
		newRegistry,
		queue.New,
		newCore,
		newWheel,
		newBridge,
		newReactorLogger,
		newReactor,
		newNetworkPump,
		newMetrics,
		newErrSink,
		newBuiltinLoggerTailer,
		builtinlogger.New,
		newSchedulerConfig,
		scheduler.New,
	),
	fx.Invoke(registerTracing, wireCore, registerModuleTypes, registerLogger, runScheduler),
)

// registerModuleTypes populates the module.Registry with every compiled-in
// service type the process knows about, the Go analogue of a shared-object
// search path. Only the builtin logger exists today; a future
// dynamically-loaded service type would Register here too.
func registerModuleTypes(reg *module.Registry, mod *builtinlogger.Module) {
	reg.Register("logger", mod)
}

// registerTracing installs the process-wide TracerProvider before anything
// else starts emitting spans (the reactor and scheduler both grab a Tracer
// at package init, but a Tracer is only as good as the provider registered
// behind it).
func registerTracing(lc fx.Lifecycle, logger *slog.Logger) {
	tp := observability.NewTracerProvider(logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
}

func newRegistry(cfg *config.Config) *registry.Registry {
	return registry.New(cfg.Harbor, 1024)
}

func newCore(cfg *config.Config, reg *registry.Registry, q *queue.Queue) *service.Core {
	return service.NewCore(cfg.Harbor, reg, q)
}

func newWheel(core *service.Core) *timer.Wheel {
	return timer.New(core)
}

func newMetrics() *metrics.Registry {
	return metrics.NewRegistry(prometheus.DefaultRegisterer)
}

func newBridge(core *service.Core, logger *slog.Logger) *netservice.Bridge {
	return netservice.NewBridge(core, logger)
}

// newReactorLogger builds the zerolog.Logger the reactor's hot path uses
// instead of slog: zerolog avoids slog's Attr-boxing cost on the
// per-event poll loop.
func newReactorLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func newReactor(bridge *netservice.Bridge, logger zerolog.Logger) (*reactor.Reactor, error) {
	return reactor.New(bridge, logger)
}

// newBuiltinLoggerTailer exposes the debug API's concrete *Tailer as the
// narrow interface the builtin logger service publishes lines through.
func newBuiltinLoggerTailer(t *debugapi.Tailer) builtinlogger.Tailer { return t }

// newNetworkPump exposes the concrete reactor as the narrow interface the
// scheduler depends on, keeping *reactor.Reactor itself available in the
// fx graph for anything that needs to Submit commands to it directly.
func newNetworkPump(r *reactor.Reactor) scheduler.NetworkPump { return r }

// newErrSink builds the error sink, delivering formatted diagnostics to
// the `logservice`-named service (default "logger") as a text-typed
// message via the same Send path every other subsystem uses.
func newErrSink(reg *registry.Registry, cfg *config.Config, logger *slog.Logger, core *service.Core) *errsink.Sink {
	deliver := func(dest handle.Handle, text string) {
		core.Send(nil, 0, dest, mailbox.TypeText, 0, []byte(text), 0)
	}
	return errsink.New(reg, cfg.LogService, logger, deliver)
}

func newSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{Workers: cfg.Thread}
}

func wireCore(core *service.Core, sink *errsink.Sink) {
	core.ErrSink = sink
}

// registerLogger starts the builtin logger service under the configured
// logservice name (`logservice`, default "logger") before the scheduler
// starts draining mailboxes, so errsink never targets an unregistered
// name during normal startup.
func registerLogger(lc fx.Lifecycle, core *service.Core, reg *module.Registry, cfg *config.Config) {
	name := cfg.LogService
	if name == "" {
		name = "logger"
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			mod, ok := reg.Lookup("logger")
			if !ok {
				return fmt.Errorf("runtimefx: module type %q not registered", "logger")
			}
			_, err := core.Register(mod, name, "", 256)
			return err
		},
	})
}

func runScheduler(lc fx.Lifecycle, s *scheduler.Scheduler, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := s.Run(ctx); err != nil {
					logger.Error("scheduler exited", slog.Any("err", err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			s.Abort()
			cancel()
			return nil
		},
	})
}
