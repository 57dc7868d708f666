// Package scheduler implements the worker/timer/network/monitor thread
// classes: a fixed pool of worker goroutines draining the global run
// queue under fairness weights, a timer goroutine advancing the timing
// wheel, a network goroutine pumping the reactor, and a monitor goroutine
// sweeping for stalls.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
	"github.com/relaygrid/actorhub/internal/runtime/metrics"
	"github.com/relaygrid/actorhub/internal/runtime/queue"
	"github.com/relaygrid/actorhub/internal/runtime/service"
	"github.com/relaygrid/actorhub/internal/runtime/stall"
	"github.com/relaygrid/actorhub/internal/runtime/timer"
)

var tracer = otel.Tracer("actorhub/scheduler")

// NetworkPump is satisfied by the reactor: one call processes whatever
// commands and readiness events are currently available, waiting only a
// short bounded time for them; it may return with nothing processed.
type NetworkPump interface {
	// Poll waits briefly for activity or exit. It returns hadActivity=true if
	// anything was processed (so the scheduler knows to wake a sleeper),
	// and exit=true once the reactor has been told to shut down. ctx only
	// roots the trace span for a non-empty batch; it does not cancel Poll.
	Poll(ctx context.Context) (hadActivity bool, exit bool)

	// RequestExit asks the reactor to unblock its next Poll and return
	// exit=true.
	RequestExit()
}

// Config configures a Scheduler.
type Config struct {
	Workers     int
	TickEvery   time.Duration // timer thread period, default 2.5ms
	MonitorName string
}

// Scheduler owns the four thread classes and their shared shutdown state.
type Scheduler struct {
	core    *service.Core
	queue   *queue.Queue
	wheel   *timer.Wheel
	net     NetworkPump
	metrics *metrics.Registry
	logger  *slog.Logger

	workers int
	tick    time.Duration

	sleepers atomic.Int64
	quit     atomic.Bool

	stallMon *stall.Monitor
}

func New(core *service.Core, q *queue.Queue, wheel *timer.Wheel, net NetworkPump, m *metrics.Registry, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = 2500 * time.Microsecond
	}
	s := &Scheduler{
		core: core, queue: q, wheel: wheel, net: net, metrics: m, logger: logger,
		workers: cfg.Workers, tick: cfg.TickEvery,
	}
	s.stallMon = stall.New(cfg.Workers, s.onStall)
	return s
}

// onStall logs a suspected endless loop. Each report gets its own
// correlation id since the source/destination handles alone don't let an
// operator tie a report in the log to the matching debug-tail entry.
func (s *Scheduler) onStall(idx int, source, destination handle.Handle) {
	traceID := uuid.New()
	s.logger.Warn("ENDLESS_LOOP_SUSPECTED",
		slog.Int("worker", idx),
		slog.Any("source", source),
		slog.Any("destination", destination),
		slog.String("trace_id", traceID.String()))
	if s.metrics != nil {
		s.metrics.StalledServices.Inc()
	}
}

// Run starts all four thread classes and blocks until ctx is cancelled or
// Abort is called, then joins them.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < s.workers; i++ {
		idx := i
		g.Go(func() error { return s.workerLoop(gctx, idx) })
	}
	g.Go(func() error { return s.timerLoop(gctx) })
	g.Go(func() error { return s.networkLoop(gctx) })
	g.Go(func() error {
		s.stallMon.Run(gctx.Done())
		return nil
	})

	return g.Wait()
}

// Abort retires every live service; the timer loop notices the live count
// drop to zero and tears down the network reactor and wakes every worker.
func (s *Scheduler) Abort() {
	s.core.RetireAll()
}

func (s *Scheduler) workerLoop(ctx context.Context, idx int) error {
	weight := weightFor(idx)
	worker := s.stallMon.Worker(idx)

	var held *mailbox.Mailbox

	for {
		if ctx.Err() != nil {
			return nil
		}

		if held == nil {
			s.sleepers.Add(1)
			mb, ok := s.queue.Pop()
			s.sleepers.Add(-1)
			if !ok {
				return nil // queue closed: shutdown complete
			}
			held = mb
		}

		next := s.dispatchBatch(ctx, held, weight, worker)
		if held.ReleaseRequested() && held.Len() == 0 {
			held.Release(func(mailbox.Message) {})
			held = nil
			continue
		}
		held = next
	}
}

// dispatchBatch drains up to batchSize(len, weight) messages from mb,
// returning mb itself while no pop has yet found it empty (so the worker
// keeps it without re-queuing) or nil once a pop has found it empty, which
// also clears its in_global flag (the worker then returns to the global
// queue).
func (s *Scheduler) dispatchBatch(ctx context.Context, mb *mailbox.Mailbox, weight int, worker *stall.WorkerState) *mailbox.Mailbox {
	n := batchSize(mb.Len(), weight)
	if n < 1 {
		n = 1
	}

	_, span := tracer.Start(ctx, "scheduler.dispatch_batch")
	defer span.End()

	dctx, ok := s.core.Grab(mb.Owner)
	if !ok {
		// Owner already retired; drain without invoking a callback.
		for i := 0; i < n; i++ {
			if _, popped := mb.Pop(); !popped {
				return nil
			}
		}
		return mb
	}

	hooks := service.DispatchHooks{Begin: worker.BeginDispatch, End: worker.EndDispatch}
	drained := false
	for i := 0; i < n; i++ {
		handled := s.core.DispatchOne(dctx, hooks)
		if s.metrics != nil {
			s.metrics.DispatchedTotal.Inc()
		}
		if overload := dctx.Mailbox.LastOverload(); overload > 0 {
			s.logger.Warn("MAILBOX_OVERLOAD", slog.String("service", dctx.Name), slog.Int("depth", overload))
			if s.metrics != nil {
				s.metrics.MailboxOverloads.Inc()
			}
		}
		if !handled {
			drained = true
			break
		}
	}

	s.core.ReleaseGrabbed(dctx)

	if drained {
		return nil
	}
	return mb
}

func (s *Scheduler) timerLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	start := time.Now()
	var advanced int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// The wheel counts 10ms ticks: advance it once per elapsed 10ms.
			for due := int64(time.Since(start) / (10 * time.Millisecond)); advanced < due; advanced++ {
				s.wheel.Advance()
			}
			s.queue.Wake()
			if s.core.LiveServiceCount() <= 0 && !s.quit.Swap(true) {
				s.net.RequestExit()
				s.queue.Close()
				return nil
			}
		}
	}
}

func (s *Scheduler) networkLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		activity, exit := s.net.Poll(ctx)
		if exit {
			return nil
		}
		if activity {
			s.queue.Wake()
		}
	}
}

// Sleepers reports the number of workers currently parked on the run
// queue (diagnostics).
func (s *Scheduler) Sleepers() int64 { return s.sleepers.Load() }
