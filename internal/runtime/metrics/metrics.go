// Package metrics wires the runtime's internal counters to Prometheus,
// grounded on cuemby-warren's prometheus/client_golang usage — the pack's
// only example of a service exporting first-class Prometheus metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups the runtime's gauges and counters. Constructed once at
// process start and handed to the scheduler, which updates DispatchedTotal,
// MailboxOverloads and StalledServices; the other metrics are registered
// but no subsystem sets them.
type Registry struct {
	RunQueueDepth     prometheus.Gauge
	LiveServices      prometheus.Gauge
	WorkerSleepers    prometheus.Gauge
	DispatchedTotal   prometheus.Counter
	MailboxOverloads  prometheus.Counter
	StalledServices   prometheus.Gauge
	SocketsOpen       prometheus.Gauge
	WriteQueueBytes   prometheus.Gauge
	AssemblerFrames   prometheus.Counter
	AllocBytesTotal   prometheus.Gauge
}

// NewRegistry creates and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		RunQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorhub", Subsystem: "scheduler", Name: "run_queue_depth",
			Help: "Number of mailboxes currently queued for dispatch.",
		}),
		LiveServices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorhub", Subsystem: "registry", Name: "live_services",
			Help: "Number of services counting toward shutdown readiness.",
		}),
		WorkerSleepers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorhub", Subsystem: "scheduler", Name: "worker_sleepers",
			Help: "Number of worker goroutines currently parked on the run queue.",
		}),
		DispatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "actorhub", Subsystem: "scheduler", Name: "dispatched_total",
			Help: "Total messages dispatched across all services.",
		}),
		MailboxOverloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "actorhub", Subsystem: "mailbox", Name: "overloads_total",
			Help: "Total overload threshold trips across all mailboxes.",
		}),
		StalledServices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorhub", Subsystem: "stall", Name: "stalled_services",
			Help: "Number of services currently flagged as stalled.",
		}),
		SocketsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorhub", Subsystem: "reactor", Name: "sockets_open",
			Help: "Number of live socket table entries.",
		}),
		WriteQueueBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorhub", Subsystem: "reactor", Name: "write_queue_bytes",
			Help: "Total bytes queued for write across all sockets.",
		}),
		AssemblerFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "actorhub", Subsystem: "assembler", Name: "frames_total",
			Help: "Total length-prefixed frames reassembled.",
		}),
		AllocBytesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorhub", Subsystem: "alloc", Name: "bytes_total",
			Help: "Process-wide bytes currently charged to live services.",
		}),
	}

	reg.MustRegister(
		m.RunQueueDepth, m.LiveServices, m.WorkerSleepers, m.DispatchedTotal,
		m.MailboxOverloads, m.StalledServices, m.SocketsOpen, m.WriteQueueBytes,
		m.AssemblerFrames, m.AllocBytesTotal,
	)
	return m
}
