// Package stall implements a bounded-false-positive "handler took longer
// than ~5s" detector that costs two atomic increments per dispatch and
// one sweep every 5s, with no per-dispatch timer.
package stall

import (
	"sync/atomic"
	"time"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

// WorkerState is one worker's stall bookkeeping slot.
type WorkerState struct {
	version      atomic.Uint64
	checkVersion atomic.Uint64
	source       atomic.Uint32
	destination  atomic.Uint32
}

// BeginDispatch records the start of a callback invocation: bump version,
// record (source, destination).
func (w *WorkerState) BeginDispatch(source, destination handle.Handle) {
	w.version.Add(1)
	w.source.Store(uint32(source))
	w.destination.Store(uint32(destination))
}

// EndDispatch records completion: bump version again, clear destination.
func (w *WorkerState) EndDispatch() {
	w.version.Add(1)
	w.destination.Store(0)
}

// OnStalled is invoked with the worker index and the (source, destination)
// pair of the handler that appears to be running long.
type OnStalled func(workerIdx int, source, destination handle.Handle)

// Monitor owns one WorkerState per worker and runs the 5s sweep. The
// underlying suspension-point discipline (five 1s sleeps per cycle, for
// abort-check promptness) is preserved even though Go's goroutine
// scheduler makes a single 5s sleep just as responsive to cancellation
// via context — kept to match the original shutdown latency budget
// exactly.
type Monitor struct {
	workers []WorkerState
	onStall OnStalled
}

func New(numWorkers int, onStall OnStalled) *Monitor {
	return &Monitor{
		workers: make([]WorkerState, numWorkers),
		onStall: onStall,
	}
}

// Worker returns the stall-tracking slot for worker i.
func (m *Monitor) Worker(i int) *WorkerState { return &m.workers[i] }

// Run blocks until done is closed, sweeping every 5s (via five 1s
// sleeps).
func (m *Monitor) Run(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	elapsed := 0
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			elapsed++
			if elapsed < 5 {
				continue
			}
			elapsed = 0
			m.sweep()
		}
	}
}

func (m *Monitor) sweep() {
	for i := range m.workers {
		w := &m.workers[i]
		v := w.version.Load()
		cv := w.checkVersion.Load()
		dest := w.destination.Load()
		if v == cv && dest != 0 {
			if m.onStall != nil {
				m.onStall(i, handle.Handle(w.source.Load()), handle.Handle(dest))
			}
		}
		w.checkVersion.Store(v)
	}
}
