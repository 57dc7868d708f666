package stall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

type stallReport struct {
	worker      int
	source      handle.Handle
	destination handle.Handle
}

func TestSweepIgnoresIdleWorker(t *testing.T) {
	var reports []stallReport
	m := New(1, func(idx int, source, destination handle.Handle) {
		reports = append(reports, stallReport{idx, source, destination})
	})

	m.sweep()
	m.sweep()

	assert.Empty(t, reports, "a worker that never dispatched anything is not stalled")
}

func TestSweepIgnoresCompletedDispatch(t *testing.T) {
	var reports []stallReport
	m := New(1, func(idx int, source, destination handle.Handle) {
		reports = append(reports, stallReport{idx, source, destination})
	})

	w := m.Worker(0)
	w.BeginDispatch(handle.New(1, 1), handle.New(1, 2))
	w.EndDispatch()

	m.sweep()

	assert.Empty(t, reports, "a dispatch that finished before the sweep is never reported")
}

func TestSweepFlagsStalledWorkerOnSecondSweep(t *testing.T) {
	var reports []stallReport
	m := New(2, func(idx int, source, destination handle.Handle) {
		reports = append(reports, stallReport{idx, source, destination})
	})

	src := handle.New(1, 10)
	dst := handle.New(1, 20)
	m.Worker(1).BeginDispatch(src, dst)

	m.sweep() // first sweep only establishes the checkpoint
	assert.Empty(t, reports)

	m.sweep() // version unchanged since checkpoint: still inside the same call
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].worker)
	assert.Equal(t, src, reports[0].source)
	assert.Equal(t, dst, reports[0].destination)
}

func TestSweepStopsReportingOnceDispatchCompletes(t *testing.T) {
	var reports []stallReport
	m := New(1, func(idx int, source, destination handle.Handle) {
		reports = append(reports, stallReport{idx, source, destination})
	})

	w := m.Worker(0)
	w.BeginDispatch(handle.New(1, 1), handle.New(1, 2))
	m.sweep()
	w.EndDispatch()
	m.sweep()

	assert.Empty(t, reports)
}
