package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

func TestChargeAndUsageTracksPerServiceCounts(t *testing.T) {
	tbl := NewTable()
	h := handle.New(1, 1)

	tbl.Charge(h, 100)
	tbl.Charge(h, 50)

	bytes, blocks := tbl.Usage(h)
	assert.EqualValues(t, 150, bytes)
	assert.EqualValues(t, 2, blocks)
}

func TestReleaseReversesCharge(t *testing.T) {
	tbl := NewTable()
	h := handle.New(1, 1)

	tbl.Charge(h, 100)
	tbl.Release(h, 40)

	bytes, blocks := tbl.Usage(h)
	assert.EqualValues(t, 60, bytes)
	assert.EqualValues(t, 0, blocks)
}

func TestUsageForUntrackedHandleIsZero(t *testing.T) {
	tbl := NewTable()
	bytes, blocks := tbl.Usage(handle.New(1, 99))
	assert.Zero(t, bytes)
	assert.Zero(t, blocks)
}

func TestTotalsAccumulateAcrossServices(t *testing.T) {
	tbl := NewTable()
	tbl.Charge(handle.New(1, 1), 10)
	tbl.Charge(handle.New(1, 2), 20)

	bytes, blocks := tbl.Totals()
	assert.EqualValues(t, 30, bytes)
	assert.EqualValues(t, 2, blocks)
}

func TestReleaseOnWrongOwnerLeavesRowUntouchedButStillAdjustsTotals(t *testing.T) {
	tbl := NewTable()
	owner := handle.New(1, 1)
	tbl.Charge(owner, 100)

	other := handle.New(1, 1+slots) // same slot index, different handle
	tbl.Release(other, 10)

	bytes, blocks := tbl.Usage(owner)
	assert.EqualValues(t, 100, bytes, "a release for a handle that doesn't own the row must not touch the row")
	assert.EqualValues(t, 1, blocks)

	totalBytes, _ := tbl.Totals()
	assert.EqualValues(t, 90, totalBytes, "process-wide totals are adjusted unconditionally")
}

func TestChargeEvictsRetiredRowAtZeroAndReassignsSlot(t *testing.T) {
	tbl := NewTable()
	first := handle.New(1, 1)
	tbl.Charge(first, 50)
	tbl.Release(first, 50) // drains first's row to zero

	second := handle.New(1, 1+slots) // collides with first's slot
	tbl.Charge(second, 20)

	bytes, blocks := tbl.Usage(second)
	assert.EqualValues(t, 20, bytes)
	assert.EqualValues(t, 1, blocks)

	// first's row was evicted; it no longer reports any usage
	bytes, _ = tbl.Usage(first)
	assert.Zero(t, bytes)
}
