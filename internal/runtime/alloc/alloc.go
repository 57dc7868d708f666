// Package alloc implements a per-service allocation accounting table. Go's
// garbage collector makes per-allocation trailers and manual free()
// bookkeeping inapplicable; this package keeps the same *observable*: a
// 65536-slot per-service byte/block counter table, updated through
// explicit Charge and Release calls rather than at every heap allocation.
// The mailbox and dispatch paths do not call them; the table changes only
// when a caller charges or releases bytes itself.
package alloc

import (
	"sync/atomic"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

const slots = 65536

type slot struct {
	handle handle.Handle
	bytes  atomic.Int64
	blocks atomic.Int64
}

// Table is the per-service accounting table plus the two process-wide
// running totals.
type Table struct {
	rows [slots]slot

	totalBytes  atomic.Int64
	totalBlocks atomic.Int64
}

func NewTable() *Table {
	t := &Table{}
	for i := range t.rows {
		t.rows[i].handle = 0
	}
	return t
}

func (t *Table) idx(h handle.Handle) int {
	return int(uint32(h) % slots)
}

// Charge records n bytes allocated on behalf of h. On a collision between
// a live service and a retired one occupying the same slot, the retired
// one's running count is evicted once it reaches <= 0.
func (t *Table) Charge(h handle.Handle, n int) {
	row := &t.rows[t.idx(h)]
	if row.handle != h {
		if row.bytes.Load() <= 0 && row.blocks.Load() <= 0 {
			row.handle = h
			row.bytes.Store(0)
			row.blocks.Store(0)
		}
	}
	row.bytes.Add(int64(n))
	row.blocks.Add(1)
	t.totalBytes.Add(int64(n))
	t.totalBlocks.Add(1)
}

// Release reverses a prior Charge of n bytes for h.
func (t *Table) Release(h handle.Handle, n int) {
	row := &t.rows[t.idx(h)]
	if row.handle == h {
		row.bytes.Add(-int64(n))
		row.blocks.Add(-1)
	}
	t.totalBytes.Add(-int64(n))
	t.totalBlocks.Add(-1)
}

// Usage reports the current byte/block counts charged to h.
func (t *Table) Usage(h handle.Handle) (bytes, blocks int64) {
	row := &t.rows[t.idx(h)]
	if row.handle != h {
		return 0, 0
	}
	return row.bytes.Load(), row.blocks.Load()
}

// Totals reports the two process-wide counters.
func (t *Table) Totals() (bytes, blocks int64) {
	return t.totalBytes.Load(), t.totalBlocks.Load()
}
