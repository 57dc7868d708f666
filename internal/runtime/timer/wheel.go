// Package timer implements a hierarchical cascading timing wheel: one
// 256-slot near wheel and four 64-slot far wheels, advanced on a 10ms
// tick.
package timer

import (
	"sync"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

const (
	nearBits = 8
	nearSize = 1 << nearBits // 256
	farBits  = 6
	farSize  = 1 << farBits // 64
	farLevels = 4
)

// Sender delivers the timeout response for an expired entry. Implemented
// by *service.Core (a nil-source, response-typed send to target/session).
type Sender interface {
	SendTimeout(target handle.Handle, session int32)
}

type node struct {
	expire uint64
	target handle.Handle
	session int32
	next   *node
}

// Wheel is the tick-driven cascading timer. Zero value is not usable; use
// New.
type Wheel struct {
	mu     sync.Mutex
	tick   uint64
	near   [nearSize]*node
	far    [farLevels][farSize]*node
	sender Sender
}

func New(sender Sender) *Wheel {
	return &Wheel{sender: sender}
}

// Tick reports the current tick counter (10ms units).
func (w *Wheel) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Timeout schedules a response to (target, session) after delayTicks ticks.
// A delay of 0 is delivered immediately with no wheel insertion.
func (w *Wheel) Timeout(delayTicks uint32, target handle.Handle, session int32) {
	if delayTicks == 0 {
		w.sender.SendTimeout(target, session)
		return
	}

	w.mu.Lock()
	expire := w.tick + uint64(delayTicks)
	w.insertLocked(&node{expire: expire, target: target, session: session})
	w.mu.Unlock()
}

// insertLocked places n in the first wheel on which its expire and the
// current tick differ in some bit above that wheel's range, mirroring the
// classic hierarchical timing wheel cascade.
func (w *Wheel) insertLocked(n *node) {
	current := w.tick
	expire := n.expire

	if (expire | (nearSize - 1)) == (current | (nearSize - 1)) {
		slot := expire & (nearSize - 1)
		n.next = w.near[slot]
		w.near[slot] = n
		return
	}

	mask := uint64(nearSize - 1)
	for i := 0; i < farLevels; i++ {
		mask = (mask << farBits) | mask
		if (expire | mask) == (current | mask) {
			shift := uint(nearBits + i*farBits)
			slot := (expire >> shift) & (farSize - 1)
			n.next = w.far[i][slot]
			w.far[i][slot] = n
			return
		}
	}

	// Further out than the topmost far wheel can represent without
	// wrapping (~497 days at a 10ms tick): park it in the last slot of the
	// topmost wheel; it will keep cascading inward on each wrap.
	slot := uint64(farSize - 1)
	n.next = w.far[farLevels-1][slot]
	w.far[farLevels-1][slot] = n
}

// Advance moves the clock forward by one tick, cascading far-wheel slots
// as their range boundaries are crossed, then dispatches every entry that
// has just landed in the near wheel's current slot.
func (w *Wheel) Advance() {
	w.mu.Lock()
	w.tick++
	t := w.tick

	if t&(nearSize-1) == 0 {
		w.cascadeLocked(0)
		if t&(1<<(nearBits+farBits)-1) == 0 {
			w.cascadeLocked(1)
			if t&(1<<(nearBits+2*farBits)-1) == 0 {
				w.cascadeLocked(2)
				if t&(1<<(nearBits+3*farBits)-1) == 0 {
					w.cascadeLocked(3)
				}
			}
		}
	}

	slot := t & (nearSize - 1)
	due := w.near[slot]
	w.near[slot] = nil
	w.mu.Unlock()

	for due != nil {
		next := due.next
		w.sender.SendTimeout(due.target, due.session)
		due = next
	}
}

// cascadeLocked re-inserts every entry parked in far wheel level's slot
// determined by the tick that just crossed its boundary. Caller holds mu.
func (w *Wheel) cascadeLocked(level int) {
	shift := uint(nearBits + level*farBits)
	slot := (w.tick >> shift) & (farSize - 1)
	n := w.far[level][slot]
	w.far[level][slot] = nil
	for n != nil {
		next := n.next
		n.next = nil
		w.insertLocked(n)
		n = next
	}
}
