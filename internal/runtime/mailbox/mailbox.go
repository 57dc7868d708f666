// Package mailbox implements the per-service message ring buffer and the
// in_global hand-off protocol that keeps a mailbox on the global run
// queue exactly once while it has work pending.
package mailbox

import (
	"sync"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

// Type is the message type tag. Go messages do not bit-pack the tag into
// the high byte of a size field; the tag is carried as its own field and
// the payload length is simply len(Payload).
type Type uint8

const (
	TypeResponse Type = iota
	TypeText
	TypeError
	TypeClient
	TypeSystem
	TypeHarbor
)

// Flags describe ownership/allocation semantics requested by the sender.
type Flags uint8

const (
	// FlagDontCopy transfers payload ownership into the runtime instead of
	// duplicating it. The runtime frees it on failure or after dispatch
	// unless the handler forwards it.
	FlagDontCopy Flags = 1 << iota
	// FlagAllocSession requires the caller to pass session=0; the runtime
	// allocates a fresh session id.
	FlagAllocSession
)

// Message is the unit of delivery between services.
type Message struct {
	Source  handle.Handle
	Session int32
	Type    Type
	Payload []byte
}

const defaultOverloadThreshold = 1024

// GlobalPusher is the subset of the global run queue's API the mailbox
// needs. Satisfied structurally by *queue.Queue; kept as an interface here
// so mailbox never imports queue (queue imports mailbox instead).
type GlobalPusher interface {
	Push(m *Mailbox)
}

// Mailbox is a per-service FIFO ring buffer with overload tracking.
type Mailbox struct {
	mu sync.Mutex

	buf  []Message
	head int
	tail int
	size int // number of queued messages

	inGlobal bool
	release  bool

	overloadThreshold int
	lastOverload      int

	global GlobalPusher

	// Owner correlates this mailbox back to its service for diagnostics;
	// the core itself treats it as opaque.
	Owner handle.Handle
}

// New creates an empty mailbox with the given initial capacity (rounded up
// to a power of two, minimum 64) bound to the given global run queue.
func New(owner handle.Handle, global GlobalPusher, initialCap int) *Mailbox {
	cap := nextPow2(initialCap)
	if cap < 64 {
		cap = 64
	}
	return &Mailbox{
		buf:               make([]Message, cap),
		overloadThreshold: defaultOverloadThreshold,
		global:            global,
		Owner:             owner,
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Push enqueues msg. If the mailbox was idle (not on the global run queue)
// it is pushed now; if it was already queued or being drained, the push is
// a pure O(1) append and the mailbox is left where it is: busy mailboxes
// are not re-queued.
func (mb *Mailbox) Push(msg Message) {
	mb.mu.Lock()
	mb.store(msg)
	needPush := !mb.inGlobal
	if needPush {
		mb.inGlobal = true
	}
	mb.mu.Unlock()

	if needPush && mb.global != nil {
		mb.global.Push(mb)
	}
}

func (mb *Mailbox) store(msg Message) {
	if mb.size == len(mb.buf) {
		mb.grow()
	}
	mb.buf[mb.tail] = msg
	mb.tail = (mb.tail + 1) % len(mb.buf)
	mb.size++
}

// grow doubles capacity and compacts the ring to start at index 0. Caller
// must hold mu.
func (mb *Mailbox) grow() {
	newCap := len(mb.buf) * 2
	newBuf := make([]Message, newCap)
	n := copy(newBuf, mb.buf[mb.head:])
	copy(newBuf[n:], mb.buf[:mb.head])
	mb.buf = newBuf
	mb.head = 0
	mb.tail = mb.size
}

// Pop removes and returns the head message. ok is false when the mailbox is
// empty, in which case in_global is cleared under the same lock: only a
// worker holding the mailbox, having observed emptiness under the lock,
// may clear it.
func (mb *Mailbox) Pop() (msg Message, ok bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.size == 0 {
		mb.inGlobal = false
		return Message{}, false
	}

	msg = mb.buf[mb.head]
	mb.buf[mb.head] = Message{}
	mb.head = (mb.head + 1) % len(mb.buf)
	mb.size--

	if mb.size > mb.overloadThreshold {
		mb.lastOverload = mb.size
		mb.overloadThreshold *= 2
	}
	if mb.size == 0 {
		mb.overloadThreshold = defaultOverloadThreshold
	}

	return msg, true
}

// Len reports the current queue depth.
func (mb *Mailbox) Len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.size
}

// LastOverload returns the most recently recorded overload depth and
// resets it; returns 0 if no overload has tripped since the last call.
func (mb *Mailbox) LastOverload() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	v := mb.lastOverload
	mb.lastOverload = 0
	return v
}

// MarkRelease flags the mailbox for teardown and ensures a worker will
// observe it on the global run queue even if it is currently idle and
// empty.
func (mb *Mailbox) MarkRelease() {
	mb.mu.Lock()
	mb.release = true
	needPush := !mb.inGlobal
	if needPush {
		mb.inGlobal = true
	}
	mb.mu.Unlock()

	if needPush && mb.global != nil {
		mb.global.Push(mb)
	}
}

// ReleaseRequested reports whether MarkRelease has been called.
func (mb *Mailbox) ReleaseRequested() bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.release
}

// Release drains every remaining message through dropFn and discards the
// buffer. Called by a worker once it observes ReleaseRequested() and an
// empty mailbox.
func (mb *Mailbox) Release(dropFn func(Message)) {
	for {
		msg, ok := mb.Pop()
		if !ok {
			break
		}
		if dropFn != nil {
			dropFn(msg)
		}
	}
	mb.mu.Lock()
	mb.buf = nil
	mb.mu.Unlock()
}
