// Package queue implements the global run queue: a FIFO of runnable
// mailboxes consumed by the scheduler's worker pool.
package queue

import (
	"sync"

	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

// Queue is a singly linked FIFO of *mailbox.Mailbox behind a single lock.
// A mailbox appears at most once; mailbox.Mailbox.Push enforces that by
// only calling Queue.Push when it atomically transitions in_global from
// false to true.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond
	head *node
	tail *node
	n    int
	quit bool
}

type node struct {
	mb   *mailbox.Mailbox
	next *node
}

func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends mb to the tail and wakes one waiting worker.
func (q *Queue) Push(mb *mailbox.Mailbox) {
	n := &node{mb: mb}
	q.mu.Lock()
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.n++
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop removes and returns the head mailbox, blocking until one is
// available or Close is called. ok is false only after Close.
func (q *Queue) Pop() (mb *mailbox.Mailbox, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head == nil && !q.quit {
		q.cond.Wait()
	}
	if q.head == nil {
		return nil, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.n--
	return n.mb, true
}

// TryPop is the non-blocking variant, used by workers that already hold a
// mailbox and want to opportunistically continue rather than sleep.
func (q *Queue) TryPop() (mb *mailbox.Mailbox, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == nil {
		return nil, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.n--
	return n.mb, true
}

// Len reports the current queue depth (diagnostics only).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Wake signals one blocked Pop even though nothing was pushed, used by the
// timer and network threads after activity that doesn't itself enqueue a
// mailbox.
func (q *Queue) Wake() {
	q.cond.Signal()
}

// Close wakes every blocked Pop with ok=false. Idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	q.quit = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
