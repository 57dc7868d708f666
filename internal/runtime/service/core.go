package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
	"github.com/relaygrid/actorhub/internal/runtime/module"
	"github.com/relaygrid/actorhub/internal/runtime/queue"
	"github.com/relaygrid/actorhub/internal/runtime/registry"
)

// defaultMaxConcurrentInit bounds how many module.Init calls may run at
// once. Init can block on I/O (dialing peers, reading files); without a
// cap, a burst of Register calls (e.g. the reactor spinning up one service
// per accepted connection) could pile up unbounded goroutines all blocked
// in third-party setup code.
const defaultMaxConcurrentInit = 64

// ClusterForwarder sends a message to a handle owned by a remote harbor.
// Implemented by internal/cluster.
type ClusterForwarder interface {
	Forward(dest handle.Handle, msg mailbox.Message) error
}

// ErrorSink receives formatted diagnostics.
type ErrorSink interface {
	Push(text string)
}

// Core ties the registry, global run queue, and cluster forwarder together
// behind the send/dispatch API every service-facing subsystem calls
// through.
type Core struct {
	Registry *registry.Registry
	Queue    *queue.Queue
	Cluster  ClusterForwarder
	ErrSink  ErrorSink

	harbor    uint8
	liveCount atomic.Int64
	initSem   *semaphore.Weighted
}

func NewCore(harbor uint8, r *registry.Registry, q *queue.Queue) *Core {
	return &Core{Registry: r, Queue: q, harbor: harbor, initSem: semaphore.NewWeighted(defaultMaxConcurrentInit)}
}

// LiveServiceCount reports the number of services whose context still
// counts toward shutdown readiness. Reserved addresses are excluded.
func (c *Core) LiveServiceCount() int64 { return c.liveCount.Load() }

// Register instantiates mod, wires it to a fresh mailbox, and runs Init
// with startArgs. On failure the address is retired and the mailbox is
// drained with an error reply per pending message.
func (c *Core) Register(mod module.Module, name, startArgs string, mailboxCap int) (*Context, error) {
	var ctx *Context

	h, err := c.Registry.Register(func(h handle.Handle) registry.Handled {
		mb := mailbox.New(h, c.Queue, mailboxCap)
		ctx = NewContext(h, mod, mb)
		return ctx
	})
	if err != nil {
		return nil, err
	}

	if name != "" {
		if err := c.Registry.Name(h, name); err != nil {
			c.Registry.Retire(h)
			return nil, err
		}
		ctx.Name = name
	}

	c.liveCount.Add(1)

	instance := mod.Create()
	ctx.Instance = instance

	if err := c.initSem.Acquire(context.Background(), 1); err != nil {
		c.Registry.Retire(h)
		c.liveCount.Add(-1)
		return nil, fmt.Errorf("service %s: init semaphore: %w", name, err)
	}
	err = mod.Init(instance, startArgs)
	c.initSem.Release(1)
	if err != nil {
		c.Registry.Retire(h)
		c.liveCount.Add(-1)
		ctx.Mailbox.Release(func(m mailbox.Message) {
			c.replyError(m)
		})
		return nil, fmt.Errorf("service %s: init failed: %w", name, err)
	}

	ctx.MarkInitialized()
	// Drop the reference NewContext set aside for the caller during init;
	// the registry's reference remains.
	ctx.DecRef()
	return ctx, nil
}

func (c *Core) replyError(m mailbox.Message) {
	if m.Source.IsZero() {
		return
	}
	c.Send(nil, 0, m.Source, mailbox.TypeError, m.Session, nil, 0)
}

// Retire removes the registry entry and decrements the live count. It does
// not touch the mailbox or reply to pending messages; destruction
// (Context.Destroy) is the caller's responsibility once it owns the last
// reference.
func (c *Core) Retire(h handle.Handle) bool {
	ok := c.Registry.Retire(h)
	if ok {
		c.liveCount.Add(-1)
	}
	return ok
}

// RetireAll retires every live service, used by Abort during shutdown.
func (c *Core) RetireAll() {
	c.Registry.RetireAll(func(handle.Handle) {
		c.liveCount.Add(-1)
	})
}

// Reserve keeps h alive beyond retirement by adding an extra ref and
// decrementing the live counter so it no longer blocks shutdown.
func (c *Core) Reserve(ctx *Context) {
	ctx.IncRef()
	c.liveCount.Add(-1)
}

// Grab resolves h to its context, bumping refcount. ok is false if h is
// not live.
func (c *Core) Grab(h handle.Handle) (*Context, bool) {
	entry, ok := c.Registry.Grab(h)
	if !ok {
		return nil, false
	}
	ctx, ok := entry.(*Context)
	return ctx, ok
}

// Harbor returns the local node id.
func (c *Core) Harbor() uint8 { return c.harbor }
