// Package service implements the service context lifecycle and the
// send/dispatch semantics that sit on top of the mailbox, registry, and
// module packages.
package service

import (
	"sync/atomic"

	"github.com/relaygrid/actorhub/internal/runtime/atomicx"
	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
	"github.com/relaygrid/actorhub/internal/runtime/module"
)

// DebugSink receives a copy of every message a service handles; an
// optional per-service debug log sink.
type DebugSink interface {
	Log(msg mailbox.Message)
	Close() error
}

// Context is a single service's instance, callback, mailbox, and refcount
// bundle.
type Context struct {
	addr handle.Handle

	Module   module.Module
	Instance module.Instance
	Mailbox  *mailbox.Mailbox

	session atomicx.Counter32
	ref     atomicx.RefCount

	initialized atomic.Bool
	stalled     atomic.Bool

	Name  string
	Debug DebugSink
}

// NewContext builds a context with ref starting at 2: one for the
// registry, one held by the caller during init.
func NewContext(addr handle.Handle, mod module.Module, mb *mailbox.Mailbox) *Context {
	c := &Context{
		addr:    addr,
		Module:  mod,
		Mailbox: mb,
	}
	c.ref = *atomicx.NewRefCount(2)
	return c
}

// Addr satisfies registry.Handled.
func (c *Context) Addr() handle.Handle { return c.addr }

// IncRef satisfies registry.Handled; also used directly by Reserve.
func (c *Context) IncRef() int32 { return c.ref.Inc() }

// DecRef decrements the refcount and reports the new value. Callers must
// destroy the context when this reaches zero.
func (c *Context) DecRef() int32 { return c.ref.Dec() }

// RefCount reports the current refcount (diagnostics).
func (c *Context) RefCount() int32 { return c.ref.Load() }

// NextSession draws the next session id for this service: strictly
// positive, wrapping to 1 on overflow, never 0 or negative.
func (c *Context) NextSession() int32 {
	v := atomicx.NextWrapping(&c.session, 1, 0x7FFFFFFF)
	return int32(v)
}

// MarkInitialized records that Module.Init succeeded.
func (c *Context) MarkInitialized() { c.initialized.Store(true) }

// Initialized reports whether Module.Init has succeeded.
func (c *Context) Initialized() bool { return c.initialized.Load() }

// SetStalled/ClearStalled/Stalled back the stall monitor's per-service flag.
func (c *Context) SetStalled()   { c.stalled.Store(true) }
func (c *Context) ClearStalled() { c.stalled.Store(false) }
func (c *Context) Stalled() bool { return c.stalled.Load() }

// Destroy releases the instance, closes the debug sink, and marks the
// mailbox for release. Called once refcount reaches 0.
func (c *Context) Destroy() {
	if c.Debug != nil {
		_ = c.Debug.Close()
	}
	if c.Module != nil && c.Instance != nil {
		c.Module.Release(c.Instance)
	}
	if c.Mailbox != nil {
		c.Mailbox.MarkRelease()
	}
}
