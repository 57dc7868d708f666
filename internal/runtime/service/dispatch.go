package service

import (
	"fmt"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

// maxKnownType bounds the message type tags this build understands. Anything
// outside this range hits the unknown-type path.
const maxKnownType = mailbox.TypeHarbor

// DispatchHooks lets the scheduler bracket the callback invocation for
// stall-monitor bookkeeping without DispatchOne needing to import the
// stall package.
type DispatchHooks struct {
	Begin func(source, destination handle.Handle)
	End   func()
}

// DispatchOne pops and handles exactly one message from ctx's mailbox: a
// worker dispatches exactly one message per invocation of the service
// callback. Returns false if the mailbox was empty.
//
// A message whose type tag falls outside the known set is logged and
// dropped, and — when the sender is known — an error reply is sent back,
// rather than silently treating it as success.
func (c *Core) DispatchOne(ctx *Context, hooks DispatchHooks) (handled bool) {
	msg, ok := ctx.Mailbox.Pop()
	if !ok {
		return false
	}

	if hooks.Begin != nil {
		hooks.Begin(msg.Source, ctx.Addr())
	}
	defer func() {
		if hooks.End != nil {
			hooks.End()
		}
	}()

	if msg.Type > maxKnownType {
		if c.ErrSink != nil {
			c.ErrSink.Push(fmt.Sprintf("service %s: unknown message type %d from %08x, dropped", ctx.Name, msg.Type, msg.Source))
		}
		if !msg.Source.IsZero() {
			c.Send(ctx, 0, msg.Source, mailbox.TypeError, msg.Session, nil, 0)
		}
		return true
	}

	forward := ctx.Module.Handle(ctx.Instance, msg)
	if ctx.Debug != nil {
		ctx.Debug.Log(msg)
	}
	_ = forward // Go's GC reclaims payload regardless; kept for parity/diagnostics.
	return true
}
