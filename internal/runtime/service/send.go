package service

import (
	"bytes"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

// MaxPayloadSize bounds a single send's payload. A C-style message format
// packs a type tag into the high byte of a 32-bit size field; Go messages
// carry the tag as its own field, so the only remaining limit is a sanity
// ceiling shared with the wire multi-part threshold.
const MaxPayloadSize = 1<<32 - 1

// Send delivers a message to dest, or to the cluster forwarder if dest is
// a remote address. sourceCtx, when non-nil, is the context of
// the service performing the send; it supplies both the zero-source
// substitution and the per-service session counter used for
// FlagAllocSession. A nil sourceCtx models a core-internal sender (the
// timer wheel, the reactor) that already knows its own source handle (or
// has none) and never asks for session allocation.
func (c *Core) Send(sourceCtx *Context, source, dest handle.Handle, typ mailbox.Type, session int32, payload []byte, flags mailbox.Flags) (int32, bool) {
	if source.IsZero() && sourceCtx != nil {
		source = sourceCtx.Addr()
	}

	if len(payload) > MaxPayloadSize {
		if flags&mailbox.FlagDontCopy != 0 {
			// Ownership was already transferred to us; drop it.
			payload = nil
		}
		return 0, false
	}

	if flags&mailbox.FlagAllocSession != 0 {
		if session != 0 {
			return 0, false
		}
		if sourceCtx != nil {
			session = sourceCtx.NextSession()
		}
	}

	if flags&mailbox.FlagDontCopy == 0 && payload != nil {
		payload = bytes.Clone(payload)
	}

	if dest.IsZero() {
		// Pure session-allocation call: no delivery.
		return session, true
	}

	if dest.IsRemote(c.harbor) {
		if c.Cluster == nil {
			return 0, false
		}
		msg := mailbox.Message{Source: source, Session: session, Type: typ, Payload: payload}
		if err := c.Cluster.Forward(dest, msg); err != nil {
			return 0, false
		}
		return session, true
	}

	destCtx, ok := c.Grab(dest)
	if !ok {
		return 0, false
	}
	destCtx.Mailbox.Push(mailbox.Message{Source: source, Session: session, Type: typ, Payload: payload})
	c.release(destCtx)
	return session, true
}

// release drops a reference obtained via Grab, destroying the context when
// it reaches zero.
func (c *Core) release(ctx *Context) {
	if ctx.DecRef() == 0 {
		ctx.Destroy()
	}
}

// ReleaseGrabbed drops a reference obtained via Grab. Exported for callers
// outside this package (the scheduler) that grab a context to dispatch a
// batch of messages against it.
func (c *Core) ReleaseGrabbed(ctx *Context) {
	c.release(ctx)
}

// SendByName resolves a textual address:
// ":HEX" parses as a raw handle, ".NAME" resolves via the name table, and
// any other form is treated as a global (cluster) name and forwarded
// untouched for the cluster component to resolve.
func (c *Core) SendByName(sourceCtx *Context, source handle.Handle, addr string, typ mailbox.Type, session int32, payload []byte, flags mailbox.Flags) (int32, bool) {
	dest, global, ok := c.resolveAddr(addr)
	if !ok {
		return 0, false
	}
	if global != "" {
		if c.Cluster == nil {
			return 0, false
		}
		if flags&mailbox.FlagDontCopy == 0 && payload != nil {
			payload = bytes.Clone(payload)
		}
		if err := c.Cluster.Forward(0, mailbox.Message{Source: source, Session: session, Type: typ, Payload: payload}); err != nil {
			return 0, false
		}
		return session, true
	}
	return c.Send(sourceCtx, source, dest, typ, session, payload, flags)
}

func (c *Core) resolveAddr(addr string) (h handle.Handle, globalName string, ok bool) {
	if len(addr) == 0 {
		return 0, "", false
	}
	switch addr[0] {
	case ':':
		var v uint32
		for _, r := range addr[1:] {
			d, isHex := hexDigit(r)
			if !isHex {
				return 0, "", false
			}
			v = v<<4 | uint32(d)
		}
		return handle.Handle(v), "", true
	case '.':
		hh, found := c.Registry.Find(addr[1:])
		if !found {
			return 0, "", false
		}
		return hh, "", true
	default:
		return 0, addr, true
	}
}

func hexDigit(r rune) (uint8, bool) {
	switch {
	case r >= '0' && r <= '9':
		return uint8(r - '0'), true
	case r >= 'a' && r <= 'f':
		return uint8(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return uint8(r-'A') + 10, true
	default:
		return 0, false
	}
}
