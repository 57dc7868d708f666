package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

func TestDispatchOneOnEmptyMailboxReturnsFalse(t *testing.T) {
	c := newCore(1)
	ctx, err := c.Register(&fakeModule{}, "svc", "", 16)
	require.NoError(t, err)

	assert.False(t, c.DispatchOne(ctx, DispatchHooks{}))
}

func TestDispatchOneRunsModuleHandleOnKnownType(t *testing.T) {
	c := newCore(1)
	mod := &fakeModule{}
	ctx, err := c.Register(mod, "svc", "", 16)
	require.NoError(t, err)

	ctx.Mailbox.Push(mailbox.Message{Type: mailbox.TypeText, Payload: []byte("hi")})

	handled := c.DispatchOne(ctx, DispatchHooks{})
	require.True(t, handled)
	require.Len(t, mod.handled, 1)
	assert.Equal(t, []byte("hi"), mod.handled[0].Payload)
}

func TestDispatchOneUnknownTypeRepliesErrorToKnownSource(t *testing.T) {
	c := newCore(1)
	mod := &fakeModule{}
	ctx, err := c.Register(mod, "svc", "", 16)
	require.NoError(t, err)

	sender, err := c.Register(&fakeModule{}, "sender", "", 16)
	require.NoError(t, err)

	ctx.Mailbox.Push(mailbox.Message{Source: sender.Addr(), Type: mailbox.TypeHarbor + 1})

	handled := c.DispatchOne(ctx, DispatchHooks{})
	require.True(t, handled, "an unknown type still counts as handled (dropped)")
	assert.Empty(t, mod.handled, "module.Handle is never called for unknown types")

	reply, ok := sender.Mailbox.Pop()
	require.True(t, ok)
	assert.Equal(t, mailbox.TypeError, reply.Type)
}

func TestDispatchOneUnknownTypeFromZeroSourceSendsNoReply(t *testing.T) {
	c := newCore(1)
	ctx, err := c.Register(&fakeModule{}, "svc", "", 16)
	require.NoError(t, err)

	ctx.Mailbox.Push(mailbox.Message{Type: mailbox.TypeHarbor + 1})

	handled := c.DispatchOne(ctx, DispatchHooks{})
	assert.True(t, handled)
}

func TestDispatchOneInvokesBeginAndEndHooks(t *testing.T) {
	c := newCore(1)
	ctx, err := c.Register(&fakeModule{}, "svc", "", 16)
	require.NoError(t, err)
	ctx.Mailbox.Push(mailbox.Message{Type: mailbox.TypeText})

	var began, ended bool
	c.DispatchOne(ctx, DispatchHooks{
		Begin: func(source, destination handle.Handle) { began = true },
		End:   func() { ended = true },
	})

	assert.True(t, began)
	assert.True(t, ended)
}
