package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
	"github.com/relaygrid/actorhub/internal/runtime/module"
	"github.com/relaygrid/actorhub/internal/runtime/queue"
	"github.com/relaygrid/actorhub/internal/runtime/registry"
)

type fakeModule struct {
	initErr error
	handled []mailbox.Message
}

func (m *fakeModule) Create() module.Instance            { return new(int) }
func (m *fakeModule) Init(module.Instance, string) error { return m.initErr }
func (m *fakeModule) Release(module.Instance)            {}
func (m *fakeModule) Signal(module.Instance, module.Signal) {}
func (m *fakeModule) Handle(_ module.Instance, msg mailbox.Message) bool {
	m.handled = append(m.handled, msg)
	return false
}

func newCore(harbor uint8) *Core {
	return NewCore(harbor, registry.New(harbor, 4), queue.New())
}

func TestRegisterCreatesNamedServiceAndInitializes(t *testing.T) {
	c := newCore(1)
	mod := &fakeModule{}

	ctx, err := c.Register(mod, "gateserver", "start-args", 16)
	require.NoError(t, err)
	assert.Equal(t, "gateserver", ctx.Name)
	assert.True(t, ctx.Initialized())
	assert.EqualValues(t, 1, c.LiveServiceCount())

	found, ok := c.Registry.Find("gateserver")
	require.True(t, ok)
	assert.Equal(t, ctx.Addr(), found)
}

func TestRegisterDuplicateNameRetiresAndFails(t *testing.T) {
	c := newCore(1)
	_, err := c.Register(&fakeModule{}, "gateserver", "", 16)
	require.NoError(t, err)

	before := c.LiveServiceCount()
	_, err = c.Register(&fakeModule{}, "gateserver", "", 16)
	require.ErrorIs(t, err, registry.ErrNameTaken)
	assert.Equal(t, before, c.LiveServiceCount(), "the failed registration's own slot must not count as live")
}

func TestRegisterInitFailureRetiresAddressAndDecrementsLiveCount(t *testing.T) {
	c := newCore(1)
	mod := &fakeModule{initErr: assert.AnError}

	ctx, err := c.Register(mod, "broken", "", 16)
	require.Error(t, err)
	assert.Nil(t, ctx)
	assert.EqualValues(t, 0, c.LiveServiceCount())

	_, ok := c.Registry.Find("broken")
	assert.False(t, ok)
}

func TestReserveKeepsRefAliveButDropsLiveCount(t *testing.T) {
	c := newCore(1)
	ctx, err := c.Register(&fakeModule{}, "svc", "", 16)
	require.NoError(t, err)

	c.Reserve(ctx)
	assert.EqualValues(t, 0, c.LiveServiceCount())
	assert.EqualValues(t, 2, ctx.RefCount(), "reserve adds one ref on top of the registration ref")
}

func TestRetireRemovesFromRegistryAndDecrementsLiveCount(t *testing.T) {
	c := newCore(1)
	ctx, err := c.Register(&fakeModule{}, "svc", "", 16)
	require.NoError(t, err)

	assert.True(t, c.Retire(ctx.Addr()))
	assert.EqualValues(t, 0, c.LiveServiceCount())
	_, ok := c.Grab(ctx.Addr())
	assert.False(t, ok)

	assert.False(t, c.Retire(ctx.Addr()), "retiring twice is a no-op")
}

func TestRetireAllClearsLiveCount(t *testing.T) {
	c := newCore(1)
	for i := 0; i < 3; i++ {
		_, err := c.Register(&fakeModule{}, "", "", 16)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, c.LiveServiceCount())

	c.RetireAll()
	assert.EqualValues(t, 0, c.LiveServiceCount())
}

func TestGrabUnknownHandleFails(t *testing.T) {
	c := newCore(1)
	_, ok := c.Grab(handle.New(1, 999))
	assert.False(t, ok)
}
