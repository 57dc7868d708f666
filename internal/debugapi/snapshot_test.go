package debugapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
	"github.com/relaygrid/actorhub/internal/runtime/queue"
	"github.com/relaygrid/actorhub/internal/runtime/registry"
	"github.com/relaygrid/actorhub/internal/runtime/service"
)

func TestSnapshotListsLiveServicesWithNames(t *testing.T) {
	reg := registry.New(1, 4)
	core := service.NewCore(1, reg, queue.New())
	insp := NewInspector(reg, core)

	named, err := core.Register(stubModule{}, "gateserver", "", 16)
	require.NoError(t, err)
	anon, err := core.Register(stubModule{}, "", "", 16)
	require.NoError(t, err)

	snap := insp.Snapshot()
	require.Len(t, snap, 2)

	byAddr := make(map[string]ServiceSnapshot, len(snap))
	for _, s := range snap {
		byAddr[s.Addr] = s
	}

	require.Contains(t, byAddr, named.Addr().String())
	assert.Equal(t, "gateserver", byAddr[named.Addr().String()].Name)

	require.Contains(t, byAddr, anon.Addr().String())
	assert.Empty(t, byAddr[anon.Addr().String()].Name)
}

func TestSnapshotReflectsMailboxDepthAndStalled(t *testing.T) {
	reg := registry.New(1, 4)
	core := service.NewCore(1, reg, queue.New())
	insp := NewInspector(reg, core)

	ctx, err := core.Register(stubModule{}, "svc", "", 16)
	require.NoError(t, err)
	ctx.Mailbox.Push(mailbox.Message{})
	ctx.SetStalled()

	snap := insp.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].MailboxDepth)
	assert.True(t, snap[0].Stalled)
}

func TestLiveCountReflectsCoreState(t *testing.T) {
	reg := registry.New(1, 4)
	core := service.NewCore(1, reg, queue.New())
	insp := NewInspector(reg, core)

	assert.EqualValues(t, 0, insp.LiveCount())
	_, err := core.Register(stubModule{}, "svc", "", 16)
	require.NoError(t, err)
	assert.EqualValues(t, 1, insp.LiveCount())
}
