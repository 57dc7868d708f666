package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

func TestForwarderFuncHandleAlwaysForwards(t *testing.T) {
	var got mailbox.Message
	var gotInstance Instance

	f := ForwarderFunc(func(inst Instance, msg mailbox.Message) {
		gotInstance = inst
		got = msg
	})

	inst := "some-instance"
	msg := mailbox.Message{Type: mailbox.TypeText, Payload: []byte("payload")}

	handled := f.Handle(inst, msg)

	assert.True(t, handled)
	assert.Equal(t, inst, gotInstance)
	assert.Equal(t, msg, got)
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Lookup("logger")
	assert.False(t, ok, "unregistered name should miss")

	stub := &stubModule{}
	reg.Register("logger", stub)

	got, ok := reg.Lookup("logger")
	require.True(t, ok)
	assert.Same(t, Module(stub), got)
}

type stubModule struct{}

func (*stubModule) Create() Instance                     { return nil }
func (*stubModule) Init(Instance, string) error          { return nil }
func (*stubModule) Release(Instance)                     {}
func (*stubModule) Signal(Instance, Signal)              {}
func (*stubModule) Handle(Instance, mailbox.Message) bool { return true }
