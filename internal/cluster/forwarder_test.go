package cluster

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForwardPublishesEnvelopeOnTopic(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	messages, err := pubsub.Subscribe(t.Context(), "actorhub.cluster")
	require.NoError(t, err)

	f := NewForwarder(pubsub, "", discardLogger())
	dest := handle.New(2, 7)
	err = f.Forward(dest, mailbox.Message{Source: handle.New(1, 1), Session: 3, Type: mailbox.TypeText, Payload: []byte("hi")})
	require.NoError(t, err)

	select {
	case msg := <-messages:
		msg.Ack()
		var env wireEnvelope
		require.NoError(t, json.Unmarshal(msg.Payload, &env))
		assert.Equal(t, dest, env.Dest)
		assert.Equal(t, int32(3), env.Session)
		assert.Equal(t, []byte("hi"), env.Payload)
	case <-time.After(time.Second):
		t.Fatal("forwarder never published to the topic")
	}
}

func TestForwardUsesDefaultTopicWhenEmpty(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	messages, err := pubsub.Subscribe(t.Context(), Exchange)
	require.NoError(t, err)

	f := NewForwarder(pubsub, "", discardLogger())
	require.NoError(t, f.Forward(handle.New(2, 1), mailbox.Message{}))

	select {
	case msg := <-messages:
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("forwarder did not publish on the default exchange")
	}
}

func TestReceiverDeliversDecodedEnvelope(t *testing.T) {
	var gotDest, gotSource handle.Handle
	var gotType mailbox.Type
	var gotSession int32
	var gotPayload []byte

	r := NewReceiver(func(dest, source handle.Handle, typ mailbox.Type, session int32, payload []byte) {
		gotDest, gotSource, gotType, gotSession, gotPayload = dest, source, typ, session, payload
	}, discardLogger())

	env := wireEnvelope{Dest: handle.New(1, 5), Source: handle.New(2, 9), Session: 11, Type: mailbox.TypeText, Payload: []byte("x")}
	body, err := json.Marshal(env)
	require.NoError(t, err)

	msg := message.NewMessage(watermill.NewUUID(), body)
	out, err := r.HandleMessage(msg)
	require.NoError(t, err)
	assert.Nil(t, out)

	assert.Equal(t, env.Dest, gotDest)
	assert.Equal(t, env.Source, gotSource)
	assert.Equal(t, env.Type, gotType)
	assert.Equal(t, env.Session, gotSession)
	assert.Equal(t, env.Payload, gotPayload)
}

func TestReceiverDropsMalformedEnvelopeWithoutError(t *testing.T) {
	called := false
	r := NewReceiver(func(handle.Handle, handle.Handle, mailbox.Type, int32, []byte) {
		called = true
	}, discardLogger())

	msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
	out, err := r.HandleMessage(msg)

	assert.NoError(t, err)
	assert.Nil(t, out)
	assert.False(t, called)
}
