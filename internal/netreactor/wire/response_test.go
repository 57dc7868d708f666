package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeResponseRoundTrip(t *testing.T) {
	frame := EncodeResponse(11, StatusOK, []byte("pong"))

	resp, err := DecodeResponse(frame[2:])
	require.NoError(t, err)

	assert.Equal(t, uint32(11), resp.Session)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, []byte("pong"), resp.Msg)
}

func TestEncodeResponseTruncatesOversizeError(t *testing.T) {
	huge := make([]byte, maxErrorPayload+500)
	frame := EncodeResponse(1, StatusError, huge)

	resp, err := DecodeResponse(frame[2:])
	require.NoError(t, err)
	assert.Len(t, resp.Msg, maxErrorPayload)
}

func TestEncodeDecodeMultiBegin(t *testing.T) {
	frame := EncodeMultiBegin(3, 65536)

	resp, err := DecodeResponse(frame[2:])
	require.NoError(t, err)

	assert.Equal(t, StatusMultiBegin, resp.Status)
	assert.Equal(t, uint32(65536), resp.TotalSize)
}

func TestMultiPartAssemblerReassembles(t *testing.T) {
	m := NewMultiPartAssembler()
	m.Begin(7, 6)

	out, done, err := m.Chunk(7, []byte("abc"), false)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Nil(t, out)

	out, done, err = m.Chunk(7, []byte("def"), true)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []byte("abcdef"), out)

	_, _, err = m.Chunk(7, []byte("x"), true)
	assert.ErrorIs(t, err, errShortSession, "session was cleared after finishing")
}

func TestMultiPartAssemblerRejectsLengthMismatch(t *testing.T) {
	m := NewMultiPartAssembler()
	m.Begin(1, 10)

	_, _, err := m.Chunk(1, []byte("short"), true)
	assert.ErrorIs(t, err, errMultipartLengthMismatch)
}

func TestMultiPartAssemblerAbandon(t *testing.T) {
	m := NewMultiPartAssembler()
	m.Begin(2, 4)
	m.Abandon(2)

	_, _, err := m.Chunk(2, []byte("ab"), false)
	assert.ErrorIs(t, err, errShortSession)
}
