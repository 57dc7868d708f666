package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(body string) []byte {
	n := len(body)
	return append([]byte{byte(n >> 8), byte(n)}, []byte(body)...)
}

func TestFeedSingleFrameInOneChunk(t *testing.T) {
	tbl, err := NewTable(0)
	require.NoError(t, err)

	outcome, data := tbl.Feed(1, frame("hello"))
	require.Equal(t, OutcomeData, outcome)
	assert.Equal(t, []byte("hello"), data)
}

func TestFeedFrameAcrossMultipleReads(t *testing.T) {
	tbl, err := NewTable(0)
	require.NoError(t, err)

	full := frame("hello")

	outcome, _ := tbl.Feed(1, full[:1]) // just the length high byte
	assert.Equal(t, OutcomeNone, outcome)

	outcome, _ = tbl.Feed(1, full[1:2]) // length low byte
	assert.Equal(t, OutcomeNone, outcome)

	outcome, _ = tbl.Feed(1, full[2:4]) // partial body
	assert.Equal(t, OutcomeNone, outcome)

	outcome, data := tbl.Feed(1, full[4:]) // rest of body
	require.Equal(t, OutcomeData, outcome)
	assert.Equal(t, []byte("hello"), data)
}

func TestFeedZeroLengthFrameCompletesImmediately(t *testing.T) {
	tbl, err := NewTable(0)
	require.NoError(t, err)

	outcome, data := tbl.Feed(1, []byte{0, 0})
	require.Equal(t, OutcomeData, outcome)
	assert.Empty(t, data)
}

func TestFeedMultipleFramesInOneChunkQueuesInOrder(t *testing.T) {
	tbl, err := NewTable(0)
	require.NoError(t, err)

	chunk := append(frame("one"), frame("two")...)
	outcome, data := tbl.Feed(1, chunk)
	require.Equal(t, OutcomeMore, outcome)
	assert.Nil(t, data)

	f1, ok := tbl.Pop(1)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), f1)

	f2, ok := tbl.Pop(1)
	require.True(t, ok)
	assert.Equal(t, []byte("two"), f2)

	_, ok = tbl.Pop(1)
	assert.False(t, ok)
}

func TestFeedKeepsConnectionsIndependent(t *testing.T) {
	tbl, err := NewTable(0)
	require.NoError(t, err)

	full := frame("abc")
	tbl.Feed(1, full[:2]) // conn 1 has the header but no body bytes yet
	outcome, data := tbl.Feed(2, full)
	require.Equal(t, OutcomeData, outcome)
	assert.Equal(t, []byte("abc"), data)

	outcome, data = tbl.Feed(1, full[2:])
	require.Equal(t, OutcomeData, outcome)
	assert.Equal(t, []byte("abc"), data)
}

func TestPopOnUnknownConnectionReturnsFalse(t *testing.T) {
	tbl, err := NewTable(0)
	require.NoError(t, err)

	_, ok := tbl.Pop(99)
	assert.False(t, ok)
}

func TestReleaseClearsConnectionState(t *testing.T) {
	tbl, err := NewTable(0)
	require.NoError(t, err)

	full := frame("hello")
	tbl.Feed(1, full[:3]) // leave a frame in progress

	tbl.Release(1)

	_, ok := tbl.Pop(1)
	assert.False(t, ok)

	// feeding the same id afterward starts a fresh connection, not a
	// continuation of the released partial frame
	outcome, data := tbl.Feed(1, frame("again"))
	require.Equal(t, OutcomeData, outcome)
	assert.Equal(t, []byte("again"), data)
}

func TestNewTableRejectsNonPositiveMaxConnsWithDefault(t *testing.T) {
	tbl, err := NewTable(-1)
	require.NoError(t, err)
	require.NotNil(t, tbl)
}
