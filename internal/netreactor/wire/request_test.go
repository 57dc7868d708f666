package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNumericRoundTrip(t *testing.T) {
	frame, err := EncodeNumeric(42, 7, []byte("hello"))
	require.NoError(t, err)

	req, err := DecodeRequest(frame[2:])
	require.NoError(t, err)

	assert.Equal(t, TagNumeric, req.Tag)
	assert.Equal(t, uint32(42), req.Addr)
	assert.Equal(t, uint32(7), req.Session)
	assert.Equal(t, []byte("hello"), req.Msg)
}

func TestEncodeDecodeNamedRoundTrip(t *testing.T) {
	frame, err := EncodeNamed("gateserver", 99, []byte("ping"))
	require.NoError(t, err)

	req, err := DecodeRequest(frame[2:])
	require.NoError(t, err)

	assert.Equal(t, TagNamed, req.Tag)
	assert.Equal(t, "gateserver", req.Name)
	assert.Equal(t, uint32(99), req.Session)
	assert.Equal(t, []byte("ping"), req.Msg)
}

func TestEncodeNumericRejectsOversizePayload(t *testing.T) {
	_, err := EncodeNumeric(1, 1, make([]byte, ChunkSize+1))
	assert.Error(t, err)
}

func TestEncodeNamedRejectsBadNameLength(t *testing.T) {
	_, err := EncodeNamed("", 1, []byte("x"))
	assert.Error(t, err)

	_, err = EncodeNamed(string(make([]byte, 256)), 1, []byte("x"))
	assert.Error(t, err)
}

func TestEncodeMultipartChunksExactlyAtBoundary(t *testing.T) {
	msg := make([]byte, ChunkSize*2+10)
	frames, err := EncodeMultipart(5, "", 3, msg)
	require.NoError(t, err)

	// header + 3 chunks (two full, one partial)
	require.Len(t, frames, 4)

	header, err := DecodeRequest(frames[0][2:])
	require.NoError(t, err)
	assert.Equal(t, TagNumericMulti, header.Tag)
	assert.Equal(t, uint32(len(msg)), header.TotalSize)

	last, err := DecodeRequest(frames[3][2:])
	require.NoError(t, err)
	assert.Equal(t, TagChunkLast, last.Tag)
	assert.Len(t, last.Chunk, 10)

	mid, err := DecodeRequest(frames[1][2:])
	require.NoError(t, err)
	assert.Equal(t, TagChunkMid, mid.Tag)
	assert.Len(t, mid.Chunk, ChunkSize)
}

func TestDecodeRequestRejectsShortAndUnknownFrames(t *testing.T) {
	_, err := DecodeRequest(nil)
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = DecodeRequest([]byte{byte(TagNumeric), 0, 0})
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = DecodeRequest([]byte{0xFF})
	assert.ErrorIs(t, err, ErrBadTag)
}
