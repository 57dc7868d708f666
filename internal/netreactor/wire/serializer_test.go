package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderDecoderScalarsRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		encode func(e *Encoder)
		want   Value
	}{
		{name: "nil", encode: func(e *Encoder) { e.Nil() }, want: Value{Kind: "nil"}},
		{name: "bool true", encode: func(e *Encoder) { e.Bool(true) }, want: Value{Kind: "bool", Bool: true}},
		{name: "bool false", encode: func(e *Encoder) { e.Bool(false) }, want: Value{Kind: "bool", Bool: false}},
		{name: "zero int", encode: func(e *Encoder) { e.Int(0) }, want: Value{Kind: "int", Int: 0}},
		{name: "int8 range", encode: func(e *Encoder) { e.Int(-100) }, want: Value{Kind: "int", Int: -100}},
		{name: "int16 range", encode: func(e *Encoder) { e.Int(30000) }, want: Value{Kind: "int", Int: 30000}},
		{name: "int32 range", encode: func(e *Encoder) { e.Int(2_000_000_000) }, want: Value{Kind: "int", Int: 2_000_000_000}},
		{name: "int64 range", encode: func(e *Encoder) { e.Int(9_000_000_000_000_000_000) }, want: Value{Kind: "int", Int: 9_000_000_000_000_000_000}},
		{name: "double", encode: func(e *Encoder) { e.Double(3.5) }, want: Value{Kind: "float", Float: 3.5}},
		{name: "pointer", encode: func(e *Encoder) { e.Pointer(0xDEADBEEF) }, want: Value{Kind: "pointer", Pointer: 0xDEADBEEF}},
		{name: "short string", encode: func(e *Encoder) { e.String("hi") }, want: Value{Kind: "string", Str: "hi"}},
		{name: "long string", encode: func(e *Encoder) { e.String(strings.Repeat("a", 40)) }, want: Value{Kind: "string", Str: strings.Repeat("a", 40)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEncoder()
			tt.encode(e)

			got, err := NewDecoder(e.Bytes()).Decode()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncoderDecoderArrayRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.ArrayHeader(3)
	e.Int(1)
	e.Int(2)
	e.Int(3)

	got, err := NewDecoder(e.Bytes()).Decode()
	require.NoError(t, err)

	require.Equal(t, "array", got.Kind)
	require.Len(t, got.Array, 3)
	assert.Equal(t, int64(1), got.Array[0].Int)
	assert.Equal(t, int64(3), got.Array[2].Int)
}

func TestEncoderDecoderMapRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.MapHeader()
	e.String("key")
	e.Int(42)
	e.Nil() // terminator

	got, err := NewDecoder(e.Bytes()).Decode()
	require.NoError(t, err)

	require.Equal(t, "map", got.Kind)
	require.Len(t, got.Map, 1)
	assert.Equal(t, "key", got.Map[0].Key.Str)
	assert.Equal(t, int64(42), got.Map[0].Value.Int)
}

func TestDecodeRejectsTruncatedBuffer(t *testing.T) {
	e := NewEncoder()
	e.Double(1.25)
	buf := e.Bytes()[:len(e.Bytes())-1] // chop off the last byte of the float

	_, err := NewDecoder(buf).Decode()
	assert.ErrorIs(t, err, ErrBadEncoding)
}

func TestDecodeRejectsNestingBeyondLimit(t *testing.T) {
	e := NewEncoder()
	for i := 0; i <= maxContainerDepth+1; i++ {
		e.ArrayHeader(1)
	}
	e.Int(1)

	_, err := NewDecoder(e.Bytes()).Decode()
	assert.ErrorIs(t, err, ErrTooDeep)
}
