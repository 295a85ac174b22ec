package server

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	c := NewCodec(NewBytePool())

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, c.Encode(w, v))

	got, err := c.Decode(bufio.NewReader(&buf))
	require.NoError(t, err)
	return got
}

func TestCodecRoundTripScalars(t *testing.T) {
	cases := []Value{
		NullValue(),
		StrValue("hello"),
		StrValue(""),
		BytesValue([]byte{0x00, 0x01, 0xff}),
		IntValue(0),
		IntValue(-42),
		FloatValue(3.25),
		ErrorValue("Wrong format: bad arity"),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		assert.True(t, Equal(v, got), "expected %v, got %v", v, got)
	}
}

func TestCodecRoundTripNestedArray(t *testing.T) {
	inner := ListValue([]Value{IntValue(1), IntValue(2)})
	v := ListValue([]Value{StrValue("GET"), inner, NullValue()})
	got := roundTrip(t, v)
	assert.True(t, Equal(v, got))
}

func TestCodecRoundTripMap(t *testing.T) {
	m := NewOrderedMap()
	m.Set(StrValue("a"), IntValue(1))
	m.Set(StrValue("b"), StrValue("two"))
	v := MapValue(m)
	got := roundTrip(t, v)
	assert.True(t, Equal(v, got))
}

func TestCodecLiteralWireFormat(t *testing.T) {
	c := NewCodec(NewBytePool())
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, c.Encode(w, StrValue("hi")))
	assert.Equal(t, "$2\r\nhi\r\n", buf.String())

	buf.Reset()
	w = bufio.NewWriter(&buf)
	require.NoError(t, c.Encode(w, NullValue()))
	assert.Equal(t, "$-1\r\n", buf.String())

	buf.Reset()
	w = bufio.NewWriter(&buf)
	require.NoError(t, c.Encode(w, IntValue(-7)))
	assert.Equal(t, ":-7\r\n", buf.String())
}

func TestCodecDecodeFirstByteEOFIsDisconnect(t *testing.T) {
	c := NewCodec(NewBytePool())
	r := bufio.NewReader(strings.NewReader(""))
	_, err := c.Decode(r)
	assert.ErrorIs(t, err, ErrDisconnect)
}

func TestCodecDecodeMidFrameTruncationIsBadRequest(t *testing.T) {
	c := NewCodec(NewBytePool())
	// An array announcing two elements but supplying none.
	r := bufio.NewReader(strings.NewReader("*2\r\n"))
	_, err := c.Decode(r)
	require.Error(t, err)
	var bad *BadRequestError
	assert.ErrorAs(t, err, &bad)
}

func TestCodecDecodeUnknownTagIsBadRequest(t *testing.T) {
	c := NewCodec(NewBytePool())
	r := bufio.NewReader(strings.NewReader("!garbage\r\n"))
	_, err := c.Decode(r)
	var bad *BadRequestError
	assert.ErrorAs(t, err, &bad)
}

func TestCodecDecodeExceedsNestingDepth(t *testing.T) {
	c := NewCodec(NewBytePool())
	var buf bytes.Buffer
	for i := 0; i < maxNestingDepth+2; i++ {
		buf.WriteString("*1\r\n")
	}
	buf.WriteString(":1\r\n")
	_, err := c.Decode(bufio.NewReader(&buf))
	require.Error(t, err)
	var bad *BadRequestError
	assert.ErrorAs(t, err, &bad)
}
