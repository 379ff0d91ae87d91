package amf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amf3Opts() Options {
	return Options{AMF3: true, UseReferences: true}
}

func TestU29CanonicalForms(t *testing.T) {
	cases := []struct {
		value int32
		bytes []byte
	}{
		{0, []byte{0x00}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
		{0x1FFFFF, []byte{0xFF, 0xFF, 0x7F}},
		{0x200000, []byte{0x80, 0xC0, 0x80, 0x00}},
		{0x0FFFFFFF, []byte{0xBF, 0xFF, 0xFF, 0xFF}},
		{-1, []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{-0x10000000, []byte{0xC0, 0x80, 0x80, 0x00}},
	}

	for _, tc := range cases {
		e := NewEncoder(amf3Opts())
		e.writeU29(uint32(tc.value))
		assert.Equal(t, tc.bytes, e.Bytes(), "encode %d", tc.value)
		e.Release()

		d := NewDecoder(tc.bytes, amf3Opts())
		got, err := d.readInteger()
		require.NoError(t, err, "decode %d", tc.value)
		assert.Equal(t, tc.value, got)
	}
}

func TestU29DecodeStopsAtFourBytes(t *testing.T) {
	// Continuation bits set on the first three bytes; the fourth is
	// taken whole and must end the read.
	d := NewDecoder([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xAA}, amf3Opts())
	v, err := d.readU29()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1FFFFFFF), v)
	assert.Equal(t, uint32(4), d.Pos())
}

func TestIntegerMarkerVectors(t *testing.T) {
	got, err := Encode(0, amf3Opts())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x00}, got)

	got, err = Encode(-1, amf3Opts())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0xFF, 0xFF, 0xFF, 0xFF}, got)
}

func TestIntegerWindowFallsBackToDouble(t *testing.T) {
	for _, v := range []int64{1 << 28, -(1 << 28) - 1, 1 << 40} {
		raw, err := Encode(v, amf3Opts())
		require.NoError(t, err)
		require.Equal(t, byte(amf3DoubleMarker), raw[0], "value %d", v)

		back, err := Decode(raw, amf3Opts())
		require.NoError(t, err)
		assert.Equal(t, float64(v), back)
	}

	// Window edges stay integers.
	for _, v := range []int64{MaxInt29, MinInt29} {
		raw, err := Encode(v, amf3Opts())
		require.NoError(t, err)
		require.Equal(t, byte(amf3IntegerMarker), raw[0])
		require.Len(t, raw, 5)

		back, err := Decode(raw, amf3Opts())
		require.NoError(t, err)
		assert.Equal(t, int32(v), back)
	}
}

func TestDoubleRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1.5, -2.25, 3.141592653589793, 1e300, -1e-300} {
		raw, err := Encode(v, amf3Opts())
		require.NoError(t, err)
		require.Len(t, raw, 9)

		back, err := Decode(raw, amf3Opts())
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
}

func TestStringInterning(t *testing.T) {
	e := NewEncoder(amf3Opts())
	defer e.Release()

	require.NoError(t, e.WriteValue("foo"))
	require.NoError(t, e.WriteValue("foo"))
	raw := e.Bytes()
	assert.Equal(t, []byte{0x06, 0x07, 0x66, 0x6F, 0x6F, 0x06, 0x00}, raw)

	values, err := DecodeSequence(raw, amf3Opts())
	require.NoError(t, err)
	assert.Equal(t, []any{"foo", "foo"}, values)
}

func TestEmptyStringNeverInterned(t *testing.T) {
	e := NewEncoder(amf3Opts())
	defer e.Release()

	require.NoError(t, e.WriteValue(""))
	require.NoError(t, e.WriteValue(""))
	require.NoError(t, e.WriteValue("x"))
	require.NoError(t, e.WriteValue("x"))
	raw := e.Bytes()
	// Both empty strings inline; "x" interns at index 0 because the
	// empty string took no slot.
	assert.Equal(t, []byte{0x06, 0x01, 0x06, 0x01, 0x06, 0x03, 0x78, 0x06, 0x00}, raw)
}

func TestStringBadUTF8(t *testing.T) {
	_, err := Decode([]byte{0x06, 0x05, 0xFF, 0xFE}, amf3Opts())
	require.ErrorIs(t, err, ErrBadUTF8)
}

func TestStringReferenceOutOfRange(t *testing.T) {
	// Reference to string index 1 with an empty table.
	_, err := Decode([]byte{0x06, 0x02}, amf3Opts())
	require.ErrorIs(t, err, ErrOutOfRange)
}
