package amf

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphFixture builds a nested acyclic value using the canonical
// decode types, so a round trip is the identity.
func graphFixture() map[string]any {
	return map[string]any{
		"title": "fixture",
		"count": int32(12),
		"ratio": 0.625,
		"flag":  true,
		"none":  nil,
		"when":  time.UnixMilli(1600000000000).UTC(),
		"blob":  &ByteArray{Data: []byte{0, 1, 2, 254, 255}},
		"items": []any{
			int32(-1),
			"nested",
			map[string]any{"deep": []any{"a", "b", "a"}},
		},
	}
}

func TestRoundTripAMF3FlagMatrix(t *testing.T) {
	for _, useRefs := range []bool{true, false} {
		for _, useCollections := range []bool{true, false} {
			for _, useProxies := range []bool{true, false} {
				name := fmt.Sprintf("refs=%v collections=%v proxies=%v", useRefs, useCollections, useProxies)
				t.Run(name, func(t *testing.T) {
					opts := Options{
						AMF3:           true,
						UseReferences:  useRefs,
						UseCollections: useCollections,
						UseProxies:     useProxies,
					}
					want := graphFixture()
					raw, err := Encode(want, opts)
					require.NoError(t, err)

					got, err := Decode(raw, opts)
					require.NoError(t, err)
					if diff := cmp.Diff(want, got); diff != "" {
						t.Errorf("round trip mismatch (-want +got):\n%s", diff)
					}
				})
			}
		}
	}
}

func TestRoundTripAMF0(t *testing.T) {
	// AMF0 numbers are doubles; integers would come back widened.
	want := map[string]any{
		"title": "fixture",
		"ratio": 0.625,
		"flag":  true,
		"none":  nil,
		"when":  time.UnixMilli(1600000000000).UTC(),
		"items": []any{-1.0, "nested", map[string]any{"deep": []any{"a", "b"}}},
	}
	raw, err := Encode(want, amf0Opts())
	require.NoError(t, err)

	got, err := Decode(raw, amf0Opts())
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	for _, opts := range []Options{amf0Opts(), amf3Opts()} {
		a, err := Encode(graphFixture(), opts)
		require.NoError(t, err)
		b, err := Encode(graphFixture(), opts)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestWrapperDoubleIndex(t *testing.T) {
	opts := amf3Opts()
	opts.UseCollections = true

	inner := []any{int32(1)}
	raw, err := Encode([]any{inner, inner}, opts)
	require.NoError(t, err)

	// Index layout: 0 outer wrapper slot, 1 outer array, 2 inner
	// wrapper slot, 3 inner array. The repeat must reference 3, the
	// payload slot.
	assert.Equal(t, []byte{amf3ObjectMarker, 0x06}, raw[len(raw)-2:])

	back, err := Decode(raw, opts)
	require.NoError(t, err)
	outer := back.([]any)
	require.Len(t, outer, 2)
	first := outer[0].([]any)
	second := outer[1].([]any)
	first[0] = "probe"
	assert.Equal(t, "probe", second[0], "decoded occurrences must share identity")
}

func TestObjectProxyWrapper(t *testing.T) {
	opts := amf3Opts()
	opts.UseProxies = true

	m := map[string]any{"k": "v"}
	raw, err := Encode(m, opts)
	require.NoError(t, err)
	assert.Equal(t, byte(amf3ObjectMarker), raw[0])
	assert.Contains(t, string(raw), objectProxyAlias)

	back, err := Decode(raw, opts)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestExplicitWrapperValues(t *testing.T) {
	// Explicit wrapper types force wrapping without the session flags.
	raw, err := Encode(&ArrayCollection{Source: []any{int32(1)}}, amf3Opts())
	require.NoError(t, err)
	assert.Contains(t, string(raw), arrayCollectionAlias)

	back, err := Decode(raw, amf3Opts())
	require.NoError(t, err)
	assert.Equal(t, []any{int32(1)}, back)

	raw, err = Encode(&ObjectProxy{Object: map[string]any{"a": int32(2)}}, amf3Opts())
	require.NoError(t, err)
	assert.Contains(t, string(raw), objectProxyAlias)

	back, err = Decode(raw, amf3Opts())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int32(2)}, back)
}

func TestMonotonicIndices(t *testing.T) {
	// Values encoded later reference later indices: the second
	// object's reference header cites index 2, after the array (0)
	// and the first object (1).
	a := map[string]any{"a": int32(1)}
	b := map[string]any{"b": int32(2)}
	raw, err := Encode([]any{a, b, a, b}, amf3Opts())
	require.NoError(t, err)
	// refs: a -> index 1 (header 0x02), b -> index 2 (header 0x04)
	assert.Equal(t, []byte{amf3ObjectMarker, 0x02, amf3ObjectMarker, 0x04}, raw[len(raw)-4:])
}
