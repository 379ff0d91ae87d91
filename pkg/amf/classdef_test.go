package amf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRecord struct {
	Name  string  `amf:"name"`
	Email string  `amf:"email"`
	Score float64 `amf:"score"`
}

func userMapper(t *testing.T) *DefaultTypeMapper {
	t.Helper()
	mapper := NewTypeMapper()
	require.NoError(t, mapper.Register(&ClassDef{
		Alias:       "com.example.User",
		StaticAttrs: []string{"name", "email", "score"},
		Factory:     func() any { return &userRecord{} },
	}))
	return mapper
}

func TestRegisterValidation(t *testing.T) {
	mapper := NewTypeMapper()
	assert.Error(t, mapper.Register(&ClassDef{}), "empty alias")

	require.NoError(t, mapper.Register(&ClassDef{Alias: "X"}))
	assert.Error(t, mapper.Register(&ClassDef{Alias: "X"}), "duplicate alias")
}

func TestStructRoundTripAMF3(t *testing.T) {
	mapper := userMapper(t)
	opts := amf3Opts()
	opts.Mapper = mapper

	u := &userRecord{Name: "dave", Email: "d@example.com", Score: 42.5}
	raw, err := Encode(u, opts)
	require.NoError(t, err)

	back, err := Decode(raw, opts)
	require.NoError(t, err)
	got, ok := back.(*userRecord)
	require.True(t, ok, "expected *userRecord, got %T", back)
	assert.Equal(t, u, got)
}

func TestStructRoundTripAMF0(t *testing.T) {
	mapper := userMapper(t)
	opts := amf0Opts()
	opts.Mapper = mapper

	u := &userRecord{Name: "eve", Email: "e@example.com", Score: 9}
	raw, err := Encode(u, opts)
	require.NoError(t, err)
	assert.Equal(t, byte(typedObjectMarker), raw[0])

	back, err := Decode(raw, opts)
	require.NoError(t, err)
	assert.Equal(t, u, back)
}

func TestByValueResolution(t *testing.T) {
	mapper := userMapper(t)
	def := mapper.ByAlias("com.example.User")

	assert.Same(t, def, mapper.ByValue(&userRecord{}))
	assert.Same(t, def, mapper.ByValue(&Object{ClassDef: def}))
	assert.Nil(t, mapper.ByValue("a string"))
	assert.Nil(t, mapper.ByValue(&Object{}))
}

func TestAttrCoercion(t *testing.T) {
	mapper := NewTypeMapper()
	require.NoError(t, mapper.Register(&ClassDef{
		Alias:       "com.example.Celsius",
		StaticAttrs: []string{"temp"},
		EncodeTypes: map[string]func(any) any{
			"temp": func(v any) any { return v.(float64) * 2 },
		},
		DecodeTypes: map[string]func(any) any{
			"temp": func(v any) any { return v.(float64) / 2 },
		},
	}))
	opts := amf3Opts()
	opts.Mapper = mapper

	o := &Object{ClassDef: mapper.ByAlias("com.example.Celsius"), Static: []any{10.0}}
	raw, err := Encode(o, opts)
	require.NoError(t, err)

	back, err := Decode(raw, opts)
	require.NoError(t, err)
	assert.Equal(t, []any{10.0}, back.(*Object).Static)
}

func TestObjectGetSet(t *testing.T) {
	def := &ClassDef{Alias: "com.example.Pair", StaticAttrs: []string{"a", "b"}}
	o := &Object{ClassDef: def}

	o.Set("b", int32(2))
	o.Set("loose", "x")

	v, ok := o.Get("b")
	require.True(t, ok)
	assert.Equal(t, int32(2), v)
	assert.Equal(t, []any{nil, int32(2)}, o.Static)

	v, ok = o.Get("loose")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = o.Get("missing")
	assert.False(t, ok)
}

func TestStaticValsFromDynamicSpill(t *testing.T) {
	// Attributes that only exist in the dynamic map still fill their
	// declared static slot on encode.
	mapper := NewTypeMapper()
	def := &ClassDef{Alias: "com.example.Spill", StaticAttrs: []string{"v"}}
	require.NoError(t, mapper.Register(def))

	vals, err := mapper.StaticVals(def, &Object{
		ClassDef: def,
		Dynamic:  map[string]any{"v": "spilled"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"spilled"}, vals)
}
