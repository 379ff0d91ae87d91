package amf

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

// ClassDef describes a class for typed-object serialization: its wire
// alias, the ordered static attribute names, and how its body is
// shaped. Class definitions compare by pointer when indexed into the
// trait reference table, so a def must be registered once and shared.
type ClassDef struct {
	// Alias is the wire class name. Empty means anonymous.
	Alias string
	// StaticAttrs lists attribute names encoded positionally after
	// the trait header. Fewer than 2^24 entries fit in the header.
	StaticAttrs []string
	// Dynamic marks objects that carry key/value pairs after the
	// static attributes.
	Dynamic bool
	// Externalizable marks objects whose body is a client-controlled
	// byte stream read and written by hooks.
	Externalizable bool
	// AMF3 forces the AMF0 encoder to escape into AMF3 for instances
	// of this class.
	AMF3 bool

	// Factory produces a fresh instance for decode. When nil, decode
	// materializes an *Object bound to this def.
	Factory func() any

	// ReadExternalHook and WriteExternalHook serialize externalizable
	// instances that do not implement Externalizable themselves.
	ReadExternalHook  func(inst any, r ExtReader) error
	WriteExternalHook func(inst any, w ExtWriter) error

	// EncodeTypes and DecodeTypes coerce individual attribute values
	// on the way out and in.
	EncodeTypes map[string]func(any) any
	DecodeTypes map[string]func(any) any
}

// ExtReader is the narrow decoder surface handed to externalizable
// hooks: the primitive reads plus one whole value, and nothing that
// could disturb the session's reference tables.
type ExtReader interface {
	ReadBytes(n int) ([]byte, error)
	ReadUint8() (byte, error)
	ReadUint16() (uint16, error)
	ReadUint32() (uint32, error)
	ReadDouble() (float64, error)
	ReadU29() (uint32, error)
	ReadUTF8() (string, error)
	ReadValue() (any, error)
}

// ExtWriter is the encoder counterpart of ExtReader.
type ExtWriter interface {
	WriteBytes(p []byte) error
	WriteUint8(b byte) error
	WriteUint16(v uint16) error
	WriteUint32(v uint32) error
	WriteDouble(v float64) error
	WriteU29(v uint32) error
	WriteUTF8(s string) error
	WriteValue(v any) error
}

// Externalizable is implemented by values that serialize their own
// AMF3 body.
type Externalizable interface {
	ReadExternal(r ExtReader) error
	WriteExternal(w ExtWriter) error
}

// TypeMapper resolves class definitions for the codec and moves
// attribute values between definitions and live instances.
type TypeMapper interface {
	// ByAlias returns the def registered for a wire alias, or nil.
	ByAlias(alias string) *ClassDef
	// ByValue returns the def for an instance about to be encoded,
	// or nil for anonymous encoding.
	ByValue(v any) *ClassDef
	// NewInstance materializes a decode target for def.
	NewInstance(def *ClassDef) (any, error)
	// ApplyAttrs stores decoded attributes on an instance. static is
	// ordered like def.StaticAttrs; dynamic holds the rest.
	ApplyAttrs(def *ClassDef, inst any, static []any, dynamic map[string]any) error
	// StaticVals harvests the static attribute values of inst in
	// def.StaticAttrs order.
	StaticVals(def *ClassDef, inst any) ([]any, error)
	// DynamicVals harvests the dynamic attributes of inst.
	DynamicVals(def *ClassDef, inst any) (map[string]any, error)
	// ReadExternal and WriteExternal drive externalizable bodies.
	ReadExternal(def *ClassDef, inst any, r ExtReader) error
	WriteExternal(def *ClassDef, inst any, w ExtWriter) error
}

// DefaultTypeMapper is a registry-backed TypeMapper. Instances map to
// defs either through their *Object binding or through the Go type the
// def's factory produces.
type DefaultTypeMapper struct {
	byAlias map[string]*ClassDef
	byType  map[reflect.Type]*ClassDef
}

// NewTypeMapper returns an empty registry.
func NewTypeMapper() *DefaultTypeMapper {
	return &DefaultTypeMapper{
		byAlias: make(map[string]*ClassDef),
		byType:  make(map[reflect.Type]*ClassDef),
	}
}

// Register adds a class definition. When the def has a factory, the
// concrete type it produces is indexed so ByValue can find the def for
// plain Go instances.
func (m *DefaultTypeMapper) Register(def *ClassDef) error {
	if def.Alias == "" {
		return fmt.Errorf("amf: cannot register class def without alias")
	}
	if len(def.StaticAttrs) >= maxStaticAttrs {
		return fmt.Errorf("amf: class %q: %w: %d static attributes", def.Alias, ErrOutOfRange, len(def.StaticAttrs))
	}
	if _, dup := m.byAlias[def.Alias]; dup {
		return fmt.Errorf("amf: alias %q already registered", def.Alias)
	}
	m.byAlias[def.Alias] = def
	if def.Factory != nil {
		if t := reflect.TypeOf(def.Factory()); t != nil {
			m.byType[t] = def
		}
	}
	return nil
}

func (m *DefaultTypeMapper) ByAlias(alias string) *ClassDef {
	return m.byAlias[alias]
}

func (m *DefaultTypeMapper) ByValue(v any) *ClassDef {
	if o, ok := v.(*Object); ok {
		return o.ClassDef
	}
	if t := reflect.TypeOf(v); t != nil {
		return m.byType[t]
	}
	return nil
}

func (m *DefaultTypeMapper) NewInstance(def *ClassDef) (any, error) {
	if def == nil {
		return NewObject(), nil
	}
	if def.Factory != nil {
		return def.Factory(), nil
	}
	return &Object{ClassDef: def, Dynamic: make(map[string]any)}, nil
}

func (m *DefaultTypeMapper) ApplyAttrs(def *ClassDef, inst any, static []any, dynamic map[string]any) error {
	switch target := inst.(type) {
	case *Object:
		target.Static = static
		if len(dynamic) > 0 {
			if target.Dynamic == nil {
				target.Dynamic = make(map[string]any, len(dynamic))
			}
			for k, v := range dynamic {
				target.Dynamic[k] = v
			}
		}
		return nil
	case map[string]any:
		for i, name := range def.StaticAttrs {
			if i < len(static) {
				target[name] = static[i]
			}
		}
		for k, v := range dynamic {
			target[k] = v
		}
		return nil
	}

	rv := reflect.ValueOf(inst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("amf: cannot apply attributes to %T", inst)
	}
	sv := rv.Elem()
	for i, name := range def.StaticAttrs {
		if i >= len(static) {
			break
		}
		if err := setField(sv, name, static[i]); err != nil {
			return err
		}
	}
	for name, val := range dynamic {
		if err := setField(sv, name, val); err != nil {
			return err
		}
	}
	return nil
}

func (m *DefaultTypeMapper) StaticVals(def *ClassDef, inst any) ([]any, error) {
	vals := make([]any, len(def.StaticAttrs))
	switch src := inst.(type) {
	case *Object:
		copy(vals, src.Static)
		// Attributes that drifted into the dynamic map still fill
		// their static slot.
		for i, name := range def.StaticAttrs {
			if i >= len(src.Static) {
				if v, ok := src.Dynamic[name]; ok {
					vals[i] = v
				}
			}
		}
		return vals, nil
	case map[string]any:
		for i, name := range def.StaticAttrs {
			vals[i] = src[name]
		}
		return vals, nil
	}

	rv := reflect.ValueOf(inst)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("amf: cannot harvest attributes from %T", inst)
	}
	for i, name := range def.StaticAttrs {
		fv, ok := fieldByAttr(rv, name)
		if !ok {
			vals[i] = nil
			continue
		}
		vals[i] = fv.Interface()
	}
	return vals, nil
}

func (m *DefaultTypeMapper) DynamicVals(def *ClassDef, inst any) (map[string]any, error) {
	if !def.Dynamic {
		return nil, nil
	}
	switch src := inst.(type) {
	case *Object:
		return src.Dynamic, nil
	case map[string]any:
		out := make(map[string]any)
		for k, v := range src {
			if !containsAttr(def.StaticAttrs, k) {
				out[k] = v
			}
		}
		return out, nil
	}
	// Struct instances have a fixed shape; nothing dynamic to harvest.
	return nil, nil
}

func (m *DefaultTypeMapper) ReadExternal(def *ClassDef, inst any, r ExtReader) error {
	if ext, ok := inst.(Externalizable); ok {
		return ext.ReadExternal(r)
	}
	if def != nil && def.ReadExternalHook != nil {
		return def.ReadExternalHook(inst, r)
	}
	return fmt.Errorf("amf: class %q: %w: no externalizable reader", aliasOf(def), ErrBadTrait)
}

func (m *DefaultTypeMapper) WriteExternal(def *ClassDef, inst any, w ExtWriter) error {
	if ext, ok := inst.(Externalizable); ok {
		return ext.WriteExternal(w)
	}
	if def != nil && def.WriteExternalHook != nil {
		return def.WriteExternalHook(inst, w)
	}
	return fmt.Errorf("amf: class %q: %w: no externalizable writer", aliasOf(def), ErrBadTrait)
}

func aliasOf(def *ClassDef) string {
	if def == nil {
		return ""
	}
	return def.Alias
}

func containsAttr(attrs []string, name string) bool {
	for _, a := range attrs {
		if a == name {
			return true
		}
	}
	return false
}

// fieldByAttr resolves a wire attribute name to a struct field: an
// `amf` tag wins (searched through embedded structs), then an exact
// field name match, then the name with its first rune upper-cased.
func fieldByAttr(sv reflect.Value, name string) (reflect.Value, bool) {
	if fv, ok := fieldByTag(sv, name); ok {
		return fv, true
	}
	st := sv.Type()
	if f, ok := st.FieldByName(name); ok && f.IsExported() {
		return sv.FieldByIndex(f.Index), true
	}
	if f, ok := st.FieldByName(exportedName(name)); ok && f.IsExported() {
		return sv.FieldByIndex(f.Index), true
	}
	return reflect.Value{}, false
}

func fieldByTag(sv reflect.Value, name string) (reflect.Value, bool) {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Tag.Get("amf") == name {
			return sv.Field(i), true
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if fv, ok := fieldByTag(sv.Field(i), name); ok {
				return fv, true
			}
		}
	}
	return reflect.Value{}, false
}

func setField(sv reflect.Value, name string, val any) error {
	fv, ok := fieldByAttr(sv, name)
	if !ok {
		// Unknown dynamic attributes on a struct target are dropped.
		return nil
	}
	if !fv.CanSet() {
		return fmt.Errorf("amf: cannot set attribute %q on %s", name, sv.Type())
	}
	if val == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	rv := reflect.ValueOf(val)
	if !rv.Type().AssignableTo(fv.Type()) {
		if rv.Type().ConvertibleTo(fv.Type()) {
			rv = rv.Convert(fv.Type())
		} else {
			return fmt.Errorf("amf: attribute %q: cannot assign %T to %s", name, val, fv.Type())
		}
	}
	fv.Set(rv)
	return nil
}

func exportedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
