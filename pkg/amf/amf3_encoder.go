package amf

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// encodeAMF3 encodes a single value with its marker.
func (e *Encoder) encodeAMF3(v any) error {
	switch t := v.(type) {
	case nil:
		e.w.WriteByte(amf3NullMarker)
		return nil
	case Undefined:
		e.w.WriteByte(amf3UndefinedMarker)
		return nil
	case bool:
		if t {
			e.w.WriteByte(amf3TrueMarker)
		} else {
			e.w.WriteByte(amf3FalseMarker)
		}
		return nil
	case int:
		return e.writeNumberAMF3(int64(t))
	case int8:
		return e.writeNumberAMF3(int64(t))
	case int16:
		return e.writeNumberAMF3(int64(t))
	case int32:
		return e.writeNumberAMF3(int64(t))
	case int64:
		return e.writeNumberAMF3(t)
	case uint:
		return e.writeNumberAMF3(int64(t))
	case uint8:
		return e.writeNumberAMF3(int64(t))
	case uint16:
		return e.writeNumberAMF3(int64(t))
	case uint32:
		return e.writeNumberAMF3(int64(t))
	case uint64:
		if t > MaxInt29 {
			e.w.WriteByte(amf3DoubleMarker)
			e.writeDouble(float64(t))
			return nil
		}
		return e.writeNumberAMF3(int64(t))
	case float32:
		e.w.WriteByte(amf3DoubleMarker)
		e.writeDouble(float64(t))
		return nil
	case float64:
		e.w.WriteByte(amf3DoubleMarker)
		e.writeDouble(t)
		return nil
	case string:
		e.w.WriteByte(amf3StringMarker)
		e.writeStringAMF3(t)
		return nil
	case time.Time:
		return e.writeDateAMF3(t)
	case []any:
		if e.opts.UseCollections {
			return e.writeWrapperAMF3(nil, e.wrapperArrayCollection(), t)
		}
		return e.writeArrayAMF3(t)
	case *Array:
		if e.opts.UseCollections {
			return e.writeWrapperAMF3(nil, e.wrapperArrayCollection(), t)
		}
		return e.writeArrayAMF3(t)
	case *ArrayCollection:
		return e.writeWrapperAMF3(t, e.wrapperArrayCollection(), t.Source)
	case map[string]any:
		if e.opts.UseProxies {
			return e.writeWrapperAMF3(nil, e.wrapperObjectProxy(), t)
		}
		return e.writeObjectAMF3(t, nil)
	case map[any]any:
		m, err := stringKeyed(t)
		if err != nil {
			return err
		}
		if e.opts.UseProxies {
			return e.writeWrapperAMF3(nil, e.wrapperObjectProxy(), m)
		}
		return e.writeObjectAMF3(m, nil)
	case *ObjectProxy:
		return e.writeWrapperAMF3(t, e.wrapperObjectProxy(), t.Object)
	case *Object:
		return e.writeObjectAMF3(t, t.ClassDef)
	case []byte:
		return e.writeByteArrayAMF3(v, t)
	case *ByteArray:
		return e.writeByteArrayAMF3(v, t.Data)
	case *XMLDoc:
		return e.writeXMLAMF3(v, t.Data, true)
	case *XML:
		return e.writeXMLAMF3(v, t.Data, e.opts.UseLegacyXML)
	default:
		if def := e.mapper.ByValue(v); def != nil {
			return e.writeObjectAMF3(v, def)
		}
		return fmt.Errorf("amf: unsupported AMF3 type: %T", v)
	}
}

// writeNumberAMF3 emits an integer inside the signed 29-bit window,
// falling back to a double outside it.
func (e *Encoder) writeNumberAMF3(v int64) error {
	if v < MinInt29 || v > MaxInt29 {
		e.w.WriteByte(amf3DoubleMarker)
		e.writeDouble(float64(v))
		return nil
	}
	e.w.WriteByte(amf3IntegerMarker)
	e.writeU29(uint32(v))
	return nil
}

// writeRefAMF3 emits a reference header when v was already encoded in
// this session. Registration is skipped entirely when references are
// disabled; the decoder still counts indices, they are just never
// cited.
func (e *Encoder) writeRefAMF3(v any) bool {
	if !e.opts.UseReferences {
		return false
	}
	idx, ok := e.objRefs.lookup(v)
	if !ok {
		return false
	}
	e.writeU29(uint32(idx) << 1)
	return true
}

func (e *Encoder) writeDateAMF3(t time.Time) error {
	e.w.WriteByte(amf3DateMarker)
	if e.writeRefAMF3(t) {
		return nil
	}
	if e.opts.UseReferences {
		e.objRefs.add(t)
	}
	e.writeU29(1)
	e.writeDouble(float64(t.UnixMilli()))
	return nil
}

func (e *Encoder) writeArrayAMF3(v any) error {
	e.w.WriteByte(amf3ArrayMarker)
	if e.writeRefAMF3(v) {
		return nil
	}
	return e.writeArrayBodyAMF3(v)
}

// writeArrayBodyAMF3 emits the header, associative part and dense part
// of an array that was not reference-encoded.
func (e *Encoder) writeArrayBodyAMF3(v any) error {
	var dense []any
	var assoc map[string]any
	switch t := v.(type) {
	case []any:
		dense = t
	case *Array:
		dense = t.Dense
		assoc = t.Assoc
	default:
		return fmt.Errorf("amf: unsupported array type: %T", v)
	}

	if e.opts.UseReferences {
		e.objRefs.add(v)
	}
	e.writeU29(uint32(len(dense))<<1 | 1)
	for _, key := range sortedKeys(assoc) {
		e.writeStringAMF3(key)
		if err := e.encodeAMF3(assoc[key]); err != nil {
			return err
		}
	}
	e.writeStringAMF3("")
	for _, item := range dense {
		if err := e.encodeAMF3(item); err != nil {
			return err
		}
	}
	return nil
}

// writeWrapperAMF3 emits an ArrayCollection or ObjectProxy envelope:
// wrapper trait, a wrapper slot in the object table, then the payload
// as a complete value consuming its own index. A repeat of the payload
// references the payload slot; a repeat of an explicit wrapper value
// references the wrapper slot.
func (e *Encoder) writeWrapperAMF3(wrapper any, def *ClassDef, inner any) error {
	e.w.WriteByte(amf3ObjectMarker)
	if wrapper != nil && e.writeRefAMF3(wrapper) {
		return nil
	}
	if e.writeRefAMF3(inner) {
		return nil
	}
	if err := e.writeTraitsAMF3(def); err != nil {
		return err
	}
	if e.opts.UseReferences {
		if wrapper != nil {
			e.objRefs.add(wrapper)
		} else {
			e.objRefs.addPlaceholder()
		}
	}
	if def == e.arrayCollectionDef {
		return e.writeArrayAMF3(inner)
	}
	switch t := inner.(type) {
	case *Object:
		return e.writeObjectAMF3(t, t.ClassDef)
	case map[any]any:
		m, err := stringKeyed(t)
		if err != nil {
			return err
		}
		return e.writeObjectAMF3(m, nil)
	default:
		return e.writeObjectAMF3(inner, nil)
	}
}

// writeObjectAMF3 emits an object with the given class definition; nil
// def means anonymous dynamic encoding.
func (e *Encoder) writeObjectAMF3(inst any, def *ClassDef) error {
	e.w.WriteByte(amf3ObjectMarker)
	if e.writeRefAMF3(inst) {
		return nil
	}
	if def == nil {
		def = e.anonymous()
	}

	if err := e.writeTraitsAMF3(def); err != nil {
		return err
	}
	if e.opts.UseReferences {
		e.objRefs.add(inst)
	}

	if def.Externalizable {
		return e.mapper.WriteExternal(def, inst, e)
	}

	if len(def.StaticAttrs) > 0 {
		static, err := e.mapper.StaticVals(def, inst)
		if err != nil {
			return err
		}
		for i, name := range def.StaticAttrs {
			if err := e.encodeAMF3(coerce(def.EncodeTypes, name, static[i])); err != nil {
				return err
			}
		}
	}

	if def.Dynamic {
		var dynamic map[string]any
		if def == e.anonymousDef {
			var err error
			if dynamic, err = anonymousAttrs(inst, e.opts.IncludePrivate); err != nil {
				return err
			}
		} else {
			var err error
			if dynamic, err = e.mapper.DynamicVals(def, inst); err != nil {
				return err
			}
		}
		for _, key := range sortedKeys(dynamic) {
			e.writeStringAMF3(key)
			if err := e.encodeAMF3(coerce(def.EncodeTypes, key, dynamic[key])); err != nil {
				return err
			}
		}
		e.writeStringAMF3("")
	}
	return nil
}

// writeTraitsAMF3 emits a trait header, citing the trait table when
// this definition was already written.
func (e *Encoder) writeTraitsAMF3(def *ClassDef) error {
	if e.opts.UseReferences {
		if idx, ok := e.traitRefs.lookup(def); ok {
			e.writeU29(uint32(idx)<<2 | traitReference)
			return nil
		}
		e.traitRefs.add(def)
	}

	count := len(def.StaticAttrs)
	if count >= maxStaticAttrs {
		return fmt.Errorf("amf: class %q: %w: %d static attributes", def.Alias, ErrOutOfRange, count)
	}
	switch {
	case def.Externalizable:
		e.writeU29(traitExternalizable)
	case def.Dynamic:
		e.writeU29(uint32(count)<<4 | traitDynamic)
	default:
		e.writeU29(uint32(count)<<4 | traitStatic)
	}
	e.writeStringAMF3(def.Alias)
	if !def.Externalizable {
		for _, name := range def.StaticAttrs {
			e.writeStringAMF3(name)
		}
	}
	return nil
}

func (e *Encoder) writeByteArrayAMF3(v any, data []byte) error {
	e.w.WriteByte(amf3ByteArrayMarker)
	if e.writeRefAMF3(v) {
		return nil
	}
	if e.opts.UseReferences {
		e.objRefs.add(v)
	}
	e.writeU29(uint32(len(data))<<1 | 1)
	e.w.Write(data)
	return nil
}

func (e *Encoder) writeXMLAMF3(v any, doc string, legacy bool) error {
	if legacy {
		e.w.WriteByte(amf3XMLDocMarker)
	} else {
		e.w.WriteByte(amf3XMLMarker)
	}
	if e.writeRefAMF3(v) {
		return nil
	}
	if e.opts.UseReferences {
		e.objRefs.add(v)
	}
	e.writeU29(uint32(len(doc))<<1 | 1)
	e.w.Write([]byte(doc))
	return nil
}

// anonymousAttrs harvests the dynamic body of an anonymous object.
// Leading-underscore attributes stay private unless the session says
// otherwise.
func anonymousAttrs(inst any, includePrivate bool) (map[string]any, error) {
	var src map[string]any
	switch t := inst.(type) {
	case map[string]any:
		src = t
	case *Object:
		src = t.Dynamic
	default:
		return nil, fmt.Errorf("amf: cannot encode %T as anonymous object", inst)
	}
	if includePrivate {
		return src, nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		if strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// stringKeyed converts a loosely keyed map, rejecting non-string keys.
func stringKeyed(m map[any]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		s, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrBadKey, k)
		}
		out[s] = v
	}
	return out, nil
}

// sortedKeys fixes the emission order of dynamic bodies so encoding is
// deterministic for identical input.
func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
