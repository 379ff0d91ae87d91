package amf

import (
	"fmt"
	"strconv"
	"time"
)

// encodeAMF0 encodes a single value with its marker. Values that only
// exist in AMF3 (byte arrays, E4X XML, wrappers) and instances of
// AMF3-flagged classes escape into an embedded AMF3 session.
func (e *Encoder) encodeAMF0(v any) error {
	switch t := v.(type) {
	case nil:
		e.w.WriteByte(nullMarker)
		return nil
	case Undefined:
		e.w.WriteByte(undefinedMarker)
		return nil
	case bool:
		e.w.WriteByte(booleanMarker)
		if t {
			e.w.WriteByte(1)
		} else {
			e.w.WriteByte(0)
		}
		return nil
	case int:
		return e.writeNumberAMF0(float64(t))
	case int8:
		return e.writeNumberAMF0(float64(t))
	case int16:
		return e.writeNumberAMF0(float64(t))
	case int32:
		return e.writeNumberAMF0(float64(t))
	case int64:
		return e.writeNumberAMF0(float64(t))
	case uint:
		return e.writeNumberAMF0(float64(t))
	case uint8:
		return e.writeNumberAMF0(float64(t))
	case uint16:
		return e.writeNumberAMF0(float64(t))
	case uint32:
		return e.writeNumberAMF0(float64(t))
	case uint64:
		return e.writeNumberAMF0(float64(t))
	case float32:
		return e.writeNumberAMF0(float64(t))
	case float64:
		return e.writeNumberAMF0(t)
	case string:
		e.writeMarkedStringAMF0(t)
		return nil
	case time.Time:
		e.w.WriteByte(dateMarker)
		e.writeDouble(float64(t.UnixMilli()))
		e.writeUint16(0) // timezone offset, deprecated
		return nil
	case []any:
		return e.writeStrictArrayAMF0(t, true)
	case *Array:
		return e.writeECMAArrayAMF0(t)
	case map[string]any:
		return e.writeAnonObjectAMF0(v, t)
	case map[any]any:
		m, err := stringKeyed(t)
		if err != nil {
			return err
		}
		return e.writeAnonObjectAMF0(v, m)
	case *Object:
		return e.writeObjectAMF0(t, t.ClassDef)
	case *XMLDoc:
		e.w.WriteByte(xmlDocumentMarker)
		e.writeLongStringAMF0(t.Data)
		return nil
	case *XML, []byte, *ByteArray, *ArrayCollection, *ObjectProxy:
		// AMF3-only shapes
		return e.escapeAMF3(v)
	default:
		if def := e.mapper.ByValue(v); def != nil {
			return e.writeObjectAMF0(v, def)
		}
		return fmt.Errorf("amf: unsupported AMF0 type: %T", v)
	}
}

// escapeAMF3 emits the avmplus marker and continues in a forked AMF3
// session over the same buffer. References never cross the boundary.
func (e *Encoder) escapeAMF3(v any) error {
	e.w.WriteByte(avmPlusMarker)
	return e.forkAMF3().encodeAMF3(v)
}

func (e *Encoder) writeNumberAMF0(v float64) error {
	e.w.WriteByte(numberMarker)
	e.writeDouble(v)
	return nil
}

// writeMarkedStringAMF0 picks the short or long string form by length.
func (e *Encoder) writeMarkedStringAMF0(s string) {
	if len(s) > 0xFFFF {
		e.w.WriteByte(longStringMarker)
		e.writeLongStringAMF0(s)
		return
	}
	e.w.WriteByte(stringMarker)
	e.writeStringAMF0(s)
}

// writeRefAMF0 emits a u16 reference when v was already encoded in
// this session. Values whose index no longer fits in 16 bits are
// written inline again.
func (e *Encoder) writeRefAMF0(v any) bool {
	if !e.opts.UseReferences {
		return false
	}
	idx, ok := e.objRefs.lookup(v)
	if !ok {
		return false
	}
	e.w.WriteByte(referenceMarker)
	e.writeUint16(uint16(idx))
	return true
}

// writeStrictArrayAMF0 emits a dense array. register is false for RPC
// argument lists, which never claim an index of their own; their
// elements still may.
func (e *Encoder) writeStrictArrayAMF0(arr []any, register bool) error {
	if register && e.writeRefAMF0(arr) {
		return nil
	}
	if register && e.opts.UseReferences {
		e.objRefs.add(arr)
	}
	e.w.WriteByte(strictArrayMarker)
	e.writeUint32(uint32(len(arr)))
	for _, item := range arr {
		if err := e.encodeAMF0(item); err != nil {
			return err
		}
	}
	return nil
}

// writeECMAArrayAMF0 emits a mixed array: the dense part under
// numeric-string keys, then the associative part.
func (e *Encoder) writeECMAArrayAMF0(arr *Array) error {
	if e.writeRefAMF0(arr) {
		return nil
	}
	if e.opts.UseReferences {
		e.objRefs.add(arr)
	}
	e.w.WriteByte(ecmaArrayMarker)
	e.writeUint32(uint32(len(arr.Dense) + len(arr.Assoc)))
	for i, item := range arr.Dense {
		e.writeStringAMF0(strconv.Itoa(i))
		if err := e.encodeAMF0(item); err != nil {
			return err
		}
	}
	for _, key := range sortedKeys(arr.Assoc) {
		e.writeStringAMF0(key)
		if err := e.encodeAMF0(arr.Assoc[key]); err != nil {
			return err
		}
	}
	e.writeObjectEndAMF0()
	return nil
}

func (e *Encoder) writeObjectEndAMF0() {
	e.writeUint16(0)
	e.w.WriteByte(objectEndMarker)
}

func (e *Encoder) writeAnonObjectAMF0(v any, m map[string]any) error {
	if e.writeRefAMF0(v) {
		return nil
	}
	if e.opts.UseReferences {
		e.objRefs.add(v)
	}
	e.w.WriteByte(objectMarker)
	attrs, err := anonymousAttrs(m, e.opts.IncludePrivate)
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(attrs) {
		e.writeStringAMF0(key)
		if err := e.encodeAMF0(attrs[key]); err != nil {
			return err
		}
	}
	e.writeObjectEndAMF0()
	return nil
}

// writeObjectAMF0 emits a typed (0x10) or anonymous (0x03) object.
// Classes flagged AMF3 switch the stream to AMF3 for this value.
func (e *Encoder) writeObjectAMF0(inst any, def *ClassDef) error {
	if def == nil {
		if o, ok := inst.(*Object); ok {
			return e.writeAnonObjectAMF0(inst, o.Dynamic)
		}
		return fmt.Errorf("amf: unsupported AMF0 type: %T", inst)
	}
	if def.AMF3 {
		return e.escapeAMF3(inst)
	}
	if e.writeRefAMF0(inst) {
		return nil
	}
	if e.opts.UseReferences {
		e.objRefs.add(inst)
	}
	e.w.WriteByte(typedObjectMarker)
	e.writeStringAMF0(def.Alias)

	static, err := e.mapper.StaticVals(def, inst)
	if err != nil {
		return err
	}
	for i, name := range def.StaticAttrs {
		e.writeStringAMF0(name)
		if err := e.encodeAMF0(coerce(def.EncodeTypes, name, static[i])); err != nil {
			return err
		}
	}
	if def.Dynamic {
		dynamic, err := e.mapper.DynamicVals(def, inst)
		if err != nil {
			return err
		}
		for _, key := range sortedKeys(dynamic) {
			e.writeStringAMF0(key)
			if err := e.encodeAMF0(coerce(def.EncodeTypes, key, dynamic[key])); err != nil {
				return err
			}
		}
	}
	e.writeObjectEndAMF0()
	return nil
}
