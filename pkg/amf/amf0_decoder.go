package amf

import (
	"fmt"
	"time"
)

// decodeAMF0 decodes a single AMF0 value, tagging failures with the
// offset of the value's marker byte.
func (d *Decoder) decodeAMF0() (any, error) {
	offset := d.r.Pos()
	marker, err := d.r.ReadByte()
	if err != nil {
		return nil, decodeErr(offset, 0, err)
	}
	v, err := d.dispatchAMF0(marker)
	if err != nil {
		return nil, decodeErr(offset, marker, err)
	}
	return v, nil
}

func (d *Decoder) dispatchAMF0(marker byte) (any, error) {
	switch marker {
	case numberMarker:
		return d.readDouble()
	case booleanMarker:
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case stringMarker:
		return d.readStringAMF0()
	case objectMarker:
		return d.readObjectAMF0("")
	case nullMarker:
		return nil, nil
	case undefinedMarker:
		return Undefined{}, nil
	case referenceMarker:
		idx, err := d.readUint16()
		if err != nil {
			return nil, err
		}
		return d.objRefs.get(int(idx))
	case ecmaArrayMarker:
		return d.readECMAArrayAMF0()
	case strictArrayMarker:
		return d.readStrictArrayAMF0()
	case dateMarker:
		return d.readDateAMF0()
	case longStringMarker:
		return d.readLongStringAMF0()
	case xmlDocumentMarker:
		s, err := d.readLongStringAMF0()
		if err != nil {
			return nil, err
		}
		return &XMLDoc{Data: s}, nil
	case typedObjectMarker:
		alias, err := d.readStringAMF0()
		if err != nil {
			return nil, err
		}
		return d.readObjectAMF0(alias)
	case avmPlusMarker:
		// The escape hands the cursor to a fresh AMF3 session; the
		// surrounding object table stays invisible to it.
		return d.forkAMF3().decodeAMF3()
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownMarker, marker)
	}
}

// readPairsAMF0 reads key/value pairs up to the zero-length key
// followed by the object-end marker.
func (d *Decoder) readPairsAMF0(into map[string]any) error {
	for {
		key, err := d.readStringAMF0()
		if err != nil {
			return err
		}
		if key == "" {
			end, err := d.r.ReadByte()
			if err != nil {
				return err
			}
			if end != objectEndMarker {
				return fmt.Errorf("%w: 0x%02X after empty key", ErrUnknownMarker, end)
			}
			return nil
		}
		v, err := d.decodeAMF0()
		if err != nil {
			return err
		}
		into[key] = v
	}
}

// readObjectAMF0 decodes an anonymous (0x03) or typed (0x10) object
// body. The instance registers before its attributes decode so self
// references resolve.
func (d *Decoder) readObjectAMF0(alias string) (any, error) {
	if alias == "" {
		obj := make(map[string]any)
		d.objRefs.add(obj)
		if err := d.readPairsAMF0(obj); err != nil {
			return nil, err
		}
		return obj, nil
	}

	attrs := make(map[string]any)
	if def := d.mapper.ByAlias(alias); def != nil {
		inst, err := d.mapper.NewInstance(def)
		if err != nil {
			return nil, err
		}
		d.objRefs.add(inst)
		if err := d.readPairsAMF0(attrs); err != nil {
			return nil, err
		}
		static := make([]any, len(def.StaticAttrs))
		for i, name := range def.StaticAttrs {
			if v, ok := attrs[name]; ok {
				static[i] = coerce(def.DecodeTypes, name, v)
				delete(attrs, name)
			}
		}
		for name, v := range attrs {
			attrs[name] = coerce(def.DecodeTypes, name, v)
		}
		if err := d.mapper.ApplyAttrs(def, inst, static, attrs); err != nil {
			return nil, err
		}
		return inst, nil
	}

	obj := &Object{
		ClassDef: &ClassDef{Alias: alias, Dynamic: true},
		Dynamic:  attrs,
	}
	d.objRefs.add(obj)
	if err := d.readPairsAMF0(attrs); err != nil {
		return nil, err
	}
	return obj, nil
}

// readECMAArrayAMF0 decodes a mixed array. The leading u32 is only a
// hint; the body runs to the object-end terminator.
func (d *Decoder) readECMAArrayAMF0() (any, error) {
	if _, err := d.readUint32(); err != nil {
		return nil, err
	}
	arr := &Array{Assoc: make(map[string]any)}
	d.objRefs.add(arr)
	if err := d.readPairsAMF0(arr.Assoc); err != nil {
		return nil, err
	}
	return arr, nil
}

func (d *Decoder) readStrictArrayAMF0() (any, error) {
	n, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	if int(n) > d.r.Remaining() {
		return nil, fmt.Errorf("array length %d: %w", n, ErrUnderflow)
	}
	arr := make([]any, n)
	d.objRefs.add(arr)
	for i := range arr {
		if arr[i], err = d.decodeAMF0(); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// readDateAMF0 decodes epoch milliseconds plus a timezone offset the
// format deprecated; the offset is read and discarded.
func (d *Decoder) readDateAMF0() (any, error) {
	ms, err := d.readDouble()
	if err != nil {
		return nil, err
	}
	if _, err := d.readUint16(); err != nil {
		return nil, err
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}
