package amf

import (
	"fmt"
	"time"
)

// decodeAMF3 decodes a single AMF3 value, tagging failures with the
// offset of the value's marker byte.
func (d *Decoder) decodeAMF3() (any, error) {
	offset := d.r.Pos()
	marker, err := d.r.ReadByte()
	if err != nil {
		return nil, decodeErr(offset, 0, err)
	}
	v, err := d.dispatchAMF3(marker)
	if err != nil {
		return nil, decodeErr(offset, marker, err)
	}
	return v, nil
}

func (d *Decoder) dispatchAMF3(marker byte) (any, error) {
	switch marker {
	case amf3UndefinedMarker:
		return Undefined{}, nil
	case amf3NullMarker:
		return nil, nil
	case amf3FalseMarker:
		return false, nil
	case amf3TrueMarker:
		return true, nil
	case amf3IntegerMarker:
		return d.readInteger()
	case amf3DoubleMarker:
		return d.readDouble()
	case amf3StringMarker:
		return d.readStringAMF3()
	case amf3XMLDocMarker:
		return d.readXMLAMF3(true)
	case amf3DateMarker:
		return d.readDateAMF3()
	case amf3ArrayMarker:
		return d.readArrayAMF3(false)
	case amf3ObjectMarker:
		return d.readObjectAMF3(false)
	case amf3XMLMarker:
		return d.readXMLAMF3(false)
	case amf3ByteArrayMarker:
		return d.readByteArrayAMF3()
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownMarker, marker)
	}
}

// readArrayAMF3 decodes an array body. proxy marks the payload of an
// ArrayCollection wrapper, which consumes a second object index for
// the same value so cross-references stay aligned with the encoder.
func (d *Decoder) readArrayAMF3(proxy bool) (any, error) {
	header, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if header&1 == 0 {
		v, err := d.objRefs.get(int(header >> 1))
		if err != nil {
			return nil, err
		}
		if proxy {
			d.objRefs.add(v)
		}
		return v, nil
	}

	n := int(header >> 1)
	if n > d.r.Remaining() {
		// Each dense element costs at least one marker byte, so a
		// length past the remaining input can never complete.
		return nil, fmt.Errorf("array length %d: %w", n, ErrUnderflow)
	}

	// The associative part precedes the dense part. Peeking the first
	// key tells dense from mixed before the container is registered;
	// key reads touch only the string table, so registering after the
	// peek still precedes any child value.
	key, err := d.readStringAMF3()
	if err != nil {
		return nil, err
	}

	if key == "" {
		dense := make([]any, n)
		d.objRefs.add(dense)
		if proxy {
			d.objRefs.add(dense)
		}
		for i := range dense {
			if dense[i], err = d.decodeAMF3(); err != nil {
				return nil, err
			}
		}
		return dense, nil
	}

	arr := &Array{Dense: make([]any, n), Assoc: make(map[string]any)}
	d.objRefs.add(arr)
	if proxy {
		d.objRefs.add(arr)
	}
	for {
		v, err := d.decodeAMF3()
		if err != nil {
			return nil, err
		}
		arr.Assoc[key] = v
		if key, err = d.readStringAMF3(); err != nil {
			return nil, err
		}
		if key == "" {
			break
		}
	}
	for i := range arr.Dense {
		if arr.Dense[i], err = d.decodeAMF3(); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// readObjectAMF3 decodes an object body: reference, wrapper,
// externalizable, or trait-directed attributes.
func (d *Decoder) readObjectAMF3(proxy bool) (any, error) {
	header, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if header&1 == 0 {
		v, err := d.objRefs.get(int(header >> 1))
		if err != nil {
			return nil, err
		}
		if proxy {
			d.objRefs.add(v)
		}
		return v, nil
	}

	trait, err := d.readTraitsAMF3(header)
	if err != nil {
		return nil, err
	}
	def := trait.def

	// Wrapper classes carry a redundant inner type marker before the
	// payload; skip it and decode the payload with the extra index.
	if def.Externalizable {
		switch def.Alias {
		case arrayCollectionAlias:
			if _, err := d.r.ReadByte(); err != nil {
				return nil, err
			}
			return d.readArrayAMF3(true)
		case objectProxyAlias:
			if _, err := d.r.ReadByte(); err != nil {
				return nil, err
			}
			return d.readObjectAMF3(true)
		}
		if !trait.mapped {
			return nil, fmt.Errorf("externalizable alias %q: %w", def.Alias, ErrUnmappedAlias)
		}
		inst, err := d.mapper.NewInstance(def)
		if err != nil {
			return nil, err
		}
		d.objRefs.add(inst)
		if proxy {
			d.objRefs.add(inst)
		}
		if err := d.mapper.ReadExternal(def, inst, d); err != nil {
			return nil, err
		}
		return inst, nil
	}

	var inst any
	switch {
	case def.Alias == "":
		inst = make(map[string]any)
	case trait.mapped:
		if inst, err = d.mapper.NewInstance(def); err != nil {
			return nil, err
		}
	default:
		// Typed but unmapped: keep the alias on a generic object so
		// re-encoding preserves the wire shape.
		inst = &Object{ClassDef: def, Dynamic: make(map[string]any)}
	}
	d.objRefs.add(inst)
	if proxy {
		d.objRefs.add(inst)
	}

	static := make([]any, len(trait.attrs))
	for i, name := range trait.attrs {
		v, err := d.decodeAMF3()
		if err != nil {
			return nil, err
		}
		static[i] = coerce(def.DecodeTypes, name, v)
	}

	var dynamic map[string]any
	if def.Dynamic {
		dynamic = make(map[string]any)
		for {
			key, err := d.readStringAMF3()
			if err != nil {
				return nil, err
			}
			if key == "" {
				break
			}
			v, err := d.decodeAMF3()
			if err != nil {
				return nil, err
			}
			dynamic[key] = coerce(def.DecodeTypes, key, v)
		}
	}

	if m, ok := inst.(map[string]any); ok && def.Alias == "" {
		for i, name := range trait.attrs {
			m[name] = static[i]
		}
		for k, v := range dynamic {
			m[k] = v
		}
		return inst, nil
	}
	applyDef := def
	if trait.mapped {
		// The wire may declare static attributes in a different order
		// than the registered definition; realign by name.
		aligned := make([]any, len(def.StaticAttrs))
		for i, name := range trait.attrs {
			if j := indexOfAttr(def.StaticAttrs, name); j >= 0 {
				aligned[j] = static[i]
			} else {
				if dynamic == nil {
					dynamic = make(map[string]any)
				}
				dynamic[name] = static[i]
			}
		}
		static = aligned
	}
	if err := d.mapper.ApplyAttrs(applyDef, inst, static, dynamic); err != nil {
		return nil, err
	}
	return inst, nil
}

// readTraitsAMF3 resolves the trait portion of an object header:
// either a trait reference or an inline definition, which is interned
// in the trait table before the body decodes.
func (d *Decoder) readTraitsAMF3(header uint32) (traitEntry, error) {
	if header&2 == 0 {
		return d.traitRefs.get(int(header >> 2))
	}

	ext := header&4 != 0
	dyn := header&8 != 0
	n := int(header >> 4)
	if n >= maxStaticAttrs {
		return traitEntry{}, fmt.Errorf("static attribute count %d: %w", n, ErrOutOfRange)
	}

	alias, err := d.readStringAMF3()
	if err != nil {
		return traitEntry{}, err
	}
	attrs := make([]string, n)
	for i := range attrs {
		if attrs[i], err = d.readStringAMF3(); err != nil {
			return traitEntry{}, err
		}
	}

	var entry traitEntry
	switch {
	case ext && (alias == arrayCollectionAlias || alias == objectProxyAlias):
		entry = traitEntry{
			def: &ClassDef{Alias: alias, Externalizable: true, AMF3: true},
		}
	default:
		if reg := d.mapper.ByAlias(alias); reg != nil {
			if reg.Externalizable != ext || (!ext && reg.Dynamic != dyn) {
				return traitEntry{}, fmt.Errorf("alias %q: %w", alias, ErrBadTrait)
			}
			entry = traitEntry{def: reg, attrs: attrs, mapped: true}
		} else {
			entry = traitEntry{
				def:   &ClassDef{Alias: alias, StaticAttrs: attrs, Dynamic: dyn, Externalizable: ext},
				attrs: attrs,
			}
		}
	}
	d.traitRefs.add(entry)
	return entry, nil
}

// readDateAMF3 decodes a date: epoch milliseconds as a double, always
// UTC. Inline dates register in the object table like any other
// referenceable value.
func (d *Decoder) readDateAMF3() (any, error) {
	header, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if header&1 == 0 {
		return d.objRefs.get(int(header >> 1))
	}
	ms, err := d.readDouble()
	if err != nil {
		return nil, err
	}
	t := time.UnixMilli(int64(ms)).UTC()
	d.objRefs.add(t)
	return t, nil
}

func (d *Decoder) readByteArrayAMF3() (any, error) {
	header, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if header&1 == 0 {
		return d.objRefs.get(int(header >> 1))
	}
	b, err := d.r.Read(int(header >> 1))
	if err != nil {
		return nil, err
	}
	ba := &ByteArray{Data: append([]byte(nil), b...)}
	d.objRefs.add(ba)
	return ba, nil
}

// readXMLAMF3 decodes either XML flavor; legacy selects the
// XMLDocument form.
func (d *Decoder) readXMLAMF3(legacy bool) (any, error) {
	header, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if header&1 == 0 {
		return d.objRefs.get(int(header >> 1))
	}
	s, err := d.readUTF8(int(header >> 1))
	if err != nil {
		return nil, err
	}
	var v any
	if legacy {
		v = &XMLDoc{Data: s}
	} else {
		v = &XML{Data: s}
	}
	d.objRefs.add(v)
	return v, nil
}

func indexOfAttr(attrs []string, name string) int {
	for i, a := range attrs {
		if a == name {
			return i
		}
	}
	return -1
}

func coerce(types map[string]func(any) any, name string, v any) any {
	if types == nil {
		return v
	}
	if fn, ok := types[name]; ok {
		return fn(v)
	}
	return v
}
