package amf

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Primitive wire codecs shared by both layers: the AMF3 U29
// variable-length integer, big-endian fixed-width numbers, and the
// length-prefixed UTF-8 string forms.

// readU29 decodes a variable-length U29 integer: the high bit of the
// first three bytes flags a continuation, the fourth byte contributes
// all eight bits.
func (d *Decoder) readU29() (uint32, error) {
	var result uint32
	for i := 0; i < 3; i++ {
		b, err := d.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			return result<<7 | uint32(b), nil
		}
		result = result<<7 | uint32(b&0x7F)
	}
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}
	return result<<8 | uint32(b), nil
}

// readInteger decodes a U29 and sign-extends the 29-bit window to 32
// bits.
func (d *Decoder) readInteger() (int32, error) {
	v, err := d.readU29()
	if err != nil {
		return 0, err
	}
	if v&0x10000000 != 0 {
		return int32(v | 0xE0000000), nil
	}
	return int32(v), nil
}

func (d *Decoder) readDouble() (float64, error) {
	b, err := d.r.Read(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (d *Decoder) readUint16() (uint16, error) {
	b, err := d.r.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	b, err := d.r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// readUTF8 reads n bytes and validates them as UTF-8.
func (d *Decoder) readUTF8(n int) (string, error) {
	b, err := d.r.Read(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrBadUTF8
	}
	return string(b), nil
}

// readStringAMF3 reads an AMF3 string: a U29 header whose low bit
// selects inline (length in the upper bits) or a string table
// reference. Non-empty inline strings are interned.
func (d *Decoder) readStringAMF3() (string, error) {
	header, err := d.readU29()
	if err != nil {
		return "", err
	}
	if header&1 == 0 {
		return d.strRefs.get(int(header >> 1))
	}
	length := int(header >> 1)
	if length == 0 {
		return "", nil
	}
	s, err := d.readUTF8(length)
	if err != nil {
		return "", err
	}
	d.strRefs.add(s)
	return s, nil
}

// readStringAMF0 reads a short (u16-prefixed) AMF0 string.
func (d *Decoder) readStringAMF0() (string, error) {
	n, err := d.readUint16()
	if err != nil {
		return "", err
	}
	return d.readUTF8(int(n))
}

// readLongStringAMF0 reads a long (u32-prefixed) AMF0 string.
func (d *Decoder) readLongStringAMF0() (string, error) {
	n, err := d.readUint32()
	if err != nil {
		return "", err
	}
	return d.readUTF8(int(n))
}

// writeU29 emits the minimal-length form of the low 29 bits of v.
func (e *Encoder) writeU29(v uint32) {
	v &= 0x1FFFFFFF
	switch {
	case v < 0x80:
		e.w.WriteByte(byte(v))
	case v < 0x4000:
		e.w.WriteByte(byte(v>>7) | 0x80)
		e.w.WriteByte(byte(v & 0x7F))
	case v < 0x200000:
		e.w.WriteByte(byte(v>>14) | 0x80)
		e.w.WriteByte(byte(v>>7) | 0x80)
		e.w.WriteByte(byte(v & 0x7F))
	default:
		e.w.WriteByte(byte(v>>22) | 0x80)
		e.w.WriteByte(byte(v>>15) | 0x80)
		e.w.WriteByte(byte(v>>8) | 0x80)
		e.w.WriteByte(byte(v))
	}
}

func (e *Encoder) writeDouble(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	e.w.Write(b[:])
}

func (e *Encoder) writeUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.w.Write(b[:])
}

func (e *Encoder) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.w.Write(b[:])
}

// writeStringAMF3 emits an AMF3 string, consulting the string table
// first. The empty string is a fixed inline header and never interned.
func (e *Encoder) writeStringAMF3(s string) {
	if s == "" {
		e.writeU29(1)
		return
	}
	if e.opts.UseReferences {
		if idx, ok := e.strRefs.lookup(s); ok {
			e.writeU29(uint32(idx) << 1)
			return
		}
		e.strRefs.add(s)
	}
	e.writeU29(uint32(len(s))<<1 | 1)
	e.w.Write([]byte(s))
}

// writeStringAMF0 emits an AMF0 short string body (no marker).
func (e *Encoder) writeStringAMF0(s string) {
	e.writeUint16(uint16(len(s)))
	e.w.Write([]byte(s))
}

// writeLongStringAMF0 emits an AMF0 long string body (no marker).
func (e *Encoder) writeLongStringAMF0(s string) {
	e.writeUint32(uint32(len(s)))
	e.w.Write([]byte(s))
}

// Exported primitive surface for externalizable hooks. This is the
// ExtReader / ExtWriter contract: enough to serialize a custom body,
// nothing that touches the reference tables directly.

func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	b, err := d.r.Read(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (d *Decoder) ReadUint8() (byte, error)     { return d.r.ReadByte() }
func (d *Decoder) ReadUint16() (uint16, error)  { return d.readUint16() }
func (d *Decoder) ReadUint32() (uint32, error)  { return d.readUint32() }
func (d *Decoder) ReadDouble() (float64, error) { return d.readDouble() }
func (d *Decoder) ReadU29() (uint32, error)     { return d.readU29() }

// ReadUTF8 reads an AMF3 string through the session string table.
func (d *Decoder) ReadUTF8() (string, error) { return d.readStringAMF3() }

func (e *Encoder) WriteBytes(p []byte) error   { e.w.Write(p); return nil }
func (e *Encoder) WriteUint8(b byte) error     { e.w.WriteByte(b); return nil }
func (e *Encoder) WriteUint16(v uint16) error  { e.writeUint16(v); return nil }
func (e *Encoder) WriteUint32(v uint32) error  { e.writeUint32(v); return nil }
func (e *Encoder) WriteDouble(v float64) error { e.writeDouble(v); return nil }
func (e *Encoder) WriteU29(v uint32) error {
	if v > 0x1FFFFFFF {
		return ErrOutOfRange
	}
	e.writeU29(v)
	return nil
}

// WriteUTF8 writes an AMF3 string through the session string table.
func (e *Encoder) WriteUTF8(s string) error { e.writeStringAMF3(s); return nil }
