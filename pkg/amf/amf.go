package amf

// Encode serializes a single value and returns the wire bytes. A fresh
// session (reference tables, wrapper class defs) lives for the
// duration of the call.
func Encode(v any, opts Options) ([]byte, error) {
	e := NewEncoder(opts)
	defer e.Release()
	if err := e.WriteValue(v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeSequence serializes several values back to back in one
// session, the shape of an RTMP command payload. References are shared
// across the sequence.
func EncodeSequence(opts Options, values ...any) ([]byte, error) {
	e := NewEncoder(opts)
	defer e.Release()
	for _, v := range values {
		if err := e.WriteValue(v); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

// EncodePacket serializes a NetConnection packet.
func EncodePacket(p *Packet, opts Options) ([]byte, error) {
	e := NewEncoder(opts)
	defer e.Release()
	if err := e.encodePacket(p); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Decode deserializes a single value from data. Input bytes are
// borrowed for the duration of the call; decoded values own their
// memory.
func Decode(data []byte, opts Options) (any, error) {
	return NewDecoder(data, opts).ReadValue()
}

// DecodeSequence deserializes values until the input is exhausted,
// sharing one session across the sequence.
func DecodeSequence(data []byte, opts Options) ([]any, error) {
	d := NewDecoder(data, opts)
	var values []any
	for d.r.Remaining() > 0 {
		v, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// DecodePacket deserializes a NetConnection packet.
func DecodePacket(data []byte, opts Options) (*Packet, error) {
	return NewDecoder(data, opts).decodePacket()
}

// WriteValue encodes one value in the session's outer format.
func (e *Encoder) WriteValue(v any) error {
	if e.opts.AMF3 {
		return e.encodeAMF3(v)
	}
	return e.encodeAMF0(v)
}

// ReadValue decodes one value in the session's outer format.
func (d *Decoder) ReadValue() (any, error) {
	if d.opts.AMF3 {
		return d.decodeAMF3()
	}
	return d.decodeAMF0()
}
