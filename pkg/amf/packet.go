package amf

import "fmt"

// NetConnection packet client versions.
const (
	ClientFlash8   uint16 = 0x00
	ClientFlashCom uint16 = 0x01
	ClientFlash9   uint16 = 0x03
)

// Packet is the AMF0 NetConnection envelope: a client version, headers
// and messages. The packet layer itself is always AMF0; AMF3 sessions
// reach message bodies through the escape marker.
type Packet struct {
	Version  uint16
	Headers  []Header
	Messages []Message
}

// Header is a packet header: a named value the peer may mark required.
type Header struct {
	Name     string
	Required bool
	Value    any
}

// Message is a remoting call or response. Target names the remote
// endpoint; Response names the reply URI and is empty on responses.
type Message struct {
	Target   string
	Response string
	Body     any
}

// NewPacket returns an empty Flash 9 packet.
func NewPacket() *Packet {
	return &Packet{Version: ClientFlash9}
}

func validVersion(v uint16) bool {
	return v == ClientFlash8 || v == ClientFlashCom || v == ClientFlash9
}

// encodePacket emits the packet envelope. Each header and message body
// encodes through a forked session so references stay local to that
// body, then lands length-prefixed in the parent buffer.
func (e *Encoder) encodePacket(p *Packet) error {
	if !validVersion(p.Version) {
		return fmt.Errorf("%w: 0x%04X", ErrBadClientVersion, p.Version)
	}
	e.writeUint16(p.Version)

	e.writeUint16(uint16(len(p.Headers)))
	for i := range p.Headers {
		if err := e.encodePacketHeader(&p.Headers[i]); err != nil {
			return fmt.Errorf("header %q: %w", p.Headers[i].Name, err)
		}
	}

	e.writeUint16(uint16(len(p.Messages)))
	for i := range p.Messages {
		if err := e.encodePacketMessage(&p.Messages[i]); err != nil {
			return fmt.Errorf("message %q: %w", p.Messages[i].Target, err)
		}
	}
	return nil
}

func (e *Encoder) encodePacketHeader(h *Header) error {
	e.writeStringAMF0(h.Name)
	if h.Required {
		e.w.WriteByte(1)
	} else {
		e.w.WriteByte(0)
	}

	body := e.forkBody()
	defer body.Release()
	if err := body.encodeAMF0(h.Value); err != nil {
		return err
	}
	raw := body.Bytes()
	e.writeUint32(uint32(len(raw)))
	e.w.Write(raw)
	return nil
}

func (e *Encoder) encodePacketMessage(m *Message) error {
	e.writeStringAMF0(m.Target)
	e.writeStringAMF0(m.Response)

	body := e.forkBody()
	defer body.Release()
	var err error
	if args, ok := m.Body.([]any); ok && m.Response != "" {
		// A request: the argument list itself never claims a
		// reference index, and stays AMF0 even in AMF3 sessions.
		err = body.writeStrictArrayAMF0(args, false)
	} else if e.opts.AMF3 {
		err = body.escapeAMF3(m.Body)
	} else {
		err = body.encodeAMF0(m.Body)
	}
	if err != nil {
		return err
	}
	raw := body.Bytes()
	e.writeUint32(uint32(len(raw)))
	e.w.Write(raw)
	return nil
}

// decodePacket reads the packet envelope. Bodies decode in forked
// sessions over the shared cursor; the byte-length prefixes are kept
// only as hints because peers are known to lie about them.
func (d *Decoder) decodePacket() (*Packet, error) {
	version, err := d.readUint16()
	if err != nil {
		return nil, err
	}
	if !validVersion(version) {
		return nil, fmt.Errorf("%w: 0x%04X", ErrBadClientVersion, version)
	}
	p := &Packet{Version: version}

	headerCount, err := d.readUint16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(headerCount); i++ {
		h, err := d.decodePacketHeader()
		if err != nil {
			return nil, fmt.Errorf("header %d: %w", i, err)
		}
		p.Headers = append(p.Headers, h)
	}

	messageCount, err := d.readUint16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(messageCount); i++ {
		m, err := d.decodePacketMessage()
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		p.Messages = append(p.Messages, m)
	}
	return p, nil
}

func (d *Decoder) decodePacketHeader() (Header, error) {
	var h Header
	var err error
	if h.Name, err = d.readStringAMF0(); err != nil {
		return h, err
	}
	req, err := d.r.ReadByte()
	if err != nil {
		return h, err
	}
	h.Required = req != 0
	if _, err = d.readUint32(); err != nil { // byte length, hint only
		return h, err
	}
	body := d.forkBody()
	if h.Value, err = body.decodeAMF0(); err != nil {
		return h, err
	}
	return h, nil
}

func (d *Decoder) decodePacketMessage() (Message, error) {
	var m Message
	var err error
	if m.Target, err = d.readStringAMF0(); err != nil {
		return m, err
	}
	if m.Response, err = d.readStringAMF0(); err != nil {
		return m, err
	}
	if _, err = d.readUint32(); err != nil { // byte length, hint only
		return m, err
	}

	body := d.forkBody()
	if m.Response != "" {
		// Mirror the encoder: a request's argument list consumes no
		// reference index, or the body's indices would shift by one.
		m.Body, err = body.decodeRequestBody()
	} else {
		m.Body, err = body.decodeAMF0()
	}
	if err != nil {
		return m, err
	}
	return m, nil
}

// decodeRequestBody decodes a message body whose top-level strict
// array, if present, is not registered in the reference table.
func (d *Decoder) decodeRequestBody() (any, error) {
	offset := d.r.Pos()
	marker, err := d.r.ReadByte()
	if err != nil {
		return nil, decodeErr(offset, 0, err)
	}
	if marker != strictArrayMarker {
		v, err := d.dispatchAMF0(marker)
		if err != nil {
			return nil, decodeErr(offset, marker, err)
		}
		return v, nil
	}
	n, err := d.readUint32()
	if err != nil {
		return nil, decodeErr(offset, marker, err)
	}
	if int(n) > d.r.Remaining() {
		return nil, decodeErr(offset, marker, fmt.Errorf("array length %d: %w", n, ErrUnderflow))
	}
	args := make([]any, n)
	for i := range args {
		if args[i], err = d.decodeAMF0(); err != nil {
			return nil, err
		}
	}
	return args, nil
}
