package amf

import (
	"github.com/limscoder/amfast/pkg/amf/buf"
)

// Options is the closed set of session settings. The zero value
// encodes AMF0 without references; DefaultOptions is the usual
// starting point.
type Options struct {
	// AMF3 selects AMF3 as the outer format instead of AMF0.
	AMF3 bool
	// UseCollections wraps sequences in ArrayCollection on encode
	// (AMF3 only).
	UseCollections bool
	// UseProxies wraps mappings in ObjectProxy on encode (AMF3 only).
	UseProxies bool
	// UseReferences enables object/string/class dedup on encode.
	UseReferences bool
	// UseLegacyXML emits XML values as XMLDocument (0x07) instead of
	// E4X (0x0B) in AMF3.
	UseLegacyXML bool
	// IncludePrivate keeps attributes with a leading underscore when
	// harvesting anonymous objects.
	IncludePrivate bool
	// Mapper resolves class definitions. Nil means an empty registry:
	// an *Object still encodes with its own ClassDef, maps encode as
	// anonymous objects, and typed traits decode to generic objects.
	Mapper TypeMapper
}

// DefaultOptions returns the defaults of the public entry points:
// AMF0 outer format with references enabled.
func DefaultOptions() Options {
	return Options{UseReferences: true}
}

func (o Options) mapper() TypeMapper {
	if o.Mapper != nil {
		return o.Mapper
	}
	return NewTypeMapper()
}

// Encoder is a single-use encode session: the write buffer, the three
// reference tables and the cached wrapper class definitions. Sessions
// are not safe for concurrent use.
type Encoder struct {
	opts   Options
	mapper TypeMapper
	w      *buf.Writer

	objRefs   *encTable
	strRefs   *strEncTable
	traitRefs *traitEncTable

	// Session-cached wrapper and anonymous class defs; identity
	// matters because defs index the trait table by pointer.
	arrayCollectionDef *ClassDef
	objectProxyDef     *ClassDef
	anonymousDef       *ClassDef
}

// NewEncoder creates an encode session writing into a fresh buffer.
func NewEncoder(opts Options) *Encoder {
	e := &Encoder{
		opts:   opts,
		mapper: opts.mapper(),
		w:      buf.NewWriter(),
	}
	e.resetTables()
	return e
}

func (e *Encoder) resetTables() {
	limit := maxAMF0RefIndex
	if e.opts.AMF3 {
		limit = maxAMF3RefIndex
	}
	e.objRefs = newEncTable(limit)
	e.strRefs = newStrEncTable()
	e.traitRefs = newTraitEncTable()
}

// Bytes returns a copy of everything encoded so far.
func (e *Encoder) Bytes() []byte {
	return e.w.Bytes()
}

// Release returns the write buffer to its pool. The encoder must not
// be used afterwards.
func (e *Encoder) Release() {
	e.w.Release()
}

// forkAMF3 produces the sibling session an AMF0 escape encodes
// through: same buffer and settings, empty AMF3 reference tables. The
// surrounding AMF0 object table is invisible to it and vice versa.
func (e *Encoder) forkAMF3() *Encoder {
	child := &Encoder{
		opts:   e.opts,
		mapper: e.mapper,
		w:      e.w,
	}
	child.opts.AMF3 = true
	child.resetTables()
	return child
}

// forkBody produces the sub-session an AMF0 packet header or message
// body encodes through: own buffer, fresh tables, shared settings and
// registry. References stay local to one body. Bodies start in AMF0;
// an AMF3 session reaches them through the escape marker.
func (e *Encoder) forkBody() *Encoder {
	child := &Encoder{
		opts:   e.opts,
		mapper: e.mapper,
		w:      buf.NewWriter(),
	}
	child.opts.AMF3 = false
	child.resetTables()
	return child
}

func (e *Encoder) wrapperArrayCollection() *ClassDef {
	if e.arrayCollectionDef == nil {
		e.arrayCollectionDef = &ClassDef{
			Alias:          arrayCollectionAlias,
			Externalizable: true,
			AMF3:           true,
		}
	}
	return e.arrayCollectionDef
}

func (e *Encoder) wrapperObjectProxy() *ClassDef {
	if e.objectProxyDef == nil {
		e.objectProxyDef = &ClassDef{
			Alias:          objectProxyAlias,
			Externalizable: true,
			AMF3:           true,
		}
	}
	return e.objectProxyDef
}

func (e *Encoder) anonymous() *ClassDef {
	if e.anonymousDef == nil {
		e.anonymousDef = &ClassDef{Dynamic: true}
	}
	return e.anonymousDef
}

// Decoder is a single-use decode session over borrowed input bytes.
type Decoder struct {
	opts   Options
	mapper TypeMapper
	r      *buf.Reader

	objRefs   decTable
	strRefs   strDecTable
	traitRefs traitDecTable
}

// NewDecoder creates a decode session over data without copying it.
func NewDecoder(data []byte, opts Options) *Decoder {
	return &Decoder{
		opts:   opts,
		mapper: opts.mapper(),
		r:      buf.NewReader(data),
	}
}

// Pos returns the current cursor position in the input.
func (d *Decoder) Pos() uint32 {
	return d.r.Pos()
}

// forkAMF3 mirrors the encoder-side escape fork: the shared read
// cursor advances in place, so nothing needs to be copied back.
func (d *Decoder) forkAMF3() *Decoder {
	child := &Decoder{
		opts:   d.opts,
		mapper: d.mapper,
		r:      d.r,
	}
	child.opts.AMF3 = true
	return child
}

// forkBody scopes reference tables to one packet header or message
// body while continuing over the shared cursor. Bodies start in AMF0.
func (d *Decoder) forkBody() *Decoder {
	child := &Decoder{
		opts:   d.opts,
		mapper: d.mapper,
		r:      d.r,
	}
	child.opts.AMF3 = false
	return child
}
