package amf

// Values move through the codec as plain Go values where possible:
// nil, bool, int/int32/int64, float64, string, time.Time,
// map[string]any and []any all encode directly. The types below cover
// the AMF shapes that have no native Go equivalent.

// Undefined is the AMF undefined value. AMF0 distinguishes it from
// null on the wire; decoders return Undefined{} so callers that care
// can tell them apart.
type Undefined struct{}

// Object is a typed or anonymous AMF object. ClassDef is nil for
// anonymous objects. Static holds the values for the class
// definition's static attributes in declared order; Dynamic holds any
// additional key/value pairs.
type Object struct {
	ClassDef *ClassDef
	Static   []any
	Dynamic  map[string]any
}

// NewObject returns an empty anonymous object.
func NewObject() *Object {
	return &Object{Dynamic: make(map[string]any)}
}

// Get looks an attribute up by name, checking static attributes first.
func (o *Object) Get(name string) (any, bool) {
	if o.ClassDef != nil {
		for i, attr := range o.ClassDef.StaticAttrs {
			if attr == name && i < len(o.Static) {
				return o.Static[i], true
			}
		}
	}
	v, ok := o.Dynamic[name]
	return v, ok
}

// Set stores an attribute, routing it to the static slot when the
// class definition declares one of that name.
func (o *Object) Set(name string, v any) {
	if o.ClassDef != nil {
		for i, attr := range o.ClassDef.StaticAttrs {
			if attr == name {
				for len(o.Static) <= i {
					o.Static = append(o.Static, nil)
				}
				o.Static[i] = v
				return
			}
		}
	}
	if o.Dynamic == nil {
		o.Dynamic = make(map[string]any)
	}
	o.Dynamic[name] = v
}

// Array is an AMF array with both a dense and an associative part.
// AMF0 strict arrays and pure dense AMF3 arrays decode as plain []any;
// Array appears for AMF3 arrays whose associative part is non-empty
// and for every AMF0 ECMA array, whose entries all land in Assoc.
type Array struct {
	Dense []any
	Assoc map[string]any
}

// ByteArray is an AMF3 byte array.
type ByteArray struct {
	Data []byte
}

// XMLDoc is a legacy XML document (AMF0 0x0F, AMF3 0x07).
type XMLDoc struct {
	Data string
}

// XML is an E4X XML value (AMF3 0x0B). In AMF0 sessions it forces the
// AMF3 escape since AMF0 has no E4X form.
type XML struct {
	Data string
}

// ArrayCollection wraps a sequence the way Flex's
// flex.messaging.io.ArrayCollection does on the wire. Encoding one
// always emits the wrapper regardless of the UseCollections option.
type ArrayCollection struct {
	Source []any
}

// ObjectProxy wraps a mapping the way flex.messaging.io.ObjectProxy
// does on the wire. Object is the proxied map or *Object.
type ObjectProxy struct {
	Object any
}
