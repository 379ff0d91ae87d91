// Package amf implements the Action Message Format wire codec: AMF0
// and AMF3 value serialization, the per-session reference tables that
// make shared and cyclic object graphs round-trip, the class
// definition (trait) protocol used for typed-object interop with Flex
// peers, and the AMF0 NetConnection packet envelope.
package amf

// AMF0 Type Markers
const (
	numberMarker      = 0x00
	booleanMarker     = 0x01
	stringMarker      = 0x02
	objectMarker      = 0x03
	movieClipMarker   = 0x04 // Not supported
	nullMarker        = 0x05
	undefinedMarker   = 0x06
	referenceMarker   = 0x07
	ecmaArrayMarker   = 0x08
	objectEndMarker   = 0x09
	strictArrayMarker = 0x0A
	dateMarker        = 0x0B
	longStringMarker  = 0x0C
	unsupportedMarker = 0x0D
	recordSetMarker   = 0x0E // Not supported
	xmlDocumentMarker = 0x0F
	typedObjectMarker = 0x10
	avmPlusMarker     = 0x11 // AMF3 escape
)

// AMF3 Type Markers
const (
	amf3UndefinedMarker = 0x00
	amf3NullMarker      = 0x01
	amf3FalseMarker     = 0x02
	amf3TrueMarker      = 0x03
	amf3IntegerMarker   = 0x04
	amf3DoubleMarker    = 0x05
	amf3StringMarker    = 0x06
	amf3XMLDocMarker    = 0x07
	amf3DateMarker      = 0x08
	amf3ArrayMarker     = 0x09
	amf3ObjectMarker    = 0x0A
	amf3XMLMarker       = 0x0B
	amf3ByteArrayMarker = 0x0C
)

// AMF3 trait header shapes. The low bits of an object header U29
// select between references and inline traits; the static attribute
// count occupies the bits above them.
const (
	traitReference      = 0x01 // xx01: class definition reference
	traitExternalizable = 0x07 // 0111: body is client-serialized
	traitStatic         = 0x03 // 0011: static attributes only
	traitDynamic        = 0x0B // 1011: static plus dynamic key/value pairs
)

// Signed 29-bit integer window. AMF3 integers outside this range go to
// the wire as doubles.
const (
	MinInt29 = -0x10000000
	MaxInt29 = 0x0FFFFFFF
)

// maxStaticAttrs bounds the attribute count encodable in the upper 24
// bits of a trait header.
const maxStaticAttrs = 1 << 24

// Reference index ceilings: U29 headers spend their low bit on the
// inline flag, AMF0 references are bare u16 indices.
const (
	maxAMF3RefIndex = 1<<28 - 1
	maxAMF0RefIndex = 1<<16 - 1
)

// Well-known wrapper class aliases.
const (
	arrayCollectionAlias = "flex.messaging.io.ArrayCollection"
	objectProxyAlias     = "flex.messaging.io.ObjectProxy"
)
