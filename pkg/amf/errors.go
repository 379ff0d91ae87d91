package amf

import (
	"errors"
	"fmt"

	"github.com/limscoder/amfast/pkg/amf/buf"
)

var (
	// I/O errors
	ErrUnderflow  = buf.ErrUnderflow
	ErrOutOfRange = buf.ErrOutOfRange

	// Wire format errors
	ErrUnknownMarker    = errors.New("amf: unknown type marker")
	ErrBadUTF8          = errors.New("amf: invalid utf-8 in string")
	ErrBadClientVersion = errors.New("amf: unsupported packet client version")

	// Class definition errors
	ErrBadTrait      = errors.New("amf: trait does not match class definition")
	ErrUnmappedAlias = errors.New("amf: no class definition for alias")
	ErrBadKey        = errors.New("amf: object key is not a string")
)

// DecodeError reports where in the input a decode failed. Offset is
// the cursor position at the start of the failed value and Marker is
// its type marker when one had been read.
type DecodeError struct {
	Offset uint32
	Marker byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("amf: decode failed at offset %d (marker 0x%02X): %v", e.Offset, e.Marker, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// decodeErr wraps err with positional context unless it already
// carries some from a deeper value.
func decodeErr(offset uint32, marker byte, err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Offset: offset, Marker: marker, Err: err}
}
