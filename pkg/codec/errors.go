package codec

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrTypeMismatch       = errors.New("codec: type mismatch")
	ErrOutOfBounds        = errors.New("codec: out of bounds")
	ErrMalformed          = errors.New("codec: malformed payload")
	ErrUnsupportedVersion = errors.New("codec: unsupported format version")
	ErrNotRegistered      = errors.New("codec: persistable not registered")
	ErrAlreadyRegistered  = errors.New("codec: persistable already registered")
	ErrNilRecord          = errors.New("codec: nil persistable")
)

// MismatchError reports a flag that does not match the kind being decoded.
// Field is the 1-based field index inside a record, 0 for the record header
// and -1 for standalone blobs.
type MismatchError struct {
	Field    int
	Offset   int
	Expected Flag
	Actual   Flag
}

func (e *MismatchError) Error() string {
	switch {
	case e.Field < 0:
		return fmt.Sprintf("codec: type mismatch at offset %d: %d expected, %d found",
			e.Offset, int8(e.Expected), int8(e.Actual))
	case e.Field == 0:
		return fmt.Sprintf("codec: type mismatch in record header at offset %d: %d expected, %d found",
			e.Offset, int8(e.Expected), int8(e.Actual))
	default:
		return fmt.Sprintf("codec: type mismatch in field %d at offset %d: %d (%s) expected, %d (%s) found",
			e.Field, e.Offset, int8(e.Expected), e.Expected, int8(e.Actual), e.Actual)
	}
}

// Unwrap makes errors.Is(err, ErrTypeMismatch) hold
func (e *MismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// BoundsError reports a read that needs more bytes than the blob holds, or a
// record whose reader stopped before the end of the blob (Trailing).
type BoundsError struct {
	Field     int
	Offset    int
	Required  int
	Available int
	Trailing  bool
}

func (e *BoundsError) Error() string {
	if e.Trailing {
		return fmt.Sprintf("codec: %d unread bytes after field %d at offset %d", e.Available, e.Field, e.Offset)
	}
	if e.Field < 0 {
		return fmt.Sprintf("codec: out of bounds at offset %d: %d bytes required, %d available",
			e.Offset, e.Required, e.Available)
	}
	return fmt.Sprintf("codec: out of bounds in field %d at offset %d: %d bytes required, %d available",
		e.Field, e.Offset, e.Required, e.Available)
}

// Unwrap makes errors.Is(err, ErrOutOfBounds) hold
func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
