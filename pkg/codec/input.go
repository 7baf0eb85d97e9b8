package codec

import (
	"errors"
	"fmt"
)

// ObjectInput replays the fields of a Persistable in the order they were
// written. Every read validates the flag at the cursor before decoding.
type ObjectInput interface {
	ReadBool() (bool, error)
	ReadInt8() (int8, error)
	ReadInt16() (int16, error)
	ReadChar() (uint16, error)
	ReadInt32() (int32, error)
	ReadInt64() (int64, error)
	ReadFloat32() (float32, error)
	ReadFloat64() (float64, error)
	// ReadString returns "" for a nil string
	ReadString() (string, error)
	// ReadStringPtr returns nil for a nil string
	ReadStringPtr() (*string, error)
	// ReadBytes returns nil for nil and an empty slice for empty
	ReadBytes() ([]byte, error)
	// ReadStringSet returns nil for a nil set
	ReadStringSet() (StringSet, error)
	// ReadPersistable fills p from a nested record and reports false when
	// the record was written as nil
	ReadPersistable(p Persistable) (bool, error)
}

var _ ObjectInput = (*BinaryObjectInput)(nil)

// BinaryObjectInput reads tagged fields from one blob with a forward-only
// cursor. It is single use: create one per blob.
type BinaryObjectInput struct {
	buf     []byte
	offset  int
	field   int
	version int32
}

// NewObjectInput creates an input stream over b
func NewObjectInput(b []byte) *BinaryObjectInput {
	return &BinaryObjectInput{buf: b}
}

// Deserialize checks the record marker and version, lets p read its fields
// and verifies that the whole blob was consumed.
func (in *BinaryObjectInput) Deserialize(p Persistable) error {
	if isNilRecord(p) {
		return ErrNilRecord
	}
	version, err := in.readHeader()
	if err != nil {
		return err
	}
	in.version = version
	if err := p.ReadExternal(in); err != nil {
		return err
	}
	if rest := len(in.buf) - in.offset; rest > 0 {
		return &BoundsError{Field: in.field, Offset: in.offset, Available: rest, Trailing: true}
	}
	return nil
}

// Version returns the format version read from the record header
func (in *BinaryObjectInput) Version() int32 {
	return in.version
}

// Offset returns the cursor position
func (in *BinaryObjectInput) Offset() int {
	return in.offset
}

func (in *BinaryObjectInput) require(n int) error {
	if available := len(in.buf) - in.offset; available < n {
		return &BoundsError{Field: in.field, Offset: in.offset, Required: n, Available: available}
	}
	return nil
}

func (in *BinaryObjectInput) peek() Flag {
	return Flag(int8(in.buf[in.offset]))
}

func (in *BinaryObjectInput) mismatch(expected, actual Flag) error {
	return &MismatchError{Field: in.field, Offset: in.offset, Expected: expected, Actual: actual}
}

// annotate stamps the current field onto errors coming from a codec
func (in *BinaryObjectInput) annotate(err error) error {
	var mismatch *MismatchError
	if errors.As(err, &mismatch) {
		mismatch.Field = in.field
		return mismatch
	}
	var bounds *BoundsError
	if errors.As(err, &bounds) {
		bounds.Field = in.field
		return bounds
	}
	return fmt.Errorf("field %d: %w", in.field, err)
}

// readHeader consumes [-11][version]. A header is never counted as a field.
func (in *BinaryObjectInput) readHeader() (int32, error) {
	if err := in.require(1); err != nil {
		return 0, err
	}
	if f := in.peek(); f != FlagPersistable {
		return 0, in.mismatch(FlagPersistable, f)
	}
	in.offset++
	version, err := readFixed[int32](in, IntCodec{})
	if err != nil {
		return 0, err
	}
	if version < 0 || version > FormatVersion {
		return 0, fmt.Errorf("%w: %d, newest known is %d", ErrUnsupportedVersion, version, FormatVersion)
	}
	return version, nil
}

func readFixed[T any](in *BinaryObjectInput, c PrimitiveCodec[T]) (T, error) {
	var zero T
	width := c.BytesLength()
	if err := in.require(width); err != nil {
		return zero, err
	}
	if f := in.peek(); !c.Matches(f) {
		return zero, in.mismatch(c.Flag(), f)
	}
	v, err := c.Deserialize(in.buf, in.offset, width-1)
	if err != nil {
		return zero, in.annotate(err)
	}
	in.offset += width
	return v, nil
}

// readLength reads the Int length field of a variable-size value and reports
// whether the value is nil
func (in *BinaryObjectInput) readLength() (int, bool, error) {
	n, err := readFixed[int32](in, IntCodec{})
	if err != nil {
		return 0, false, err
	}
	if n == nullLength {
		return 0, true, nil
	}
	if n < 0 {
		return 0, false, in.annotate(malformed("negative length %d at offset %d", n, in.offset-intWidth-1))
	}
	return int(n), false, nil
}

func readVariable[T any](in *BinaryObjectInput, c PrimitiveCodec[T]) (T, bool, error) {
	var zero T
	n, isNil, err := in.readLength()
	if err != nil || isNil {
		return zero, isNil, err
	}
	if err := in.require(1 + n); err != nil {
		return zero, false, err
	}
	if f := in.peek(); !c.Matches(f) {
		return zero, false, in.mismatch(c.Flag(), f)
	}
	v, err := c.Deserialize(in.buf, in.offset, n)
	if err != nil {
		return zero, false, in.annotate(err)
	}
	in.offset += 1 + n
	return v, false, nil
}

func (in *BinaryObjectInput) ReadBool() (bool, error) {
	in.field++
	return readFixed[bool](in, BooleanCodec{})
}

func (in *BinaryObjectInput) ReadInt8() (int8, error) {
	in.field++
	return readFixed[int8](in, ByteCodec{})
}

func (in *BinaryObjectInput) ReadInt16() (int16, error) {
	in.field++
	return readFixed[int16](in, ShortCodec{})
}

func (in *BinaryObjectInput) ReadChar() (uint16, error) {
	in.field++
	return readFixed[uint16](in, CharCodec{})
}

func (in *BinaryObjectInput) ReadInt32() (int32, error) {
	in.field++
	return readFixed[int32](in, IntCodec{})
}

func (in *BinaryObjectInput) ReadInt64() (int64, error) {
	in.field++
	return readFixed[int64](in, LongCodec{})
}

func (in *BinaryObjectInput) ReadFloat32() (float32, error) {
	in.field++
	return readFixed[float32](in, FloatCodec{})
}

func (in *BinaryObjectInput) ReadFloat64() (float64, error) {
	in.field++
	return readFixed[float64](in, DoubleCodec{})
}

func (in *BinaryObjectInput) ReadString() (string, error) {
	in.field++
	v, _, err := readVariable[string](in, StringCodec{})
	return v, err
}

func (in *BinaryObjectInput) ReadStringPtr() (*string, error) {
	in.field++
	v, isNil, err := readVariable[string](in, StringCodec{})
	if err != nil || isNil {
		return nil, err
	}
	return &v, nil
}

func (in *BinaryObjectInput) ReadBytes() ([]byte, error) {
	in.field++
	v, _, err := readVariable[[]byte](in, ByteArrayCodec{})
	return v, err
}

func (in *BinaryObjectInput) ReadStringSet() (StringSet, error) {
	in.field++
	v, _, err := readVariable[StringSet](in, StringSetCodec{})
	return v, err
}

func (in *BinaryObjectInput) ReadPersistable(p Persistable) (bool, error) {
	in.field++
	if err := in.require(1); err != nil {
		return false, err
	}
	switch f := in.peek(); f {
	case FlagInt:
		if _, isNil, err := in.readLength(); err != nil {
			return false, err
		} else if !isNil {
			return false, in.annotate(malformed("nested record written as a length"))
		}
		return false, nil
	case FlagPersistable:
		if isNilRecord(p) {
			return false, in.annotate(ErrNilRecord)
		}
		if _, err := in.readHeader(); err != nil {
			return false, err
		}
		if err := p.ReadExternal(in); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, in.mismatch(FlagPersistable, f)
	}
}
