package codec

import (
	"encoding/binary"
	"math"
)

// PrimitiveCodec converts between a Go value and its tagged blob
type PrimitiveCodec[T any] interface {
	// Flag returns the flag this codec writes and accepts
	Flag() Flag
	// Serialize returns [flag][payload]
	Serialize(v T) []byte
	// Deserialize decodes length payload bytes that follow the flag at b[offset]
	Deserialize(b []byte, offset, length int) (T, error)
	// Decode decodes a standalone blob, payload length is len(b) - 1
	Decode(b []byte) (T, error)
	// Matches reports whether f is this codec's flag
	Matches(f Flag) bool
	// BytesLength returns flag + payload width for fixed kinds, 1 otherwise
	BytesLength() int
}

var (
	_ PrimitiveCodec[bool]    = BooleanCodec{}
	_ PrimitiveCodec[int8]    = ByteCodec{}
	_ PrimitiveCodec[int16]   = ShortCodec{}
	_ PrimitiveCodec[uint16]  = CharCodec{}
	_ PrimitiveCodec[int32]   = IntCodec{}
	_ PrimitiveCodec[int64]   = LongCodec{}
	_ PrimitiveCodec[float32] = FloatCodec{}
	_ PrimitiveCodec[float64] = DoubleCodec{}
)

// checkFlag validates that b[offset] exists and holds want
func checkFlag(b []byte, offset int, want Flag) error {
	actual, err := FlagOf(b, offset)
	if err != nil {
		return err
	}
	if actual != want {
		return &MismatchError{Field: -1, Offset: offset, Expected: want, Actual: actual}
	}
	return nil
}

// checkFixed validates the flag and that exactly width payload bytes are
// declared and present after it
func checkFixed(b []byte, offset, length int, want Flag, width int) error {
	if err := checkFlag(b, offset, want); err != nil {
		return err
	}
	available := len(b) - offset - 1
	if length < width || available < width {
		return &BoundsError{Field: -1, Offset: offset + 1, Required: width, Available: min(length, available)}
	}
	if length > width {
		return malformed("%s payload is %d bytes, expected %d", want, length, width)
	}
	return nil
}

// checkVariable validates the flag and that length payload bytes follow it
func checkVariable(b []byte, offset, length int, want Flag) error {
	if err := checkFlag(b, offset, want); err != nil {
		return err
	}
	if length < 0 {
		return malformed("negative %s length %d", want, length)
	}
	if available := len(b) - offset - 1; length > available {
		return &BoundsError{Field: -1, Offset: offset + 1, Required: length, Available: available}
	}
	return nil
}

func tagged(f Flag, width int) []byte {
	b := make([]byte, 1+width)
	b[0] = f.Byte()
	return b
}

// BooleanCodec encodes bool as [-7][0|1]
type BooleanCodec struct{}

func (BooleanCodec) Flag() Flag { return FlagBoolean }

func (BooleanCodec) Serialize(v bool) []byte {
	b := tagged(FlagBoolean, booleanWidth)
	if v {
		b[1] = 1
	}
	return b
}

func (BooleanCodec) Deserialize(b []byte, offset, length int) (bool, error) {
	if err := checkFixed(b, offset, length, FlagBoolean, booleanWidth); err != nil {
		return false, err
	}
	switch b[offset+1] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, malformed("boolean payload %d at offset %d", b[offset+1], offset+1)
	}
}

func (c BooleanCodec) Decode(b []byte) (bool, error) { return c.Deserialize(b, 0, len(b)-1) }

func (BooleanCodec) Matches(f Flag) bool { return f == FlagBoolean }

func (BooleanCodec) BytesLength() int { return 1 + booleanWidth }

// ByteCodec encodes int8 as [-8][b]
type ByteCodec struct{}

func (ByteCodec) Flag() Flag { return FlagByte }

func (ByteCodec) Serialize(v int8) []byte {
	b := tagged(FlagByte, byteWidth)
	b[1] = byte(v)
	return b
}

func (ByteCodec) Deserialize(b []byte, offset, length int) (int8, error) {
	if err := checkFixed(b, offset, length, FlagByte, byteWidth); err != nil {
		return 0, err
	}
	return int8(b[offset+1]), nil
}

func (c ByteCodec) Decode(b []byte) (int8, error) { return c.Deserialize(b, 0, len(b)-1) }

func (ByteCodec) Matches(f Flag) bool { return f == FlagByte }

func (ByteCodec) BytesLength() int { return 1 + byteWidth }

// ShortCodec encodes int16 as [-9][2 bytes BE]
type ShortCodec struct{}

func (ShortCodec) Flag() Flag { return FlagShort }

func (ShortCodec) Serialize(v int16) []byte {
	b := tagged(FlagShort, shortWidth)
	binary.BigEndian.PutUint16(b[1:], uint16(v))
	return b
}

func (ShortCodec) Deserialize(b []byte, offset, length int) (int16, error) {
	if err := checkFixed(b, offset, length, FlagShort, shortWidth); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b[offset+1:])), nil
}

func (c ShortCodec) Decode(b []byte) (int16, error) { return c.Deserialize(b, 0, len(b)-1) }

func (ShortCodec) Matches(f Flag) bool { return f == FlagShort }

func (ShortCodec) BytesLength() int { return 1 + shortWidth }

// CharCodec encodes a UTF-16 code unit as [-10][2 bytes BE]
type CharCodec struct{}

func (CharCodec) Flag() Flag { return FlagChar }

func (CharCodec) Serialize(v uint16) []byte {
	b := tagged(FlagChar, charWidth)
	binary.BigEndian.PutUint16(b[1:], v)
	return b
}

func (CharCodec) Deserialize(b []byte, offset, length int) (uint16, error) {
	if err := checkFixed(b, offset, length, FlagChar, charWidth); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[offset+1:]), nil
}

func (c CharCodec) Decode(b []byte) (uint16, error) { return c.Deserialize(b, 0, len(b)-1) }

func (CharCodec) Matches(f Flag) bool { return f == FlagChar }

func (CharCodec) BytesLength() int { return 1 + charWidth }

// IntCodec encodes int32 as [-3][4 bytes BE]
type IntCodec struct{}

func (IntCodec) Flag() Flag { return FlagInt }

func (IntCodec) Serialize(v int32) []byte {
	b := tagged(FlagInt, intWidth)
	binary.BigEndian.PutUint32(b[1:], uint32(v))
	return b
}

func (IntCodec) Deserialize(b []byte, offset, length int) (int32, error) {
	if err := checkFixed(b, offset, length, FlagInt, intWidth); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[offset+1:])), nil
}

func (c IntCodec) Decode(b []byte) (int32, error) { return c.Deserialize(b, 0, len(b)-1) }

func (IntCodec) Matches(f Flag) bool { return f == FlagInt }

func (IntCodec) BytesLength() int { return 1 + intWidth }

// LongCodec encodes int64 as [-4][8 bytes BE]
type LongCodec struct{}

func (LongCodec) Flag() Flag { return FlagLong }

func (LongCodec) Serialize(v int64) []byte {
	b := tagged(FlagLong, longWidth)
	binary.BigEndian.PutUint64(b[1:], uint64(v))
	return b
}

func (LongCodec) Deserialize(b []byte, offset, length int) (int64, error) {
	if err := checkFixed(b, offset, length, FlagLong, longWidth); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[offset+1:])), nil
}

func (c LongCodec) Decode(b []byte) (int64, error) { return c.Deserialize(b, 0, len(b)-1) }

func (LongCodec) Matches(f Flag) bool { return f == FlagLong }

func (LongCodec) BytesLength() int { return 1 + longWidth }

// FloatCodec encodes float32 bits as [-6][4 bytes BE]
type FloatCodec struct{}

func (FloatCodec) Flag() Flag { return FlagFloat }

func (FloatCodec) Serialize(v float32) []byte {
	b := tagged(FlagFloat, floatWidth)
	binary.BigEndian.PutUint32(b[1:], math.Float32bits(v))
	return b
}

func (FloatCodec) Deserialize(b []byte, offset, length int) (float32, error) {
	if err := checkFixed(b, offset, length, FlagFloat, floatWidth); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b[offset+1:])), nil
}

func (c FloatCodec) Decode(b []byte) (float32, error) { return c.Deserialize(b, 0, len(b)-1) }

func (FloatCodec) Matches(f Flag) bool { return f == FlagFloat }

func (FloatCodec) BytesLength() int { return 1 + floatWidth }

// DoubleCodec encodes float64 bits as [-5][8 bytes BE]
type DoubleCodec struct{}

func (DoubleCodec) Flag() Flag { return FlagDouble }

func (DoubleCodec) Serialize(v float64) []byte {
	b := tagged(FlagDouble, doubleWidth)
	binary.BigEndian.PutUint64(b[1:], math.Float64bits(v))
	return b
}

func (DoubleCodec) Deserialize(b []byte, offset, length int) (float64, error) {
	if err := checkFixed(b, offset, length, FlagDouble, doubleWidth); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b[offset+1:])), nil
}

func (c DoubleCodec) Decode(b []byte) (float64, error) { return c.Deserialize(b, 0, len(b)-1) }

func (DoubleCodec) Matches(f Flag) bool { return f == FlagDouble }

func (DoubleCodec) BytesLength() int { return 1 + doubleWidth }
