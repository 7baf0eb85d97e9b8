package codec

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned by EncodeValue for Go types without a flag
var ErrUnsupportedType = errors.New("codec: unsupported value type")

// FlagFor returns the flag a value of v's type is encoded with
func FlagFor(v any) (Flag, error) {
	switch v.(type) {
	case bool:
		return FlagBoolean, nil
	case int8:
		return FlagByte, nil
	case int16:
		return FlagShort, nil
	case uint16:
		return FlagChar, nil
	case int32:
		return FlagInt, nil
	case int64:
		return FlagLong, nil
	case float32:
		return FlagFloat, nil
	case float64:
		return FlagDouble, nil
	case string:
		return FlagString, nil
	case []byte:
		return FlagByteArray, nil
	case StringSet:
		return FlagStringSet, nil
	case Persistable:
		return FlagPersistable, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// EncodeValue serializes any supported value into a standalone tagged blob
func EncodeValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case bool:
		return BooleanCodec{}.Serialize(t), nil
	case int8:
		return ByteCodec{}.Serialize(t), nil
	case int16:
		return ShortCodec{}.Serialize(t), nil
	case uint16:
		return CharCodec{}.Serialize(t), nil
	case int32:
		return IntCodec{}.Serialize(t), nil
	case int64:
		return LongCodec{}.Serialize(t), nil
	case float32:
		return FloatCodec{}.Serialize(t), nil
	case float64:
		return DoubleCodec{}.Serialize(t), nil
	case string:
		return StringCodec{}.Serialize(t), nil
	case []byte:
		return ByteArrayCodec{}.Serialize(t), nil
	case StringSet:
		return StringSetCodec{}.Serialize(t), nil
	case Persistable:
		if isNilRecord(t) {
			return nil, ErrNilRecord
		}
		return NewObjectOutput().Serialize(t), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

// DecodeValue decodes a standalone blob by its leading flag. Records can not
// be decoded here because the blob does not name its type; use
// PersistableCodec.Deserialize with the registry key instead.
func DecodeValue(b []byte) (any, error) {
	flag, err := FlagOf(b, 0)
	if err != nil {
		return nil, err
	}
	switch flag {
	case FlagBoolean:
		return BooleanCodec{}.Decode(b)
	case FlagByte:
		return ByteCodec{}.Decode(b)
	case FlagShort:
		return ShortCodec{}.Decode(b)
	case FlagChar:
		return CharCodec{}.Decode(b)
	case FlagInt:
		return IntCodec{}.Decode(b)
	case FlagLong:
		return LongCodec{}.Decode(b)
	case FlagFloat:
		return FloatCodec{}.Decode(b)
	case FlagDouble:
		return DoubleCodec{}.Decode(b)
	case FlagString:
		return StringCodec{}.Decode(b)
	case FlagByteArray:
		return ByteArrayCodec{}.Decode(b)
	case FlagStringSet:
		return StringSetCodec{}.Decode(b)
	case FlagPersistable:
		return nil, fmt.Errorf("%w: persistable blob needs a registry key", ErrTypeMismatch)
	default:
		return nil, malformed("unknown flag %d", int8(flag))
	}
}
