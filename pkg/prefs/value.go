package prefs

import (
	"fmt"

	"github.com/yandextaxitech/binaryprefs/pkg/codec"
)

// record is a serialized Persistable. Records stay serialized in the cache
// and are decoded on every read, so callers always get their own instance.
type record []byte

// decodeBlob turns a stored blob into its cached form
func decodeBlob(b []byte) (any, error) {
	flag, err := codec.FlagOf(b, 0)
	if err != nil {
		return nil, err
	}
	if flag == codec.FlagPersistable {
		if len(b) < (&codec.PersistableCodec{}).BytesLength() {
			return nil, fmt.Errorf("%w: record of %d bytes", codec.ErrOutOfBounds, len(b))
		}
		return record(clone(b)), nil
	}
	return codec.DecodeValue(b)
}

// encodeValue turns a cached value back into its stored blob
func encodeValue(v any) ([]byte, error) {
	if r, ok := v.(record); ok {
		return clone(r), nil
	}
	return codec.EncodeValue(v)
}

// kindOf returns the flag of a cached value
func kindOf(v any) codec.Flag {
	if _, ok := v.(record); ok {
		return codec.FlagPersistable
	}
	flag, err := codec.FlagFor(v)
	if err != nil {
		return 0
	}
	return flag
}

// copyValue protects cached slices and sets from callers
func copyValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return clone(t)
	case codec.StringSet:
		return t.Clone()
	default:
		return v
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
