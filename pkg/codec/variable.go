package codec

import (
	"encoding/binary"
	"maps"
	"slices"
)

var (
	_ PrimitiveCodec[string]    = StringCodec{}
	_ PrimitiveCodec[[]byte]    = ByteArrayCodec{}
	_ PrimitiveCodec[StringSet] = StringSetCodec{}
)

// StringCodec encodes a string as [-2][utf8]. The payload has no terminator
// and no length; callers carry the length themselves.
type StringCodec struct{}

func (StringCodec) Flag() Flag { return FlagString }

func (StringCodec) Serialize(v string) []byte {
	b := make([]byte, 1+len(v))
	b[0] = FlagString.Byte()
	copy(b[1:], v)
	return b
}

func (StringCodec) Deserialize(b []byte, offset, length int) (string, error) {
	if err := checkVariable(b, offset, length, FlagString); err != nil {
		return "", err
	}
	return string(b[offset+1 : offset+1+length]), nil
}

func (c StringCodec) Decode(b []byte) (string, error) { return c.Deserialize(b, 0, len(b)-1) }

func (StringCodec) Matches(f Flag) bool { return f == FlagString }

func (StringCodec) BytesLength() int { return 1 }

// ByteArrayCodec encodes raw bytes as [-12][bytes]
type ByteArrayCodec struct{}

func (ByteArrayCodec) Flag() Flag { return FlagByteArray }

func (ByteArrayCodec) Serialize(v []byte) []byte {
	b := make([]byte, 1+len(v))
	b[0] = FlagByteArray.Byte()
	copy(b[1:], v)
	return b
}

// Deserialize returns a copy of the payload, never a slice of b
func (ByteArrayCodec) Deserialize(b []byte, offset, length int) ([]byte, error) {
	if err := checkVariable(b, offset, length, FlagByteArray); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, b[offset+1:offset+1+length])
	return out, nil
}

func (c ByteArrayCodec) Decode(b []byte) ([]byte, error) { return c.Deserialize(b, 0, len(b)-1) }

func (ByteArrayCodec) Matches(f Flag) bool { return f == FlagByteArray }

func (ByteArrayCodec) BytesLength() int { return 1 }

// StringSet is an unordered set of strings
type StringSet map[string]struct{}

// NewStringSet returns a set holding items
func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts v
func (s StringSet) Add(v string) { s[v] = struct{}{} }

// Contains reports whether v is in the set
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of elements
func (s StringSet) Len() int { return len(s) }

// Sorted returns the elements in ascending order
func (s StringSet) Sorted() []string {
	var keys []string
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Equal reports whether both sets hold the same elements
func (s StringSet) Equal(other StringSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy, nil stays nil
func (s StringSet) Clone() StringSet {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// StringSetCodec encodes a set as [-1] followed by one [len(4)][utf8] group
// per element. There is no element count; the decoder reads to the end of
// the payload. Elements are written in sorted order so equal sets produce
// equal blobs.
type StringSetCodec struct{}

func (StringSetCodec) Flag() Flag { return FlagStringSet }

func (StringSetCodec) Serialize(v StringSet) []byte {
	size := 1
	for item := range v {
		size += intWidth + len(item)
	}
	b := make([]byte, size)
	b[0] = FlagStringSet.Byte()
	pos := 1
	for _, item := range v.Sorted() {
		binary.BigEndian.PutUint32(b[pos:], uint32(len(item)))
		pos += intWidth
		pos += copy(b[pos:], item)
	}
	return b
}

func (StringSetCodec) Deserialize(b []byte, offset, length int) (StringSet, error) {
	if err := checkVariable(b, offset, length, FlagStringSet); err != nil {
		return nil, err
	}
	set := make(StringSet)
	pos := offset + 1
	end := pos + length
	for pos < end {
		if end-pos < intWidth {
			return nil, &BoundsError{Field: -1, Offset: pos, Required: intWidth, Available: end - pos}
		}
		n := int(int32(binary.BigEndian.Uint32(b[pos:])))
		pos += intWidth
		if n < 0 {
			return nil, malformed("negative string-set element length %d at offset %d", n, pos-intWidth)
		}
		if n > end-pos {
			return nil, &BoundsError{Field: -1, Offset: pos, Required: n, Available: end - pos}
		}
		set.Add(string(b[pos : pos+n]))
		pos += n
	}
	return set, nil
}

func (c StringSetCodec) Decode(b []byte) (StringSet, error) { return c.Deserialize(b, 0, len(b)-1) }

func (StringSetCodec) Matches(f Flag) bool { return f == FlagStringSet }

func (StringSetCodec) BytesLength() int { return 1 }
