package codec

import "fmt"

// Flag is the one-byte tag that opens every serialized value
type Flag int8

// Canonical flag registry. These values are part of the on-disk format.
const (
	FlagStringSet   Flag = -1
	FlagString      Flag = -2
	FlagInt         Flag = -3
	FlagLong        Flag = -4
	FlagDouble      Flag = -5
	FlagFloat       Flag = -6
	FlagBoolean     Flag = -7
	FlagByte        Flag = -8
	FlagShort       Flag = -9
	FlagChar        Flag = -10
	FlagPersistable Flag = -11
	FlagByteArray   Flag = -12
)

// FormatVersion is written right after the persistable marker of every
// record. Readers reject records with a newer version.
const FormatVersion int32 = 1

// Payload widths of the fixed-size kinds, excluding the flag
const (
	booleanWidth = 1
	byteWidth    = 1
	shortWidth   = 2
	charWidth    = 2
	intWidth     = 4
	longWidth    = 8
	floatWidth   = 4
	doubleWidth  = 8
)

// nullLength marks a nil string, byte array, string set or record
const nullLength = -1

var flagNames = map[Flag]string{
	FlagStringSet:   "string-set",
	FlagString:      "string",
	FlagInt:         "int",
	FlagLong:        "long",
	FlagDouble:      "double",
	FlagFloat:       "float",
	FlagBoolean:     "boolean",
	FlagByte:        "byte",
	FlagShort:       "short",
	FlagChar:        "char",
	FlagPersistable: "persistable",
	FlagByteArray:   "byte-array",
}

// String returns the kind name of the flag
func (f Flag) String() string {
	if name, ok := flagNames[f]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int8(f))
}

// ParseFlag returns the flag with the given kind name
func ParseFlag(name string) (Flag, error) {
	for f, n := range flagNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("codec: unknown kind %q", name)
}

// Known reports whether f is part of the registry
func (f Flag) Known() bool {
	_, ok := flagNames[f]
	return ok
}

// Byte returns the wire representation of the flag
func (f Flag) Byte() byte {
	return byte(f)
}

// FlagOf returns the flag stored at b[offset]
func FlagOf(b []byte, offset int) (Flag, error) {
	if offset < 0 || offset >= len(b) {
		return 0, &BoundsError{Field: -1, Offset: offset, Required: 1, Available: remaining(b, offset)}
	}
	return Flag(int8(b[offset])), nil
}

func remaining(b []byte, offset int) int {
	if offset < 0 || offset >= len(b) {
		return 0
	}
	return len(b) - offset
}
