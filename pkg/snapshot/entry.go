package snapshot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yandextaxitech/binaryprefs/pkg/codec"
)

// ErrInvalidEntry is returned for entries whose kind or text can not be parsed
var ErrInvalidEntry = errors.New("snapshot: invalid entry")

// Entry is one preference in text form. Value holds scalars, base64 for
// byte arrays and records; Values holds the sorted elements of a string set.
// NaN floats are written as their bit pattern, "NaN:0x7ff8000000000001", so
// the payload survives.
type Entry struct {
	Key    string   `json:"key" yaml:"key" msgpack:"key"`
	Kind   string   `json:"kind" yaml:"kind" msgpack:"kind"`
	Value  string   `json:"value,omitempty" yaml:"value,omitempty" msgpack:"value,omitempty"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty" msgpack:"values,omitempty"`
}

// NewEntry converts a serialized value into its text form
func NewEntry(key string, blob []byte) (Entry, error) {
	flag, err := codec.FlagOf(blob, 0)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Key: key, Kind: flag.String()}
	if flag == codec.FlagPersistable {
		e.Value = base64.StdEncoding.EncodeToString(blob)
		return e, nil
	}

	v, err := codec.DecodeValue(blob)
	if err != nil {
		return Entry{}, fmt.Errorf("snapshot: %q: %w", key, err)
	}
	switch t := v.(type) {
	case bool:
		e.Value = strconv.FormatBool(t)
	case int8:
		e.Value = strconv.FormatInt(int64(t), 10)
	case int16:
		e.Value = strconv.FormatInt(int64(t), 10)
	case uint16:
		e.Value = strconv.FormatUint(uint64(t), 10)
	case int32:
		e.Value = strconv.FormatInt(int64(t), 10)
	case int64:
		e.Value = strconv.FormatInt(t, 10)
	case float32:
		if math.IsNaN(float64(t)) {
			e.Value = fmt.Sprintf("%s0x%08x", nanPrefix, math.Float32bits(t))
		} else {
			e.Value = strconv.FormatFloat(float64(t), 'g', -1, 32)
		}
	case float64:
		if math.IsNaN(t) {
			e.Value = fmt.Sprintf("%s0x%016x", nanPrefix, math.Float64bits(t))
		} else {
			e.Value = strconv.FormatFloat(t, 'g', -1, 64)
		}
	case string:
		e.Value = t
	case []byte:
		e.Value = base64.StdEncoding.EncodeToString(t)
	case codec.StringSet:
		e.Values = t.Sorted()
	}
	return e, nil
}

// Blob serializes the entry back into the wire format
func (e Entry) Blob() ([]byte, error) {
	v, err := e.Decode()
	if err != nil {
		return nil, err
	}
	if raw, ok := v.(rawRecord); ok {
		return raw, nil
	}
	return codec.EncodeValue(v)
}

type rawRecord []byte

const nanPrefix = "NaN:"

// Decode parses the entry into the Go value of its kind. Records are
// returned as their serialized bytes.
func (e Entry) Decode() (any, error) {
	flag, err := codec.ParseFlag(e.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidEntry, e.Key, err)
	}
	v, err := parse(flag, e.Value, e.Values)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %s %q: %w", ErrInvalidEntry, e.Key, e.Kind, e.Value, err)
	}
	return v, nil
}

func parse(flag codec.Flag, text string, values []string) (any, error) {
	switch flag {
	case codec.FlagBoolean:
		return strconv.ParseBool(text)
	case codec.FlagByte:
		n, err := strconv.ParseInt(text, 10, 8)
		return int8(n), err
	case codec.FlagShort:
		n, err := strconv.ParseInt(text, 10, 16)
		return int16(n), err
	case codec.FlagChar:
		n, err := strconv.ParseUint(text, 10, 16)
		return uint16(n), err
	case codec.FlagInt:
		n, err := strconv.ParseInt(text, 10, 32)
		return int32(n), err
	case codec.FlagLong:
		return strconv.ParseInt(text, 10, 64)
	case codec.FlagFloat:
		if bits, ok := strings.CutPrefix(text, nanPrefix); ok {
			n, err := strconv.ParseUint(bits, 0, 32)
			if err == nil && !math.IsNaN(float64(math.Float32frombits(uint32(n)))) {
				err = fmt.Errorf("bit pattern is not a NaN")
			}
			return math.Float32frombits(uint32(n)), err
		}
		f, err := strconv.ParseFloat(text, 32)
		return float32(f), err
	case codec.FlagDouble:
		if bits, ok := strings.CutPrefix(text, nanPrefix); ok {
			n, err := strconv.ParseUint(bits, 0, 64)
			if err == nil && !math.IsNaN(math.Float64frombits(n)) {
				err = fmt.Errorf("bit pattern is not a NaN")
			}
			return math.Float64frombits(n), err
		}
		return strconv.ParseFloat(text, 64)
	case codec.FlagString:
		return text, nil
	case codec.FlagByteArray:
		return base64.StdEncoding.DecodeString(text)
	case codec.FlagStringSet:
		return codec.NewStringSet(values...), nil
	case codec.FlagPersistable:
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, err
		}
		if f, err := codec.FlagOf(b, 0); err != nil || f != codec.FlagPersistable {
			return nil, fmt.Errorf("not a serialized record")
		}
		return rawRecord(b), nil
	default:
		return nil, fmt.Errorf("unsupported kind")
	}
}
