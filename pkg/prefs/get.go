package prefs

import (
	"context"
	"fmt"
	"slices"

	"github.com/yandextaxitech/binaryprefs/pkg/codec"
)

// getAs returns the value of key as T, def when the key is missing
func getAs[T any](p *Preferences, key string, def T) (T, error) {
	v, ok, err := p.lookup(key)
	if err != nil || !ok {
		return def, err
	}
	t, ok := v.(T)
	if !ok {
		var want T
		return def, fmt.Errorf("%w: %q holds %s, not %s", ErrTypeMismatch, key, kindOf(v), kindName(want))
	}
	return t, nil
}

func kindName(v any) string {
	if _, ok := v.(codec.Persistable); ok {
		return codec.FlagPersistable.String()
	}
	flag, err := codec.FlagFor(v)
	if err != nil {
		return fmt.Sprintf("%T", v)
	}
	return flag.String()
}

func (p *Preferences) GetBool(key string, def bool) (bool, error) { return getAs(p, key, def) }

func (p *Preferences) GetInt8(key string, def int8) (int8, error) { return getAs(p, key, def) }

func (p *Preferences) GetInt16(key string, def int16) (int16, error) { return getAs(p, key, def) }

func (p *Preferences) GetChar(key string, def uint16) (uint16, error) { return getAs(p, key, def) }

func (p *Preferences) GetInt32(key string, def int32) (int32, error) { return getAs(p, key, def) }

func (p *Preferences) GetInt64(key string, def int64) (int64, error) { return getAs(p, key, def) }

func (p *Preferences) GetFloat32(key string, def float32) (float32, error) { return getAs(p, key, def) }

func (p *Preferences) GetFloat64(key string, def float64) (float64, error) { return getAs(p, key, def) }

func (p *Preferences) GetString(key string, def string) (string, error) { return getAs(p, key, def) }

// GetBytes returns a copy of the stored bytes
func (p *Preferences) GetBytes(key string, def []byte) ([]byte, error) {
	v, err := getAs(p, key, def)
	if err != nil {
		return def, err
	}
	return clone(v), nil
}

// GetStringSet returns a copy of the stored set
func (p *Preferences) GetStringSet(key string, def codec.StringSet) (codec.StringSet, error) {
	v, err := getAs(p, key, def)
	if err != nil {
		return def, err
	}
	return v.Clone(), nil
}

// GetPersistable decodes the record stored under key with the factory
// registered for key. Every call returns a new instance.
func (p *Preferences) GetPersistable(key string, def codec.Persistable) (codec.Persistable, error) {
	v, ok, err := p.lookup(key)
	if err != nil || !ok {
		return def, err
	}
	r, ok := v.(record)
	if !ok {
		return def, fmt.Errorf("%w: %q holds %s, not %s", ErrTypeMismatch, key, kindOf(v), codec.FlagPersistable)
	}
	rec, err := p.codec.Deserialize(key, r)
	if err != nil {
		p.metrics.RecordDecodeError(p.name)
		return def, fmt.Errorf("prefs: decode %q: %w", key, err)
	}
	return rec, nil
}

// Get returns the value of key in its Go form. Records are decoded through
// the registry.
func (p *Preferences) Get(key string) (any, bool, error) {
	v, ok, err := p.lookup(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if r, isRecord := v.(record); isRecord {
		rec, err := p.codec.Deserialize(key, r)
		if err != nil {
			return nil, true, fmt.Errorf("prefs: decode %q: %w", key, err)
		}
		return rec, true, nil
	}
	return copyValue(v), true, nil
}

// GetRaw returns the serialized, unencrypted blob of key and its kind
func (p *Preferences) GetRaw(key string) ([]byte, codec.Flag, bool, error) {
	v, ok, err := p.lookup(key)
	if err != nil || !ok {
		return nil, 0, ok, err
	}
	blob, err := encodeValue(v)
	if err != nil {
		return nil, 0, true, err
	}
	return blob, kindOf(v), true, nil
}

// Kind returns the flag of the value stored under key
func (p *Preferences) Kind(key string) (codec.Flag, bool, error) {
	v, ok, err := p.lookup(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	return kindOf(v), true, nil
}

// Contains reports whether key holds a value
func (p *Preferences) Contains(key string) (bool, error) {
	_, ok, err := p.lookup(key)
	return ok, err
}

// Keys returns every stored key in sorted order
func (p *Preferences) Keys() ([]string, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	if err := p.strategy.wait(context.Background()); err != nil {
		return nil, err
	}

	p.locks.Read.Lock()
	defer p.locks.Read.Unlock()
	return p.strategy.keys()
}

// GetAll returns every stored value in its Go form
func (p *Preferences) GetAll() (map[string]any, error) {
	keys, err := p.Keys()
	if err != nil {
		return nil, err
	}
	all := make(map[string]any, len(keys))
	for _, key := range keys {
		v, ok, err := p.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			all[key] = v
		}
	}
	return all, nil
}

func sortedUnique(keys []string) []string {
	slices.Sort(keys)
	return slices.Compact(keys)
}
