package codec

import "reflect"

// Persistable is a user record that writes itself field by field and reads
// the same fields back in the same order.
type Persistable interface {
	WriteExternal(out ObjectOutput)
	ReadExternal(in ObjectInput) error
}

// isNilRecord reports whether p is nil or a typed nil such as (*T)(nil)
func isNilRecord(p Persistable) bool {
	if p == nil {
		return true
	}
	switch v := reflect.ValueOf(p); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Factory returns a new, empty record of one concrete type
type Factory func() Persistable

// PersistableCodec binds the object streams to records registered by key
type PersistableCodec struct {
	registry *Registry
}

// NewPersistableCodec creates a codec that resolves record types through r
func NewPersistableCodec(r *Registry) *PersistableCodec {
	return &PersistableCodec{registry: r}
}

// Registry returns the registry used to resolve record types
func (c *PersistableCodec) Registry() *Registry {
	return c.registry
}

func (c *PersistableCodec) Flag() Flag { return FlagPersistable }

func (c *PersistableCodec) Matches(f Flag) bool { return f == FlagPersistable }

// BytesLength returns the smallest possible record: marker plus version
func (c *PersistableCodec) BytesLength() int { return 1 + IntCodec{}.BytesLength() }

// Serialize encodes p with a fresh output stream
func (c *PersistableCodec) Serialize(p Persistable) ([]byte, error) {
	if isNilRecord(p) {
		return nil, ErrNilRecord
	}
	return NewObjectOutput().Serialize(p), nil
}

// Deserialize builds the record registered under key and fills it from b.
// The record is only returned when every field was read successfully.
func (c *PersistableCodec) Deserialize(key string, b []byte) (Persistable, error) {
	factory, err := c.registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	p := factory()
	if isNilRecord(p) {
		return nil, ErrNilRecord
	}
	if err := NewObjectInput(b).Deserialize(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Clone returns a deep copy of p by sending it through the wire format
func (c *PersistableCodec) Clone(key string, p Persistable) (Persistable, error) {
	b, err := c.Serialize(p)
	if err != nil {
		return nil, err
	}
	return c.Deserialize(key, b)
}
