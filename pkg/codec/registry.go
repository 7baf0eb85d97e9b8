package codec

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Registry maps string keys to record factories. Keys can be added but never
// replaced, so a blob can not silently change meaning after startup.
type Registry struct {
	factories map[string]Factory
	mutex     sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register binds key to factory. It fails if key is already bound.
func (r *Registry) Register(key string, factory Factory) error {
	if key == "" {
		return errors.New("codec: empty persistable key")
	}
	if factory == nil {
		return fmt.Errorf("codec: nil factory for %q", key)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, key)
	}
	r.factories[key] = factory
	return nil
}

// MustRegister is Register for static setup code; it panics on error
func (r *Registry) MustRegister(key string, factory Factory) {
	if err := r.Register(key, factory); err != nil {
		panic(err)
	}
}

// Resolve returns the factory bound to key
func (r *Registry) Resolve(key string) (Factory, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	factory, exists := r.factories[key]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, key)
	}
	return factory, nil
}

// Contains reports whether key is bound
func (r *Registry) Contains(key string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.factories[key]
	return exists
}

// Keys returns the registered keys in sorted order
func (r *Registry) Keys() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	keys := make([]string, 0, len(r.factories))
	for key := range r.factories {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
