package prefs

import (
	"context"
	"sync"
)

// fetchStrategy decides when stored values enter the cache
type fetchStrategy interface {
	// wait blocks until the strategy can serve reads
	wait(ctx context.Context) error
	// get returns the cached form of key; callers hold the read lock
	get(key string) (any, bool, error)
	// keys lists every stored key; callers hold the read lock
	keys() ([]string, error)
	// committed records the outcome of a local commit; callers hold the
	// write lock
	committed(key string, value any, removed bool)
	// invalidate drops what the cache knows about key after a change made
	// by another process; it takes the write lock so a read that loaded
	// the old value can not cache it afterwards
	invalidate(key string, removed bool)
}

// lazyStrategy reads a key from storage the first time it is requested
type lazyStrategy struct {
	p *Preferences
}

func (s *lazyStrategy) wait(context.Context) error { return nil }

func (s *lazyStrategy) get(key string) (any, bool, error) {
	if v, ok := s.p.cache.Get(key); ok {
		s.p.metrics.RecordRead(s.p.name, true)
		return v, true, nil
	}
	s.p.metrics.RecordRead(s.p.name, false)

	v, ok, err := s.p.load(key)
	if err != nil || !ok {
		return nil, false, err
	}
	s.p.cache.Put(key, v)
	return v, true, nil
}

func (s *lazyStrategy) keys() ([]string, error) {
	return s.p.storedKeys()
}

func (s *lazyStrategy) committed(key string, value any, removed bool) {
	if removed {
		s.p.cache.Remove(key)
		return
	}
	s.p.cache.Put(key, value)
}

func (s *lazyStrategy) invalidate(key string, _ bool) {
	s.p.locks.Write.Lock()
	defer s.p.locks.Write.Unlock()
	s.p.cache.Remove(key)
}

// eagerStrategy decodes every stored value once, in the background, when
// the store opens. Reads wait for that to finish. Values that fail to
// decode are remembered so reads of those keys report the failure.
type eagerStrategy struct {
	p      *Preferences
	done   chan struct{}
	err    error
	failed map[string]error
	mutex  sync.Mutex
}

func newEagerStrategy(p *Preferences) *eagerStrategy {
	s := &eagerStrategy{
		p:      p,
		done:   make(chan struct{}),
		failed: make(map[string]error),
	}
	go s.loadAll()
	return s
}

func (s *eagerStrategy) loadAll() {
	defer close(s.done)

	s.p.locks.Read.Lock()
	defer s.p.locks.Read.Unlock()

	keys, err := s.p.storedKeys()
	if err != nil {
		s.err = err
		s.p.logger.WithError(err).Error("failed to list stored values")
		return
	}
	for _, key := range keys {
		s.reload(key)
	}
	s.p.logger.WithField("keys", len(keys)).Debug("preferences loaded")
}

// reload replaces the cached value of key with what storage holds
func (s *eagerStrategy) reload(key string) {
	v, ok, err := s.p.load(key)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch {
	case err != nil:
		s.failed[key] = err
		s.p.cache.Remove(key)
		s.p.logger.WithError(err).WithField("key", key).Warn("failed to load value")
	case !ok:
		delete(s.failed, key)
		s.p.cache.Remove(key)
	default:
		delete(s.failed, key)
		s.p.cache.Put(key, v)
	}
}

func (s *eagerStrategy) wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *eagerStrategy) get(key string) (any, bool, error) {
	s.mutex.Lock()
	err := s.failed[key]
	s.mutex.Unlock()
	if err != nil {
		return nil, false, err
	}

	v, ok := s.p.cache.Get(key)
	s.p.metrics.RecordRead(s.p.name, ok)
	return v, ok, nil
}

func (s *eagerStrategy) keys() ([]string, error) {
	keys := s.p.cache.Keys()

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for key := range s.failed {
		keys = append(keys, key)
	}
	return sortedUnique(keys), nil
}

func (s *eagerStrategy) committed(key string, value any, removed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.failed, key)
	if removed {
		s.p.cache.Remove(key)
		return
	}
	s.p.cache.Put(key, value)
}

func (s *eagerStrategy) invalidate(key string, _ bool) {
	if s.wait(context.Background()) != nil {
		return
	}
	s.p.locks.Write.Lock()
	defer s.p.locks.Write.Unlock()
	s.reload(key)
}
