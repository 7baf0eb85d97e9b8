// Package prefs is a typed key/value preference store. Values are encoded
// with the codec package, optionally encrypted, and written one blob per key
// through a file.Adapter. Every handle on the same store name shares its
// locks, cache and change listeners when they come from the same factories.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/yandextaxitech/binaryprefs/pkg/cache"
	"github.com/yandextaxitech/binaryprefs/pkg/codec"
	"github.com/yandextaxitech/binaryprefs/pkg/encryption"
	"github.com/yandextaxitech/binaryprefs/pkg/events"
	"github.com/yandextaxitech/binaryprefs/pkg/file"
	"github.com/yandextaxitech/binaryprefs/pkg/lock"
)

// Config wires a store. Name and Adapter are required; everything else has
// a private default, which means it is not shared with other handles.
type Config struct {
	Name            string
	Adapter         file.Adapter
	Locks           lock.Locks
	Cache           *cache.Cache
	Bridge          events.Bridge
	Registry        *codec.Registry
	KeyEncryption   encryption.KeyEncryption
	ValueEncryption encryption.ValueEncryption
	// Eager loads and decodes every value when the store opens; otherwise
	// values are read on first access
	Eager   bool
	Logger  log.FieldLogger
	Metrics MetricsRecorder
}

// Preferences is a handle on one store
type Preferences struct {
	name     string
	adapter  file.Adapter
	locks    lock.Locks
	cache    *cache.Cache
	bridge   events.Bridge
	codec    *codec.PersistableCodec
	keyEnc   encryption.KeyEncryption
	valueEnc encryption.ValueEncryption
	logger   log.FieldLogger
	metrics  MetricsRecorder
	strategy fetchStrategy

	closers     []io.Closer
	unsubscribe func()
	pending     sync.WaitGroup
	pendingMu   sync.Mutex
	closed      atomic.Bool
	closeOnce   sync.Once
}

type nopProcessLock struct{}

func (nopProcessLock) Lock() error   { return nil }
func (nopProcessLock) Unlock() error { return nil }

// New opens a store from cfg
func New(cfg Config) (*Preferences, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("prefs: empty store name")
	}
	if cfg.Adapter == nil {
		return nil, ErrNoAdapter
	}
	if cfg.Locks.Write == nil || cfg.Locks.Read == nil {
		rw := &sync.RWMutex{}
		cfg.Locks.Write = rw
		cfg.Locks.Read = rw.RLocker()
	}
	if cfg.Locks.Process == nil {
		cfg.Locks.Process = nopProcessLock{}
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New()
	}
	if cfg.Bridge == nil {
		cfg.Bridge = events.NewLocalBridge()
	}
	if cfg.Registry == nil {
		cfg.Registry = codec.NewRegistry()
	}
	if cfg.KeyEncryption == nil {
		cfg.KeyEncryption = encryption.NoKeyEncryption{}
	}
	if cfg.ValueEncryption == nil {
		cfg.ValueEncryption = encryption.NoValueEncryption{}
	}
	if cfg.Logger == nil {
		discard := log.New()
		discard.SetOutput(io.Discard)
		cfg.Logger = discard
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}

	p := &Preferences{
		name:     cfg.Name,
		adapter:  cfg.Adapter,
		locks:    cfg.Locks,
		cache:    cfg.Cache,
		bridge:   cfg.Bridge,
		codec:    codec.NewPersistableCodec(cfg.Registry),
		keyEnc:   cfg.KeyEncryption,
		valueEnc: cfg.ValueEncryption,
		logger:   cfg.Logger.WithField("store", cfg.Name),
		metrics:  cfg.Metrics,
	}
	if err := p.recover(); err != nil {
		return nil, fmt.Errorf("prefs: recover %q: %w", cfg.Name, err)
	}
	if cfg.Eager {
		p.strategy = newEagerStrategy(p)
	} else {
		p.strategy = &lazyStrategy{p: p}
	}

	// Subscribed before any caller listener so remote changes reach the
	// cache first
	p.unsubscribe = p.bridge.Subscribe(p.name, p.onEvent)
	return p, nil
}

// recover finishes saves another handle left behind. It holds the process
// lock so a save still running elsewhere is never undone.
func (p *Preferences) recover() error {
	r, ok := p.adapter.(file.Recoverer)
	if !ok {
		return nil
	}
	if err := p.locks.Process.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := p.locks.Process.Unlock(); err != nil {
			p.logger.WithError(err).Warn("failed to release process lock")
		}
	}()
	p.locks.Write.Lock()
	defer p.locks.Write.Unlock()
	return r.Recover()
}

// Name returns the store name
func (p *Preferences) Name() string { return p.name }

// Registry returns the registry used to decode records
func (p *Preferences) Registry() *codec.Registry { return p.codec.Registry() }

func (p *Preferences) onEvent(ev events.Event) {
	if !ev.Remote || p.closed.Load() {
		return
	}
	p.strategy.invalidate(ev.Key, ev.Removed)
}

// Subscribe registers l for committed changes of this store, including
// changes made through other handles
func (p *Preferences) Subscribe(l events.Listener) (unsubscribe func()) {
	return p.bridge.Subscribe(p.name, l)
}

// Close waits for pending Apply calls and releases the store. Reads and
// commits fail with ErrClosed afterwards.
func (p *Preferences) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		p.pendingMu.Lock()
		p.closed.Store(true)
		p.pendingMu.Unlock()

		p.pending.Wait()
		p.unsubscribe()
		for _, c := range p.closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// begin registers a background commit unless the store is closed
func (p *Preferences) begin() bool {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	if p.closed.Load() {
		return false
	}
	p.pending.Add(1)
	return true
}

func (p *Preferences) checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return nil
}

// load reads, decrypts and decodes the value stored under key
func (p *Preferences) load(key string) (any, bool, error) {
	name, err := p.keyEnc.Encrypt(key)
	if err != nil {
		return nil, false, err
	}
	data, err := p.adapter.Fetch(name)
	if errors.Is(err, file.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("prefs: fetch %q: %w", key, err)
	}
	blob, err := p.valueEnc.Decrypt(data)
	if err != nil {
		return nil, false, fmt.Errorf("prefs: decrypt %q: %w", key, err)
	}
	v, err := decodeBlob(blob)
	if err != nil {
		p.metrics.RecordDecodeError(p.name)
		return nil, false, fmt.Errorf("prefs: decode %q: %w", key, err)
	}
	return v, true, nil
}

// storedKeys lists the keys held by the adapter. Names that do not decrypt
// are not ours and are skipped.
func (p *Preferences) storedKeys() ([]string, error) {
	names, err := p.adapter.Names()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		key, err := p.keyEnc.Decrypt(name)
		if err != nil {
			p.logger.WithError(err).WithField("name", name).Warn("skipping unreadable value name")
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// lookup returns the cached form of key
func (p *Preferences) lookup(key string) (any, bool, error) {
	if p.closed.Load() {
		return nil, false, ErrClosed
	}
	if err := p.checkKey(key); err != nil {
		return nil, false, err
	}
	if err := p.strategy.wait(context.Background()); err != nil {
		return nil, false, err
	}

	p.locks.Read.Lock()
	defer p.locks.Read.Unlock()
	return p.strategy.get(key)
}
