package prefs

import (
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/yandextaxitech/binaryprefs/pkg/cache"
	"github.com/yandextaxitech/binaryprefs/pkg/codec"
	"github.com/yandextaxitech/binaryprefs/pkg/encryption"
	"github.com/yandextaxitech/binaryprefs/pkg/events"
	"github.com/yandextaxitech/binaryprefs/pkg/file"
	"github.com/yandextaxitech/binaryprefs/pkg/lock"
)

// Option adjusts the Config built by Open
type Option func(*Config)

func WithEager(eager bool) Option { return func(c *Config) { c.Eager = eager } }

func WithLogger(l log.FieldLogger) Option { return func(c *Config) { c.Logger = l } }

func WithRegistry(r *codec.Registry) Option { return func(c *Config) { c.Registry = r } }

func WithKeyEncryption(k encryption.KeyEncryption) Option {
	return func(c *Config) { c.KeyEncryption = k }
}

func WithValueEncryption(v encryption.ValueEncryption) Option {
	return func(c *Config) { c.ValueEncryption = v }
}

func WithMetrics(m MetricsRecorder) Option { return func(c *Config) { c.Metrics = m } }

func WithBridge(b events.Bridge) Option { return func(c *Config) { c.Bridge = b } }

func WithCache(cc *cache.Cache) Option { return func(c *Config) { c.Cache = cc } }

func WithLocks(l lock.Locks) Option { return func(c *Config) { c.Locks = l } }

func WithAdapter(a file.Adapter) Option { return func(c *Config) { c.Adapter = a } }

// Open opens store name under root with file-per-key storage and a file
// lock. Locks and cache are private to the handle unless passed as options;
// use a di.Container to share them between handles.
func Open(root, name string, opts ...Option) (*Preferences, error) {
	cfg := Config{Name: name}
	for _, opt := range opts {
		opt(&cfg)
	}

	dirs := file.Directories{Root: root, Name: name}
	if cfg.Adapter == nil {
		adapter, err := file.NewBackupAdapter(dirs, cfg.Logger)
		if err != nil {
			return nil, err
		}
		cfg.Adapter = adapter
	}
	if cfg.Locks.Write == nil {
		locks, err := lock.NewFactory(dirs.Lock()).Get(name)
		if err != nil {
			return nil, err
		}
		cfg.Locks = locks
	}
	return New(cfg)
}

// CloseWith makes Close release c as well
func (p *Preferences) CloseWith(c io.Closer) {
	p.closers = append(p.closers, c)
}
