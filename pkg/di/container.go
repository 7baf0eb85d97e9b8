// Package di provides dependency injection container
package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/yandextaxitech/binaryprefs/pkg/api" //nolint:depguard
	"github.com/yandextaxitech/binaryprefs/pkg/cache"
	"github.com/yandextaxitech/binaryprefs/pkg/codec"
	"github.com/yandextaxitech/binaryprefs/pkg/config"
	"github.com/yandextaxitech/binaryprefs/pkg/encryption"
	"github.com/yandextaxitech/binaryprefs/pkg/events"
	"github.com/yandextaxitech/binaryprefs/pkg/file"
	"github.com/yandextaxitech/binaryprefs/pkg/lock"
	"github.com/yandextaxitech/binaryprefs/pkg/prefs"
)

// Container holds all the dependencies for the application. Stores opened
// through the same container share locks, caches and change listeners per
// store name.
type Container struct {
	config   *config.Config
	logger   *log.Logger
	locks    *lock.Factory
	caches   *cache.Registry
	registry *codec.Registry
	metrics  *api.Metrics
	bridge   events.Bridge
	keyEnc   encryption.KeyEncryption
	valueEnc encryption.ValueEncryption

	redis redis.UniversalClient
	db    *pebble.DB

	mutex  sync.Mutex
	stores []*prefs.Preferences
	closed bool
}

// NewLogger builds the process logger from the logging configuration
func NewLogger(cfg config.Logging) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(os.Stderr)

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return logger, nil
}

// NewContainer creates a new dependency injection container. When the
// configuration names a Redis address, changes are broadcast through it.
func NewContainer(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		var err error
		if logger, err = NewLogger(cfg.Logging); err != nil {
			return nil, err
		}
	}

	c := &Container{
		config:   cfg,
		logger:   logger,
		locks:    lock.NewFactory(file.Directories{Root: cfg.DataDir}.Lock()),
		caches:   cache.NewRegistry(),
		registry: codec.NewRegistry(),
		metrics:  api.NewMetrics(),
		keyEnc:   encryption.NoKeyEncryption{},
		valueEnc: encryption.NoValueEncryption{},
	}

	if err := c.setupEncryption(); err != nil {
		return nil, err
	}
	if err := c.setupBridge(ctx); err != nil {
		return nil, err
	}
	if err := c.setupBackend(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) setupEncryption() error {
	secret, err := config.DecodeKey(c.config.Security.KeyXorSecret)
	if err != nil {
		return fmt.Errorf("key_xor_secret: %w", err)
	}
	if secret != nil {
		if c.keyEnc, err = encryption.NewXorKeyEncryption(secret); err != nil {
			return fmt.Errorf("key_xor_secret: %w", err)
		}
	}

	valueKey, err := config.DecodeKey(c.config.Security.ValueKey)
	if err != nil {
		return fmt.Errorf("value_key: %w", err)
	}
	if valueKey != nil {
		if c.valueEnc, err = encryption.NewAESValueEncryption(valueKey); err != nil {
			return fmt.Errorf("value_key: %w", err)
		}
	}
	return nil
}

func (c *Container) setupBridge(ctx context.Context) error {
	addr := c.config.Broadcast.RedisAddr
	if addr == "" {
		c.bridge = events.NewLocalBridge()
		return nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: strings.Split(addr, ",")})
	bridge, err := events.NewRedisBridge(ctx, client, c.config.Broadcast.Channel, c.logger)
	if err != nil {
		_ = client.Close()
		return err
	}
	c.redis = client
	c.bridge = bridge
	c.logger.WithFields(log.Fields{"redis": addr, "channel": c.config.Broadcast.Channel}).Debug("broadcasting changes")
	return nil
}

func (c *Container) setupBackend() error {
	switch c.config.Backend {
	case "", config.BackendFiles:
		return nil
	case config.BackendPebble:
		path := filepath.Join(c.config.DataDir, "pebble")
		db, err := pebble.Open(path, &pebble.Options{})
		if err != nil {
			return fmt.Errorf("open pebble at %s: %w", path, err)
		}
		c.db = db
		return nil
	default:
		return fmt.Errorf("unknown backend %q", c.config.Backend)
	}
}

// Open opens store name with the container's shared components. Options
// are applied last and override them.
func (c *Container) Open(name string, opts ...prefs.Option) (*prefs.Preferences, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil, prefs.ErrClosed
	}

	adapter, err := c.adapter(name)
	if err != nil {
		return nil, err
	}
	locks, err := c.locks.Get(name)
	if err != nil {
		return nil, err
	}

	cfg := prefs.Config{
		Name:            name,
		Adapter:         adapter,
		Locks:           locks,
		Cache:           c.caches.Get(name),
		Bridge:          c.bridge,
		Registry:        c.registry,
		KeyEncryption:   c.keyEnc,
		ValueEncryption: c.valueEnc,
		Eager:           c.config.Cache.Eager,
		Logger:          c.logger,
		Metrics:         c.metrics,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	p, err := prefs.New(cfg)
	if err != nil {
		return nil, err
	}
	c.stores = append(c.stores, p)
	return p, nil
}

func (c *Container) adapter(name string) (file.Adapter, error) {
	if c.db != nil {
		return file.NewPebbleAdapter(c.db, name)
	}
	return file.NewBackupAdapter(file.Directories{Root: c.config.DataDir, Name: name}, c.logger)
}

// Config returns the configuration the container was built from
func (c *Container) Config() *config.Config { return c.config }

// Logger returns the process logger
func (c *Container) Logger() *log.Logger { return c.logger }

// Registry returns the record registry shared by every store
func (c *Container) Registry() *codec.Registry { return c.registry }

// Metrics returns the metrics every store reports to
func (c *Container) Metrics() *api.Metrics { return c.metrics }

// Bridge returns the change bridge shared by every store
func (c *Container) Bridge() events.Bridge { return c.bridge }

// Close closes every store opened through the container, then the shared
// components
func (c *Container) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for _, p := range c.stores {
		errs = append(errs, p.Close())
	}
	c.stores = nil

	if c.bridge != nil {
		errs = append(errs, c.bridge.Close())
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}
