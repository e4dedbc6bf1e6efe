package filekit

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gobeaver/cipherkit/blockmode"
)

// DriverFactory builds a FileSystem from config. Drivers register one from
// their init function; import the driver package for its side effect.
type DriverFactory func(cfg Config) (FileSystem, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]DriverFactory)
)

// RegisterDriver makes a driver available under name. It panics if the name
// is taken or the factory is nil.
func RegisterDriver(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if factory == nil {
		panic("filekit: RegisterDriver factory is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("filekit: RegisterDriver called twice for driver " + name)
	}
	drivers[name] = factory
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates a FileSystem from cfg: the named driver, wrapped with the
// default upload options and, when enabled, with encryption.
func New(cfg Config) (FileSystem, error) {
	driversMu.RLock()
	factory, ok := drivers[cfg.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrInvalidDriver, cfg.Driver, Drivers())
	}

	visibility, err := ParseVisibility(cfg.DefaultVisibility)
	if err != nil {
		return nil, err
	}

	fs, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	defaults := []Option{WithVisibility(visibility)}
	if cfg.DefaultCacheControl != "" {
		defaults = append(defaults, WithCacheControl(cfg.DefaultCacheControl))
	}
	fs = withDefaults(fs, defaults...)

	if !cfg.EncryptionEnabled {
		return fs, nil
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("%w: encryption enabled without a key", ErrInvalidConfig)
	}
	c, err := blockmode.NewFromConfig(blockmode.Config{
		Mode:        cfg.EncryptionMode,
		Key:         cfg.EncryptionKey,
		SegmentSize: cfg.EncryptionSegmentSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return NewEncryptedFS(fs, c, cfg.MaxFileSize), nil
}

// Global instance management
var (
	defaultInstance FileSystem
	defaultOnce     sync.Once
	defaultErr      error
)

// Init initializes the global filesystem with optional config
func Init(configs ...Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = &configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultInstance, defaultErr = New(*cfg)
	})

	return defaultErr
}

// Default returns the global filesystem, initializing it from the
// environment if needed. It returns nil when initialization failed.
func Default() FileSystem {
	if defaultInstance == nil {
		Init()
	}
	return defaultInstance
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultInstance = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}
