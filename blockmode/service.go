package blockmode

import (
	"sync"

	"github.com/gobeaver/cipherkit/config"
)

// Global instance management
var (
	defaultInstance Cipher
	defaultMetrics  *Metrics
	defaultOnce     sync.Once
	defaultErr      error
)

// Init initializes the global cipher with optional config. Without a config
// it is read from the environment (see Config).
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

		metrics := NewMetrics()
		defaultInstance, defaultErr = NewFromConfig(*cfg, WithMetrics(metrics))
		if defaultErr == nil {
			defaultMetrics = metrics
		}
	})

	return defaultErr
}

// Service returns the global cipher, initializing it from the environment if
// needed. It returns nil when initialization failed.
func Service() Cipher {
	if defaultInstance == nil {
		Init()
	}
	return defaultInstance
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultInstance = nil
	defaultMetrics = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}

// Encrypt encrypts with the global cipher.
func Encrypt(plaintext []byte) ([]byte, error) {
	if defaultInstance == nil {
		return nil, &Error{Op: "encrypt", Err: ErrNotInitialized}
	}
	return defaultInstance.Encrypt(plaintext)
}

// Decrypt decrypts with the global cipher.
func Decrypt(ciphertext []byte) ([]byte, error) {
	if defaultInstance == nil {
		return nil, &Error{Op: "decrypt", Err: ErrNotInitialized}
	}
	return defaultInstance.Decrypt(ciphertext)
}

// GetStats returns the global cipher's counters. Zero before Init.
func GetStats() Stats {
	return defaultMetrics.GetStats()
}

// Builder pattern for custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global cipher with the builder's prefix
func (b *Builder) Init() error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(*cfg)
}

// New creates a new Cipher with the builder's prefix
func (b *Builder) New(opts ...Option) (Cipher, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return NewFromConfig(*cfg, opts...)
}
