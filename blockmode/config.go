package blockmode

import (
	"fmt"

	"github.com/gobeaver/cipherkit/config"
	"github.com/gobeaver/cipherkit/krypto"
)

// Config defines the configuration for the package level cipher
type Config struct {
	// Mode is the chaining mode name: ECB, CBC, CFB, OFB or CTR
	Mode string `env:"BLOCKMODE_MODE,default:CBC"`

	// Key is the AES key, hex or base64 encoded (16, 24 or 32 bytes once decoded)
	Key string `env:"BLOCKMODE_KEY,required"`

	// SegmentSize is the CFB segment size in bits
	SegmentSize int `env:"BLOCKMODE_SEGMENT_SIZE,default:128"`

	// Debug enables logging, including the IV of every call at debug level
	Debug bool `env:"BLOCKMODE_DEBUG,default:false"`

	// LogLevel is the minimum level logged when Debug is set
	LogLevel string `env:"BLOCKMODE_LOG_LEVEL,default:debug"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewFromConfig builds a Cipher from cfg. The key is decoded with
// krypto.ParseKey. A logger is attached when cfg.Debug is set.
func NewFromConfig(cfg Config, opts ...Option) (Cipher, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	key, err := krypto.ParseKey(cfg.Key)
	if err != nil {
		return nil, &Error{Op: "new", Mode: mode, Err: fmt.Errorf("%w: %v", ErrInvalidKeyLength, err)}
	}

	base := []Option{WithSegmentSize(cfg.SegmentSize)}
	if cfg.Debug {
		base = append(base, WithLogger(NewLogger(true, cfg.LogLevel)))
	}
	return New(mode, key.Bytes, append(base, opts...)...)
}
