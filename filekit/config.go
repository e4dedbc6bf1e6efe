package filekit

import (
	"github.com/gobeaver/cipherkit/config"
)

type Config struct {
	// Default driver to use (local, s3, redis, database)
	Driver string `env:"FILEKIT_DRIVER,default:local"`

	// Local driver configuration
	LocalBasePath string `env:"FILEKIT_LOCAL_BASE_PATH,default:./storage"`

	// S3 driver configuration
	S3Region          string `env:"FILEKIT_S3_REGION,default:us-east-1"`
	S3Bucket          string `env:"FILEKIT_S3_BUCKET"`
	S3Prefix          string `env:"FILEKIT_S3_PREFIX"`
	S3Endpoint        string `env:"FILEKIT_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"FILEKIT_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"FILEKIT_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"FILEKIT_S3_FORCE_PATH_STYLE,default:false"`

	// Redis driver configuration. URL overrides host, port, password and DB.
	RedisURL       string `env:"FILEKIT_REDIS_URL"`
	RedisHost      string `env:"FILEKIT_REDIS_HOST,default:localhost"`
	RedisPort      string `env:"FILEKIT_REDIS_PORT,default:6379"`
	RedisPassword  string `env:"FILEKIT_REDIS_PASSWORD"`
	RedisDB        int    `env:"FILEKIT_REDIS_DB,default:0"`
	RedisKeyPrefix string `env:"FILEKIT_REDIS_KEY_PREFIX,default:filekit:"`
	RedisUseTLS    bool   `env:"FILEKIT_REDIS_USE_TLS,default:false"`

	// Database driver configuration: sqlite, postgres, mysql, libsql/turso
	DatabaseDriver    string `env:"FILEKIT_DB_DRIVER,default:sqlite"`
	DatabaseDSN       string `env:"FILEKIT_DB_DSN,default:filekit.db"`
	DatabaseAuthToken string `env:"FILEKIT_DB_AUTH_TOKEN"`
	DatabaseDebug     bool   `env:"FILEKIT_DB_DEBUG,default:false"`

	// Default upload options
	DefaultVisibility   string `env:"FILEKIT_DEFAULT_VISIBILITY,default:private"`
	DefaultCacheControl string `env:"FILEKIT_DEFAULT_CACHE_CONTROL"`

	// MaxFileSize caps encrypted uploads, which are buffered in memory
	MaxFileSize int64 `env:"FILEKIT_MAX_FILE_SIZE,default:10485760"` // 10MB default

	// Encryption settings
	EncryptionEnabled     bool   `env:"FILEKIT_ENCRYPTION_ENABLED,default:false"`
	EncryptionMode        string `env:"FILEKIT_ENCRYPTION_MODE,default:CTR"`
	EncryptionKey         string `env:"FILEKIT_ENCRYPTION_KEY"`
	EncryptionSegmentSize int    `env:"FILEKIT_ENCRYPTION_SEGMENT_SIZE,default:128"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
