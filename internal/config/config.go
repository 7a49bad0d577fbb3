// Package config loads lifeline settings from the environment and an optional
// .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"lifeline/internal/blob"
	"lifeline/internal/core"
	redisstore "lifeline/internal/infra/persistence/redis"
	"lifeline/pkg/domain"
)

// DefaultEnvFile is read when present. Environment variables override it.
const DefaultEnvFile = ".env"

// Config holds the process configuration.
type Config struct {
	// StorageDriver selects the KV backend: memory, sqlite, postgres, redis or blob.
	StorageDriver string `mapstructure:"LIFELINE_STORAGE_DRIVER"`
	SQLitePath    string `mapstructure:"LIFELINE_SQLITE_PATH"`
	PostgresDSN   string `mapstructure:"LIFELINE_POSTGRES_DSN"`

	RedisAddr     string `mapstructure:"LIFELINE_REDIS_ADDR"`
	RedisPassword string `mapstructure:"LIFELINE_REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"LIFELINE_REDIS_DB"`
	RedisPrefix   string `mapstructure:"LIFELINE_REDIS_PREFIX"`

	// BlobDriver is fs, s3 or memory when StorageDriver is blob.
	BlobDriver string `mapstructure:"LIFELINE_BLOB_DRIVER"`
	BlobFSRoot string `mapstructure:"LIFELINE_BLOB_FS_ROOT"`
	BlobPrefix string `mapstructure:"LIFELINE_BLOB_PREFIX"`

	S3Region          string `mapstructure:"LIFELINE_S3_REGION"`
	S3Bucket          string `mapstructure:"LIFELINE_S3_BUCKET"`
	S3Endpoint        string `mapstructure:"LIFELINE_S3_ENDPOINT"`
	S3AccessKeyID     string `mapstructure:"LIFELINE_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"LIFELINE_S3_SECRET_ACCESS_KEY"`
	S3PathStyle       bool   `mapstructure:"LIFELINE_S3_PATH_STYLE"`

	// StorageKey is the key the list is stored under.
	StorageKey  string `mapstructure:"LIFELINE_STORAGE_KEY"`
	MinContacts int    `mapstructure:"LIFELINE_MIN_CONTACTS"`
	MaxContacts int    `mapstructure:"LIFELINE_MAX_CONTACTS"`
	// EnforceMin rejects deletes below MinContacts.
	EnforceMin bool `mapstructure:"LIFELINE_ENFORCE_MIN"`
	// WriteTimeout bounds background store writes (e.g. "5s"); empty means none.
	WriteTimeout string `mapstructure:"LIFELINE_WRITE_TIMEOUT"`

	// LogMode is dev or prod.
	LogMode string `mapstructure:"LIFELINE_LOG_MODE"`
	// MetricsFile, when set, receives Prometheus text-format metrics on exit.
	MetricsFile string `mapstructure:"LIFELINE_METRICS_FILE"`
	// TraceStdout prints OpenTelemetry spans to stderr.
	TraceStdout bool `mapstructure:"LIFELINE_TRACE_STDOUT"`
	// TraceJSON writes one JSON line per repository span to stderr.
	TraceJSON bool `mapstructure:"LIFELINE_TRACE_JSON"`
	// AuditLog logs every mutation attempt through the audit logger.
	AuditLog bool `mapstructure:"LIFELINE_AUDIT_LOG"`
}

// Load reads .env (if present), then builds and validates Config from the environment.
func Load() (*Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile is Load with an explicit env file path. A missing file is ignored.
func LoadFile(envFile string) (*Config, error) {
	v := viper.New()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // ignore missing file
	}

	v.AutomaticEnv()

	v.SetDefault("LIFELINE_STORAGE_DRIVER", string(core.StorageSQLite))
	v.SetDefault("LIFELINE_SQLITE_PATH", "lifeline.db")
	v.SetDefault("LIFELINE_POSTGRES_DSN", "")
	v.SetDefault("LIFELINE_REDIS_ADDR", "")
	v.SetDefault("LIFELINE_REDIS_PASSWORD", "")
	v.SetDefault("LIFELINE_REDIS_DB", 0)
	v.SetDefault("LIFELINE_REDIS_PREFIX", "lifeline:")
	v.SetDefault("LIFELINE_BLOB_DRIVER", string(blob.DriverFilesystem))
	v.SetDefault("LIFELINE_BLOB_FS_ROOT", "blobdata")
	v.SetDefault("LIFELINE_BLOB_PREFIX", "lifeline")
	v.SetDefault("LIFELINE_S3_REGION", "us-east-1")
	v.SetDefault("LIFELINE_S3_BUCKET", "")
	v.SetDefault("LIFELINE_S3_ENDPOINT", "")
	v.SetDefault("LIFELINE_S3_ACCESS_KEY_ID", "")
	v.SetDefault("LIFELINE_S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("LIFELINE_S3_PATH_STYLE", false)
	v.SetDefault("LIFELINE_STORAGE_KEY", domain.DefaultStorageKey)
	v.SetDefault("LIFELINE_MIN_CONTACTS", domain.DefaultMinContacts)
	v.SetDefault("LIFELINE_MAX_CONTACTS", domain.DefaultMaxContacts)
	v.SetDefault("LIFELINE_ENFORCE_MIN", true)
	v.SetDefault("LIFELINE_WRITE_TIMEOUT", "")
	v.SetDefault("LIFELINE_LOG_MODE", "dev")
	v.SetDefault("LIFELINE_METRICS_FILE", "")
	v.SetDefault("LIFELINE_TRACE_STDOUT", false)
	v.SetDefault("LIFELINE_TRACE_JSON", false)
	v.SetDefault("LIFELINE_AUDIT_LOG", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch core.StorageDriver(c.StorageDriver) {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres, core.StorageRedis, core.StorageBlob:
	default:
		return fmt.Errorf("config: unknown LIFELINE_STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.StorageDriver == string(core.StoragePostgres) && c.PostgresDSN == "" {
		return errors.New("config: LIFELINE_POSTGRES_DSN must be set for the postgres driver")
	}
	if c.StorageDriver == string(core.StorageRedis) && c.RedisAddr == "" {
		return errors.New("config: LIFELINE_REDIS_ADDR must be set for the redis driver")
	}
	if c.StorageDriver == string(core.StorageBlob) && blob.Driver(c.BlobDriver) == blob.DriverS3 && c.S3Bucket == "" {
		return errors.New("config: LIFELINE_S3_BUCKET must be set for the s3 blob driver")
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return errors.New("config: LIFELINE_STORAGE_KEY must not be empty")
	}
	if err := c.Limits().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.WriteTimeout != "" {
		if d, err := time.ParseDuration(c.WriteTimeout); err != nil || d < 0 {
			return fmt.Errorf("config: invalid LIFELINE_WRITE_TIMEOUT %q", c.WriteTimeout)
		}
	}
	return nil
}

// Storage returns the KV backend settings.
func (c *Config) Storage() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.StorageDriver),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
		Redis: redisstore.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
		},
		Blob: blob.Config{
			Driver: blob.Driver(c.BlobDriver),
			FSRoot: c.BlobFSRoot,
			S3: blob.S3Config{
				Region:          c.S3Region,
				Bucket:          c.S3Bucket,
				Endpoint:        c.S3Endpoint,
				AccessKeyID:     c.S3AccessKeyID,
				SecretAccessKey: c.S3SecretAccessKey,
				PathStyle:       c.S3PathStyle,
			},
		},
		BlobPrefix: c.BlobPrefix,
	}
}

// Limits returns the configured list bounds.
func (c *Config) Limits() domain.Limits {
	return domain.Limits{Min: c.MinContacts, Max: c.MaxContacts, EnforceMin: c.EnforceMin}
}

// WriteTimeoutDuration parses WriteTimeout. Returns 0 if unset or invalid.
func (c *Config) WriteTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.WriteTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// RepositoryOptions translates the settings into repository options.
func (c *Config) RepositoryOptions() []core.Option {
	return []core.Option{
		core.WithLimits(c.Limits()),
		core.WithStorageKey(c.StorageKey),
		core.WithWriteTimeout(c.WriteTimeoutDuration()),
	}
}
