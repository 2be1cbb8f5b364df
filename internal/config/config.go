// Package config defines service configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a .env file, an optional YAML file and HRDESK_* env vars.
// - Validate reports every invalid setting, wrapped in ErrInvalidConfig.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Accepted values for the enumerated settings.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"

	DedupeMemory = "memory"
	DedupeRedis  = "redis"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the in-memory submission id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DedupeBackend selects where submission ids are remembered: memory or redis.
	DedupeBackend string `koanf:"dedupe_backend"`

	// DedupeTTLSeconds is how long the redis backend remembers an id.
	DedupeTTLSeconds int `koanf:"dedupe_ttl_seconds"`

	// StorageDriver selects the record store: memory, postgres or mongo.
	StorageDriver string `koanf:"storage_driver"`

	PostgresDSN   string `koanf:"postgres_dsn"`
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// MaxListLimit caps ?limit on list and ranking endpoints.
	MaxListLimit int `koanf:"max_list_limit"`

	// RateLimitRPS and RateLimitBurst configure the API token bucket.
	// RateLimitRPS <= 0 disables rate limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// SeedFile points to a YAML fixture file replacing the embedded one.
	SeedFile string `koanf:"seed_file"`

	// SeedDefaults loads the fixtures at startup when the store is empty.
	SeedDefaults bool `koanf:"seed_defaults"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        LogFormatText,
		Addr:             ":9080",
		QueueSize:        10_000,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       100_000,
		DedupeBackend:    DedupeMemory,
		DedupeTTLSeconds: 86_400,
		StorageDriver:    StorageMemory,
		MongoDatabase:    "hrdesk",
		RedisAddr:        "localhost:6379",
		MaxListLimit:     100,
		RateLimitRPS:     200,
		RateLimitBurst:   400,
		SeedDefaults:     true,
	}
}

// DedupeTTL returns DedupeTTLSeconds as a duration.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLSeconds) * time.Second
}

// Validate checks settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, settingErr("addr", "addr must not be empty"))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, settingErr("queue_size", "queue_size must be positive, got %d", c.QueueSize))
	}
	if c.WorkerCount <= 0 {
		errs = append(errs, settingErr("worker_count", "worker_count must be positive, got %d", c.WorkerCount))
	}
	if c.MaxListLimit <= 0 {
		errs = append(errs, settingErr("max_list_limit", "max_list_limit must be positive, got %d", c.MaxListLimit))
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, settingErr("log_format", "log_format must be text or json, got %q", c.LogFormat))
	}

	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, settingErr("postgres_dsn", "postgres_dsn is required for storage_driver postgres"))
		}
	case StorageMongo:
		if c.MongoURI == "" {
			errs = append(errs, settingErr("mongo_uri", "mongo_uri is required for storage_driver mongo"))
		}
	default:
		errs = append(errs, settingErr("storage_driver", "unknown storage_driver %q", c.StorageDriver))
	}

	switch c.DedupeBackend {
	case DedupeMemory:
	case DedupeRedis:
		if c.RedisAddr == "" {
			errs = append(errs, settingErr("redis_addr", "redis_addr is required for dedupe_backend redis"))
		}
		if c.DedupeTTLSeconds <= 0 {
			errs = append(errs, settingErr("dedupe_ttl_seconds", "dedupe_ttl_seconds must be positive, got %d", c.DedupeTTLSeconds))
		}
	default:
		errs = append(errs, settingErr("dedupe_backend", "unknown dedupe_backend %q", c.DedupeBackend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
