// Package config defines the top-level configuration for the engagement
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ENGAGEHUB_* environment
// variables.
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Engine   EngineConfig   `toml:"engine"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// StorageConfig selects and bounds the document store the engine persists
// its aggregates to.
type StorageConfig struct {
	// Backend selects the store implementation: "memory" or "redis".
	Backend string `toml:"backend"`

	// QuotaBytes is the total byte budget across all persisted documents.
	// Zero means unbounded.
	QuotaBytes int64 `toml:"quota_bytes"`

	// HighWaterBytes triggers the startup sweep of stale keys when exceeded.
	// Zero selects the built-in default.
	HighWaterBytes int64 `toml:"high_water_bytes"`

	// SweepPrefixes are the key prefixes the startup sweep may remove. Empty
	// selects the built-in defaults.
	SweepPrefixes []string `toml:"sweep_prefixes"`
}

// RedisConfig holds Redis connection parameters, used when the storage
// backend is "redis".
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the audit trail.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for the cold
// archive of quota-trimmed records.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EngineConfig holds the engagement engine's behavior parameters.
type EngineConfig struct {
	// OwnerID is the user credited for rewards that carry no user of their
	// own (achievement unlocks, unassigned tasks).
	OwnerID string `toml:"owner_id"`

	// MotivationMessage is the body of the daily motivation ping. Empty
	// disables the ping.
	MotivationMessage string `toml:"motivation_message"`

	// FlushDebounce is how long the persistence flusher absorbs a burst of
	// mutations before saving.
	FlushDebounce duration `toml:"flush_debounce"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`

	// RateLimit is the per-client request budget per RateWindow. Zero
	// disables rate limiting. Requires the redis storage backend.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{
			Backend:        "memory",
			QuotaBytes:     10 << 20,
			HighWaterBytes: 8 << 20,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "engagehub",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "engagehub-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Engine: EngineConfig{
			OwnerID:           "owner",
			MotivationMessage: "A new day, a new quest. Go get it!",
			FlushDebounce:     duration{200 * time.Millisecond},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
			RateWindow:  duration{time.Second},
		},
		LogLevel: "info",
	}
}

// validBackends enumerates the accepted values for Storage.Backend.
var validBackends = map[string]bool{
	"memory": true,
	"redis":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Storage
	backend := strings.ToLower(c.Storage.Backend)
	if !validBackends[backend] {
		errs = append(errs, fmt.Sprintf("storage: unknown backend %q (valid: memory, redis)", c.Storage.Backend))
	}
	if c.Storage.QuotaBytes < 0 {
		errs = append(errs, "storage: quota_bytes must be >= 0")
	}
	if c.Storage.HighWaterBytes < 0 {
		errs = append(errs, "storage: high_water_bytes must be >= 0")
	}
	if c.Storage.QuotaBytes > 0 && c.Storage.HighWaterBytes > c.Storage.QuotaBytes {
		errs = append(errs, "storage: high_water_bytes must not exceed quota_bytes")
	}

	// Redis, required for the redis backend and for rate limiting.
	needsRedis := backend == "redis" || c.Server.RateLimit > 0
	if needsRedis {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Engine
	if c.Engine.OwnerID == "" {
		errs = append(errs, "engine: owner_id must not be empty")
	}
	if c.Engine.FlushDebounce.Duration < 0 {
		errs = append(errs, "engine: flush_debounce must be >= 0")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
