package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ENGAGEHUB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ENGAGEHUB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Storage ──
	setStr(&cfg.Storage.Backend, "ENGAGEHUB_STORAGE_BACKEND")
	setInt64(&cfg.Storage.QuotaBytes, "ENGAGEHUB_STORAGE_QUOTA_BYTES")
	setInt64(&cfg.Storage.HighWaterBytes, "ENGAGEHUB_STORAGE_HIGH_WATER_BYTES")
	setStringSlice(&cfg.Storage.SweepPrefixes, "ENGAGEHUB_STORAGE_SWEEP_PREFIXES")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ENGAGEHUB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ENGAGEHUB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ENGAGEHUB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ENGAGEHUB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ENGAGEHUB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ENGAGEHUB_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ENGAGEHUB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ENGAGEHUB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ENGAGEHUB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ENGAGEHUB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ENGAGEHUB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ENGAGEHUB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ENGAGEHUB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ENGAGEHUB_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ENGAGEHUB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ENGAGEHUB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ENGAGEHUB_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ENGAGEHUB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ENGAGEHUB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ENGAGEHUB_S3_REGION")
	setStr(&cfg.S3.Bucket, "ENGAGEHUB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ENGAGEHUB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ENGAGEHUB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ENGAGEHUB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ENGAGEHUB_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setStr(&cfg.Engine.OwnerID, "ENGAGEHUB_ENGINE_OWNER_ID")
	setStr(&cfg.Engine.MotivationMessage, "ENGAGEHUB_ENGINE_MOTIVATION_MESSAGE")
	setDuration(&cfg.Engine.FlushDebounce, "ENGAGEHUB_ENGINE_FLUSH_DEBOUNCE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ENGAGEHUB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ENGAGEHUB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ENGAGEHUB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ENGAGEHUB_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ENGAGEHUB_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "ENGAGEHUB_SERVER_RATE_WINDOW")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ENGAGEHUB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
