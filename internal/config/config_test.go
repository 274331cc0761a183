package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
log_level = "debug"

[storage]
backend = "redis"
quota_bytes = 5242880

[engine]
owner_id = "team-lead"
flush_debounce = "1s"

[server]
port = 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Storage.Backend != "redis" {
		t.Errorf("backend = %q, want redis", cfg.Storage.Backend)
	}
	if cfg.Storage.QuotaBytes != 5242880 {
		t.Errorf("quota_bytes = %d, want 5242880", cfg.Storage.QuotaBytes)
	}
	if cfg.Engine.OwnerID != "team-lead" {
		t.Errorf("owner_id = %q, want team-lead", cfg.Engine.OwnerID)
	}
	if cfg.Engine.FlushDebounce.Duration != time.Second {
		t.Errorf("flush_debounce = %v, want 1s", cfg.Engine.FlushDebounce.Duration)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	// Untouched fields keep their defaults.
	if cfg.Redis.PoolSize != 20 {
		t.Errorf("redis pool_size = %d, want default 20", cfg.Redis.PoolSize)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = 9090
`)
	t.Setenv("ENGAGEHUB_SERVER_PORT", "7777")
	t.Setenv("ENGAGEHUB_ENGINE_OWNER_ID", "env-owner")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d, want env override 7777", cfg.Server.Port)
	}
	if cfg.Engine.OwnerID != "env-owner" {
		t.Errorf("owner_id = %q, want env-owner", cfg.Engine.OwnerID)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Backend = "dynamo"
	cfg.LogLevel = "verbose"
	cfg.Engine.OwnerID = ""
	cfg.Server.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"backend", "log_level", "owner_id", "port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidateRequiresRedisForRateLimit(t *testing.T) {
	cfg := Defaults()
	cfg.Server.RateLimit = 10
	cfg.Redis.Addr = ""

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected redis validation error, got %v", err)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Password = "hunter2"
	cfg.Postgres.Password = "hunter2"
	cfg.S3.SecretKey = "hunter2"
	cfg.Server.APIKey = "hunter2"

	red := RedactedConfig(&cfg)
	if red.Redis.Password != redacted || red.Postgres.Password != redacted ||
		red.S3.SecretKey != redacted || red.Server.APIKey != redacted {
		t.Fatal("secrets not redacted")
	}
	if cfg.Redis.Password != "hunter2" {
		t.Fatal("original config mutated")
	}
}
