package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("error %q does not mention the mode", err)
	}
}

func TestValidateArchiveRequiresBucket(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.S3.Bucket = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing bucket")
	}
}

func TestValidateFaucetCap(t *testing.T) {
	cfg := Defaults()
	cfg.Faucet.Enabled = true
	cfg.Faucet.MaxDeposit = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero faucet cap")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "full"

[server]
port = 9000

[archive]
interval = "6h"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("POOLBET_SERVER_PORT", "9100")
	t.Setenv("POOLBET_FAUCET_ENABLED", "true")
	t.Setenv("POOLBET_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Mode != "full" {
		t.Errorf("mode = %q, want full", cfg.Mode)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Archive.Interval.Duration != 6*time.Hour {
		t.Errorf("archive interval = %v, want 6h", cfg.Archive.Interval.Duration)
	}
	if !cfg.Faucet.Enabled {
		t.Error("faucet not enabled by env override")
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != "https://a.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	// Untouched defaults survive the merge.
	if cfg.Postgres.Database != "poolbet" {
		t.Errorf("postgres database = %q, want default", cfg.Postgres.Database)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Redis.Password = "hunter2"
	cfg.S3.SecretKey = "hunter2"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)
	if red.Postgres.Password != "***" || red.Redis.Password != "***" ||
		red.S3.SecretKey != "***" || red.Notify.TelegramToken != "***" {
		t.Fatalf("secrets not redacted: %+v", red)
	}
	if cfg.Postgres.Password != "hunter2" {
		t.Fatal("redaction mutated the original")
	}
}
