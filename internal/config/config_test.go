package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingJWTSecret) {
		t.Errorf("expected ErrMissingJWTSecret without a secret, got %v", err)
	}

	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if resolved != path {
		t.Errorf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("unexpected default addr %q", cfg.Addr)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected default config file to be written: %v", err)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9999\"\nlog_level: debug\ntoken_ttl: 2h\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("expected addr from file, got %q", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level from file, got %q", cfg.LogLevel)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("expected token ttl from file, got %v", cfg.TokenTTL)
	}
	// Untouched keys keep their defaults.
	if cfg.DatabasePath != "chatline.db" {
		t.Errorf("expected default database path, got %q", cfg.DatabasePath)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CHATLINE_JWT_SECRET", "env-secret")
	t.Setenv("CHATLINE_ADDR", ":7777")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Errorf("expected jwt secret from env, got %q", cfg.JWTSecret)
	}
	if cfg.Addr != ":7777" {
		t.Errorf("expected addr from env, got %q", cfg.Addr)
	}
}
