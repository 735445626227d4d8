package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vortelan/chatsync/internal/log"
)

func TestLoadWritesAndReadsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(log.Nop(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.PageLimit != 50 || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected default config written: %v", statErr)
	}
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "api_base_url: https://chat.example.com/api\npage_limit: 25\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(log.Nop(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://chat.example.com/api" || cfg.PageLimit != 25 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// Untouched fields keep their defaults.
	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("default timeout lost: %v", cfg.HTTPTimeout)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHATSYNC_LOG_LEVEL", "debug")

	cfg, _, err := Load(log.Nop(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("env override not applied: %q", cfg.LogLevel)
	}
}

func TestUpdateFromSkipsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{PageLimit: 10})

	if cfg.PageLimit != 10 {
		t.Fatalf("expected override applied, got %d", cfg.PageLimit)
	}
	if cfg.APIBaseURL == "" || cfg.LogLevel != "info" {
		t.Fatalf("zero values must not clobber: %+v", cfg)
	}
}
