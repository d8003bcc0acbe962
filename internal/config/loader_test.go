package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, cfg map[string]any) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LENTE_CONFIG", path)
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LENTE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("BRAVILO_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bravilo.APIBase != "https://app.braviloai.com/api" {
		t.Fatalf("unexpected api base: %s", cfg.Bravilo.APIBase)
	}
	if cfg.Bravilo.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Bravilo.Timeout)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Fatalf("unexpected host: %s", cfg.Server.Host)
	}
	if cfg.Events.Enabled {
		t.Fatalf("events should default to disabled")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	writeConfigFile(t, map[string]any{
		"bravilo": map[string]any{"apiKey": "file-key", "apiBase": "http://bravilo.local/api"},
		"server":  map[string]any{"port": 9000},
	})
	t.Setenv("BRAVILO_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bravilo.APIKey != "file-key" {
		t.Fatalf("expected file key, got %q", cfg.Bravilo.APIKey)
	}
	if cfg.Bravilo.APIBase != "http://bravilo.local/api" {
		t.Fatalf("expected file api base, got %q", cfg.Bravilo.APIBase)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.Server.Port)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	writeConfigFile(t, map[string]any{
		"bravilo": map[string]any{"apiKey": "file-key"},
	})
	t.Setenv("LENTE_BRAVILO_API_KEY", "env-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bravilo.APIKey != "env-key" {
		t.Fatalf("expected env key to win, got %q", cfg.Bravilo.APIKey)
	}
}

func TestResolveAPIKeyPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bravilo.APIKey = "config-key"

	t.Setenv("BRAVILO_API_KEY", "env-key")
	if got := ResolveAPIKey("explicit-key", cfg); got != "explicit-key" {
		t.Fatalf("explicit override should win, got %q", got)
	}
	if got := ResolveAPIKey("", cfg); got != "env-key" {
		t.Fatalf("environment should win over file, got %q", got)
	}

	t.Setenv("BRAVILO_API_KEY", "")
	if got := ResolveAPIKey("", cfg); got != "config-key" {
		t.Fatalf("config file should be the fallback, got %q", got)
	}
	if got := ResolveAPIKey("  ", nil); got != "" {
		t.Fatalf("expected empty resolution (demo mode), got %q", got)
	}
}
