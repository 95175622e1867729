package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9000
  read_timeout: 5s
local_store:
  path: /tmp/mirror.db
remote:
  mode: http
  base_url: http://gateway:8080
sync:
  timeout: 3s
  auto_upload_cron: "@every 10s"
  device_id: court-a-tablet
logging:
  level: debug
  format: console
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.GetReadTimeout() != 5*time.Second {
		t.Errorf("expected 5s read timeout, got %v", cfg.Server.GetReadTimeout())
	}
	if cfg.LocalStore.Path != "/tmp/mirror.db" {
		t.Errorf("unexpected local store path: %s", cfg.LocalStore.Path)
	}
	if cfg.Remote.Mode != "http" || cfg.Remote.BaseURL != "http://gateway:8080" {
		t.Errorf("unexpected remote config: %+v", cfg.Remote)
	}
	if cfg.Sync.GetTimeout() != 3*time.Second {
		t.Errorf("expected 3s sync timeout, got %v", cfg.Sync.GetTimeout())
	}
	if cfg.Sync.AutoUploadCron != "@every 10s" {
		t.Errorf("unexpected cron spec: %s", cfg.Sync.AutoUploadCron)
	}
	if cfg.Sync.DeviceID != "court-a-tablet" {
		t.Errorf("unexpected device id: %s", cfg.Sync.DeviceID)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 8787 {
		t.Errorf("expected default port 8787, got %d", cfg.Server.Port)
	}
	if cfg.Remote.Mode != "memory" {
		t.Errorf("expected default remote mode memory, got %s", cfg.Remote.Mode)
	}
	if cfg.Sync.GetTimeout() != 10*time.Second {
		t.Errorf("expected default 10s timeout, got %v", cfg.Sync.GetTimeout())
	}
}

func TestSyncTimeoutFallback(t *testing.T) {
	s := SyncConfig{Timeout: "not-a-duration"}
	if s.GetTimeout() != 10*time.Second {
		t.Errorf("expected fallback timeout, got %v", s.GetTimeout())
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
