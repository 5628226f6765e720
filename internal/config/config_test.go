package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
log:
  level: debug
postgres:
  url: postgres://u:p@localhost/assoc
dictionary:
  cache_ttl: 30s
import:
  lock_ttl: 5m
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Log.Level != "debug" || cfg.Postgres.URL == "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := TTLDuration(cfg.Dictionary.CacheTTL, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s cache ttl, got %v", got)
	}
	if got := TTLDuration(cfg.Import.LockTTL, time.Minute); got != 5*time.Minute {
		t.Fatalf("expected 5m lock ttl, got %v", got)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
