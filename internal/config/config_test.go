package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store != StoreDisk || cfg.Workers != 4 || cfg.HTTPTimeout != 5*time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadMissingFileRequired(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true); err == nil {
		t.Error("expected an error for a required missing file")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
base_url: http://mirror.example.com/buildjson
cache_dir: /tmp/mozci-cache
store: redis
redis_url: redis://localhost:6379/2
redis_ttl: 2h
requests_per_second: 0.5
workers: 8
`)

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://mirror.example.com/buildjson" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Store != StoreRedis || cfg.RedisTTL != 2*time.Hour || cfg.Workers != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RequestsPerSecond != 0.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.RequestsPerSecond)
	}
	if cfg.ManifestPath() != "/tmp/mozci-cache/manifest.db" {
		t.Errorf("ManifestPath() = %q", cfg.ManifestPath())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MOZCI_CACHE_DIR", "/var/cache/mozci")
	t.Setenv("MOZCI_BASE_URL", "http://override")

	cfg, err := Load(writeConfig(t, "cache_dir: /somewhere/else\n"), true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheDir != "/var/cache/mozci" || cfg.BaseURL != "http://override" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "store: [", "could not parse"},
		{"unknown store", "store: s3\n", "unknown store"},
		{"redis without url", "store: redis\n", "requires redis_url"},
		{"no workers", "workers: 0\n", "workers must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MOZCI_REDIS_URL", "")
			_, err := Load(writeConfig(t, tt.content), true)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
