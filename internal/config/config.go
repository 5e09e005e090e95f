// Package config loads the mozci YAML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mozilla/mozci-go/internal/buildjson"
)

// Store backends.
const (
	StoreDisk  = "disk"
	StoreRedis = "redis"
)

// Config is the contents of ~/.mozci/config.yaml.
type Config struct {
	BaseURL           string        `yaml:"base_url"`
	CacheDir          string        `yaml:"cache_dir"`
	Store             string        `yaml:"store"` // "disk" or "redis"
	RedisURL          string        `yaml:"redis_url,omitempty"`
	RedisTTL          time.Duration `yaml:"redis_ttl,omitempty"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	ManifestDB        string        `yaml:"manifest_db,omitempty"` // defaults to <cache_dir>/manifest.db
	RepositoriesFile  string        `yaml:"repositories_file,omitempty"`
	Workers           int           `yaml:"workers"`
}

// Dir returns ~/.mozci.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".mozci")
}

// DefaultPath returns the default location of the config file.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		BaseURL:           buildjson.DefaultBaseURL,
		CacheDir:          filepath.Join(Dir(), "cache"),
		Store:             StoreDisk,
		RedisTTL:          24 * time.Hour,
		RequestsPerSecond: 2,
		Burst:             1,
		HTTPTimeout:       5 * time.Minute,
		Workers:           4,
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// A missing file is not an error unless mustExist is set.
func Load(path string, mustExist bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !mustExist:
	case os.IsNotExist(err):
		return nil, fmt.Errorf("config not found at %s", path)
	default:
		return nil, fmt.Errorf("could not read config %s: %w", path, err)
	}

	cfg.BaseURL = getEnvOrDefault("MOZCI_BASE_URL", cfg.BaseURL)
	cfg.CacheDir = getEnvOrDefault("MOZCI_CACHE_DIR", cfg.CacheDir)
	cfg.RedisURL = getEnvOrDefault("MOZCI_REDIS_URL", cfg.RedisURL)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s is invalid: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreDisk:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("store %q requires redis_url", StoreRedis)
		}
	default:
		return fmt.Errorf("unknown store %q (want %q or %q)", c.Store, StoreDisk, StoreRedis)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("missing 'base_url'")
	}
	if c.CacheDir == "" {
		return fmt.Errorf("missing 'cache_dir'")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// ManifestPath returns the manifest database location.
func (c *Config) ManifestPath() string {
	if c.ManifestDB != "" {
		return c.ManifestDB
	}
	return filepath.Join(c.CacheDir, "manifest.db")
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
