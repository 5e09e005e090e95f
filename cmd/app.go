// cmd/app.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mozilla/mozci-go/internal/buildjson"
	"github.com/mozilla/mozci-go/internal/config"
	"github.com/mozilla/mozci-go/internal/transfer"
)

// app wires the transfer client, shard cache and resolver for one run
type app struct {
	cfg      *config.Config
	store    transfer.BlobStore
	manifest *transfer.Manifest
	client   *transfer.Client
	cache    *buildjson.ShardCache
	resolver *buildjson.Resolver

	closers []func() error
}

// openApp builds everything from the loaded configuration
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	switch cfg.Store {
	case config.StoreRedis:
		rs, err := transfer.DialRedisStore(ctx, cfg.RedisURL, cfg.RedisTTL)
		if err != nil {
			return nil, err
		}
		a.store = rs
		a.closers = append(a.closers, rs.Close)
	default:
		ds, err := transfer.NewDiskStore(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		a.store = ds
	}

	// The manifest stays on local disk even with the redis store
	if err := os.MkdirAll(filepath.Dir(cfg.ManifestPath()), 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}
	manifest, err := transfer.OpenManifest(cfg.ManifestPath())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.manifest = manifest
	a.closers = append(a.closers, manifest.Close)

	client, err := transfer.NewClient(transfer.Config{
		BaseURL:           cfg.BaseURL,
		Store:             a.store,
		Manifest:          manifest,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		LogFn:             logActivity,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client

	a.cache = buildjson.NewShardCache(client, buildjson.CacheConfig{LogFn: logActivity})
	a.resolver = buildjson.NewResolver(a.cache, buildjson.ResolverConfig{LogFn: logActivity})
	return a, nil
}

// Close releases the store and manifest
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			Debug("close: %v", err)
		}
	}
	a.closers = nil
}

// withApp loads the config, opens the app and runs fn
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()
	return fn(a)
}
