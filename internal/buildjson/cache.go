package buildjson

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
)

// Fetcher downloads and decompresses a shard by name.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (*Document, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, name string) (*Document, error)

// Fetch calls f(ctx, name).
func (f FetcherFunc) Fetch(ctx context.Context, name string) (*Document, error) {
	return f(ctx, name)
}

// CacheConfig holds configuration for a ShardCache.
type CacheConfig struct {
	// LogFn receives log messages (if nil, warnings go to stderr)
	LogFn func(level, msg string)
}

// ShardCache keeps decoded shards in memory for the lifetime of the process.
// There is no eviction; entries only go away through Invalidate or Refetch.
//
// All operations on the same shard name are serialized by a per-name lock so
// concurrent misses share one download and an invalidation never exposes a
// half-loaded entry. Different shards load independently.
//
// All methods are safe for concurrent use.
type ShardCache struct {
	fetcher Fetcher
	logFn   func(level, msg string)

	mu      sync.Mutex             // guards locks, entries and lastGen
	locks   map[string]*sync.Mutex // one per shard name, never removed
	entries map[string]*Shard
	lastGen uint64

	statHits    uint64
	statMisses  uint64
	statFetches uint64
}

// NewShardCache creates an empty cache loading shards through fetcher.
func NewShardCache(fetcher Fetcher, cfg CacheConfig) *ShardCache {
	return &ShardCache{
		fetcher: fetcher,
		logFn:   cfg.LogFn,
		locks:   make(map[string]*sync.Mutex),
		entries: make(map[string]*Shard),
	}
}

func (c *ShardCache) log(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.logFn != nil {
		c.logFn(level, msg)
		return
	}
	if level == "error" || level == "warning" {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
}

// keyLock returns the lock for name, creating it on first use.
func (c *ShardCache) keyLock(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[name]
	if !ok {
		l = &sync.Mutex{}
		c.locks[name] = l
	}
	return l
}

func (c *ShardCache) lookup(name string) *Shard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[name]
}

func (c *ShardCache) remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// GetOrFetch returns the resident shard for name, loading it on a miss.
func (c *ShardCache) GetOrFetch(ctx context.Context, name string) (*Shard, error) {
	l := c.keyLock(name)
	l.Lock()
	defer l.Unlock()

	if s := c.lookup(name); s != nil {
		atomic.AddUint64(&c.statHits, 1)
		return s, nil
	}
	atomic.AddUint64(&c.statMisses, 1)
	return c.fetchLocked(ctx, name)
}

// Invalidate drops name from the cache. It is a no-op when name is not
// resident.
func (c *ShardCache) Invalidate(name string) {
	l := c.keyLock(name)
	l.Lock()
	defer l.Unlock()
	c.remove(name)
}

// Refetch replaces stale, a shard previously returned for name, with a fresh
// copy. The invalidation and the download happen under the shard's lock, so no
// other caller observes the gap. If another caller already replaced stale,
// that newer copy is returned without downloading again. A nil stale always
// downloads.
func (c *ShardCache) Refetch(ctx context.Context, name string, stale *Shard) (*Shard, error) {
	l := c.keyLock(name)
	l.Lock()
	defer l.Unlock()

	if s := c.lookup(name); s != nil && stale != nil && s.generation != stale.generation {
		c.log("debug", "%s was already refreshed by another caller", name)
		atomic.AddUint64(&c.statHits, 1)
		return s, nil
	}
	c.remove(name)
	atomic.AddUint64(&c.statMisses, 1)
	return c.fetchLocked(ctx, name)
}

// fetchLocked downloads and decodes name. The caller holds the lock for name.
func (c *ShardCache) fetchLocked(ctx context.Context, name string) (*Shard, error) {
	atomic.AddUint64(&c.statFetches, 1)
	c.log("debug", "Loading %s", name)

	doc, err := c.fetcher.Fetch(ctx, name)
	if err != nil {
		return nil, &FetchError{Shard: name, Err: err}
	}
	if doc == nil {
		return nil, &FetchError{Shard: name, Err: fmt.Errorf("empty document")}
	}

	jobs := make([]JobRecord, len(doc.Builds))
	for i, raw := range doc.Builds {
		if err := json.Unmarshal(raw, &jobs[i]); err != nil {
			return nil, &FetchError{Shard: name, Err: fmt.Errorf("decode build %d: %w", i, err)}
		}
	}

	c.mu.Lock()
	c.lastGen++
	s := &Shard{Name: name, Jobs: jobs, generation: c.lastGen}
	c.entries[name] = s
	c.mu.Unlock()

	c.log("debug", "Loaded %d jobs from %s", len(jobs), name)
	return s, nil
}

// Resident reports whether name is currently cached.
func (c *ShardCache) Resident(name string) bool {
	return c.lookup(name) != nil
}

// Names returns the resident shard names in sorted order.
func (c *ShardCache) Names() []string {
	c.mu.Lock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	c.mu.Unlock()
	sort.Strings(names)
	return names
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Fetches uint64
}

// Stats returns the current counters.
func (c *ShardCache) Stats() CacheStats {
	return CacheStats{
		Hits:    atomic.LoadUint64(&c.statHits),
		Misses:  atomic.LoadUint64(&c.statMisses),
		Fetches: atomic.LoadUint64(&c.statFetches),
	}
}
