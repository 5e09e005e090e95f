package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces snapshot blobs in Redis.
const DefaultRedisPrefix = "mozci:buildjson:"

// RedisStore keeps blobs in Redis so several hosts can share one download.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// DialRedisStore connects to the Redis server at url. A zero ttl keeps blobs
// until they are deleted.
func DialRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStore(client, ttl), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

// Get reads the blob for name.
func (s *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from Redis: %w", name, err)
	}
	return data, nil
}

// Put stores the blob for name.
func (s *RedisStore) Put(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s to Redis: %w", name, err)
	}
	return nil
}

// Delete removes the blob for name.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from Redis: %w", name, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
