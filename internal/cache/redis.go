package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"timerdeck/internal/config"
	"timerdeck/internal/storage"
	"timerdeck/pkg/logger"
)

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client (initialized on first use).
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err, "url", cfg.RedisURL)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		client = redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			return
		}
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

// Backend stores the timer collection under a single Redis string key.
type Backend struct {
	client *redis.Client
	key    string
}

// NewBackend returns a storage backend writing to key. No TTL is set.
func NewBackend(c *redis.Client, key string) *Backend {
	return &Backend{client: c, key: key}
}

// Key is the Redis key holding the collection.
func (b *Backend) Key() string {
	return b.key
}

func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	if b.client == nil {
		return nil, errors.New("redis client unavailable")
	}
	data, err := b.client.Get(ctx, b.key).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}
	return data, nil
}

func (b *Backend) Write(ctx context.Context, data []byte) error {
	if b.client == nil {
		return errors.New("redis client unavailable")
	}
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

// Quarantine renames an unreadable value to <key>:corrupt.
func (b *Backend) Quarantine(ctx context.Context) error {
	if b.client == nil {
		return errors.New("redis client unavailable")
	}
	return b.client.Rename(ctx, b.key, b.key+":corrupt").Err()
}

func (b *Backend) Ping(ctx context.Context) error {
	if b.client == nil {
		return errors.New("redis client unavailable")
	}
	return b.client.Ping(ctx).Err()
}
