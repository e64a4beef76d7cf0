package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsIngestor/internal/ports"
)

const connectionTimeout = 2 * time.Second

// RedisGate is a fast seen-link cache in front of the authoritative store.
// It never decides correctness; the sink's unique key does.
type RedisGate struct {
	client   *redis.Client
	key      string
	ttl      time.Duration
	fallback ports.DuplicateGate
}

var (
	_ ports.DuplicateGate = (*RedisGate)(nil)
	_ ports.SeenRecorder  = (*RedisGate)(nil)
)

// NewRedisClient creates a Redis client and tests the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisGate builds the gate. A miss is confirmed against fallback when set.
func NewRedisGate(client *redis.Client, key string, ttl time.Duration, fallback ports.DuplicateGate) *RedisGate {
	if key == "" {
		key = "newsingestor:seen"
	}
	return &RedisGate{client: client, key: key, ttl: ttl, fallback: fallback}
}

// Known checks the cache, then the fallback; fallback hits warm the cache.
func (g *RedisGate) Known(ctx context.Context, link string) (bool, error) {
	seen, err := g.client.SIsMember(ctx, g.key, link).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	if seen || g.fallback == nil {
		return seen, nil
	}

	known, err := g.fallback.Known(ctx, link)
	if err != nil {
		return false, err
	}
	if known {
		if err := g.Remember(ctx, link); err != nil {
			return true, err
		}
	}
	return known, nil
}

// Remember adds link to the seen set and refreshes its TTL.
func (g *RedisGate) Remember(ctx context.Context, link string) error {
	pipe := g.client.TxPipeline()
	pipe.SAdd(ctx, g.key, link)
	if g.ttl > 0 {
		pipe.Expire(ctx, g.key, g.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis remember: %w", err)
	}
	return nil
}
