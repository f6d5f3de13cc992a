package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexusfeed/nexusfeed/internal/config"
	"github.com/nexusfeed/nexusfeed/internal/model"
)

// Cache keeps the latest ticker per (source, symbol) in Redis. It is a
// read-through convenience for the HTTP surface; cache failures are never
// fatal to the polling path.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Cache{client: client, ttl: cfg.TTL}, nil
}

func key(source, symbol string) string {
	return fmt.Sprintf("ticker:latest:%s:%s", source, symbol)
}

// SetTicker stores the latest ticker for its (source, symbol).
func (c *Cache) SetTicker(ctx context.Context, rec model.Ticker) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal ticker: %w", err)
	}
	if err := c.client.Set(ctx, key(rec.Source, rec.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set latest ticker: %w", err)
	}
	return nil
}

// GetTicker returns the cached latest ticker, or nil when none is cached.
func (c *Cache) GetTicker(ctx context.Context, source, symbol string) (*model.Ticker, error) {
	data, err := c.client.Get(ctx, key(source, symbol)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest ticker: %w", err)
	}

	var rec model.Ticker
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal ticker: %w", err)
	}
	return &rec, nil
}

// Ping verifies the connection is healthy.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
