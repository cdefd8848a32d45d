// Package redis caches the latest signal per market and timeframe and fans
// signals out over Pub/Sub for the gateway and any external subscribers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"cryptosignals/internal/holdperiod"
	"cryptosignals/internal/model"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Cache holds the latest signal per market:timeframe key with a TTL equal to
// the timeframe's hold period, and publishes each signal on a Pub/Sub channel.
type Cache struct {
	client *goredis.Client
}

// NewCache connects to Redis and pings the server.
func NewCache(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{client: client}, nil
}

// NewCacheWithClient wraps an existing client. Used by tests with redismock.
func NewCacheWithClient(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

func latestKey(marketID string, tf model.Timeframe) string {
	return "signal:latest:" + marketID + ":" + string(tf)
}

// PubSubChannel returns the channel a signal for the given key is published on.
func PubSubChannel(marketID string, tf model.Timeframe) string {
	return "pub:signal:" + string(tf) + ":" + marketID
}

// SetLatest caches a signal under its market:timeframe key. The TTL matches
// the hold period so a stale entry can never outlive its own window.
func (c *Cache) SetLatest(ctx context.Context, sig *model.Signal) error {
	data := sig.JSON()
	ttl := holdperiod.For(sig.Timeframe)
	if err := c.client.Set(ctx, latestKey(sig.MarketID, sig.Timeframe), string(data), ttl).Err(); err != nil {
		return fmt.Errorf("redis set latest %s: %w", sig.Key(), err)
	}
	return nil
}

// GetLatest returns the cached signal for a market and timeframe, or
// (nil, nil) on a cache miss.
func (c *Cache) GetLatest(ctx context.Context, marketID string, tf model.Timeframe) (*model.Signal, error) {
	data, err := c.client.Get(ctx, latestKey(marketID, tf)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get latest %s:%s: %w", marketID, tf, err)
	}

	var sig model.Signal
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		return nil, fmt.Errorf("unmarshal cached signal: %w", err)
	}
	return &sig, nil
}

// Publish broadcasts a signal on its Pub/Sub channel.
func (c *Cache) Publish(ctx context.Context, sig *model.Signal) error {
	ch := PubSubChannel(sig.MarketID, sig.Timeframe)
	if err := c.client.Publish(ctx, ch, string(sig.JSON())).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ch, err)
	}
	return nil
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
