package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"migitrader/internal/adapters/config"
	"migitrader/pkg/errors"
	"migitrader/pkg/logger"
)

// Delay between connection attempts grows by 100ms per attempt, capped at 3s
const (
	connectDelayStep = 100 * time.Millisecond
	connectDelayCap  = 3 * time.Second
)

// Client wraps a Redis connection with a lazy, bounded connect policy.
// The connection is established on first use and reused; Connect is
// idempotent and safe for concurrent callers.
type Client struct {
	cfg config.RedisConfig
	log *logger.Logger

	mu        sync.Mutex
	rdb       *redis.Client
	connected bool
}

// NewClient creates a client without touching the network
func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		cfg: cfg,
		log: logger.Get().With("component", "redis"),
	}
}

// Connect establishes the connection if not already connected.
// Retries with an increasing, capped delay and gives up after the
// configured number of attempts, surfacing ErrCacheUnavailable.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	attempts := c.cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.cfg.Addr(),
			Password: c.cfg.Password,
			DB:       c.cfg.DB,
		})

		err := rdb.Ping(ctx).Err()
		if err == nil {
			c.rdb = rdb
			c.connected = true
			c.log.Infow("Redis connected", "addr", c.cfg.Addr(), "attempt", attempt)
			return nil
		}

		lastErr = err
		_ = rdb.Close()
		c.log.Warnw("Redis connection attempt failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)

		if attempt < attempts {
			delay := time.Duration(attempt) * connectDelayStep
			if delay > connectDelayCap {
				delay = connectDelayCap
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return errors.Wrapf(errors.ErrCacheUnavailable, "giving up after %d attempts: %v", attempts, lastErr)
}

// Set stores a JSON-serialized value with a TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal value for key %s", key)
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// Get retrieves the raw value for a key.
// Returns redis.Nil (unwrapped) when the key is absent, so callers can
// distinguish "no data" from transport failures.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.rdb.Get(ctx, key).Bytes()
}

// Delete deletes keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Exists checks if a key exists
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.Connect(ctx); err != nil {
		return false, err
	}
	count, err := c.rdb.Exists(ctx, key).Result()
	return count > 0, err
}

// Health checks Redis connectivity
func (c *Client) Health(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.rdb.Ping(ctx).Err()
}

// Close closes the connection; the client may be reconnected later
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false
	err := c.rdb.Close()
	c.rdb = nil
	return err
}
