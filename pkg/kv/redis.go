package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrilink/agrilink-backend/pkg/config"
	pkgerrors "github.com/agrilink/agrilink-backend/pkg/errors"
)

const (
	keyNamespace    = "al"
	rateLimitPrefix = "rate_limit"
	sessionPrefix   = "session"

	// casAttempts bounds the optimistic retry loop in Update. Contention on a
	// single listing rarely survives more than a couple of rounds.
	casAttempts = 16
)

// Client is the redis-backed Store/EphemeralStore/Limiter implementation.
type Client struct {
	raw *redis.Client
}

var _ Store = (*Client)(nil)
var _ EphemeralStore = (*Client)(nil)
var _ Limiter = (*Client)(nil)

// NewClient bootstraps a redis client with pooling/timeouts and verifies connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Get unmarshals the JSON record at key into dest.
func (c *Client) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.raw.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("kv decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value as JSON at key with no expiry.
func (c *Client) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	if err := c.raw.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// GetByPrefix scans for keys with the prefix and fetches their values.
func (c *Client) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	var keys []string
	iter := c.raw.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv scan %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := c.raw.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("kv mget %s: %w", prefix, err)
	}
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		switch typed := v.(type) {
		case string:
			out = append(out, []byte(typed))
		case []byte:
			out = append(out, typed)
		}
	}
	return out, nil
}

// Update runs fn under WATCH so the read-check-write sequence is atomic per
// key. Concurrent writers force a retry instead of a lost update.
func (c *Client) Update(ctx context.Context, key string, fn func(raw []byte) (any, error)) error {
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			raw = nil
		} else if err != nil {
			return fmt.Errorf("kv get %s: %w", key, err)
		}

		next, err := fn(raw)
		if err != nil {
			return err
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("kv encode %s: %w", key, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		err := c.raw.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return pkgerrors.New(pkgerrors.CodeDependency, "kv update contention exhausted retries")
}

// Delete removes the provided keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.raw.Del(ctx, keys...).Err()
}

// SetWithTTL stores a string value that expires after ttl.
func (c *Client) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.raw.Set(ctx, key, value, ttl).Err()
}

// GetString returns the raw string stored at key.
func (c *Client) GetString(ctx context.Context, key string) (string, bool, error) {
	val, err := c.raw.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// FixedWindowAllow applies a simple fixed-window rate limit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	key := RateLimitKey(scope)
	count, err := c.raw.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if window > 0 && count == 1 {
		if err := c.raw.Expire(ctx, key, window).Err(); err != nil {
			return count <= limit, count, err
		}
	}
	return count <= limit, count, nil
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.raw.Ping(ctx).Err()
}

// Close shuts down the underlying client.
func (c *Client) Close() error {
	return c.raw.Close()
}

// RateLimitKey returns a namespaced key for rate limit counters.
func RateLimitKey(scope string) string {
	return keyNamespace + ":" + rateLimitPrefix + ":" + scope
}

// SessionKey returns a namespaced key for access-token sessions.
func SessionKey(sessionID string) string {
	return keyNamespace + ":" + sessionPrefix + ":" + sessionID
}
