// Package kv provides the key-value collaborator every domain repository
// persists through: JSON records addressed by string keys, with prefix scans
// and an atomic read-modify-write primitive.
package kv

import (
	"context"
	"time"
)

// Store is the durable record surface shared by all repositories.
type Store interface {
	// Get unmarshals the record at key into dest and reports whether it exists.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set marshals value as JSON and stores it at key.
	Set(ctx context.Context, key string, value any) error
	// GetByPrefix returns the raw JSON of every record whose key starts with
	// prefix. Order is unspecified; callers re-sort.
	GetByPrefix(ctx context.Context, prefix string) ([][]byte, error)
	// Update applies fn to the record at key inside a check-and-set boundary:
	// concurrent Updates on the same key never interleave between the read and
	// the write. fn receives the current raw value (nil when absent) and
	// returns the replacement value, or an error to abort without writing.
	Update(ctx context.Context, key string, fn func(raw []byte) (any, error)) error
	// Delete removes the provided keys.
	Delete(ctx context.Context, keys ...string) error
}

// EphemeralStore covers the TTL-bound surface used by sessions.
type EphemeralStore interface {
	SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Limiter applies a fixed-window rate limit keyed by scope.
type Limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}
