package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and local tooling. A single
// mutex serializes Update calls, which gives the same per-key atomicity
// guarantee as the redis WATCH path.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
	expiry  map[string]time.Time
	windows map[string]*rateWindow
}

type rateWindow struct {
	count int64
	reset time.Time
}

var _ Store = (*Memory)(nil)
var _ EphemeralStore = (*Memory)(nil)
var _ Limiter = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string][]byte),
		expiry:  make(map[string]time.Time),
		windows: make(map[string]*rateWindow),
	}
}

func (m *Memory) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.live(key)
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("kv decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.records[key] = raw
	delete(m.expiry, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out [][]byte
	for key := range m.records {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if raw, ok := m.live(key); ok {
			out = append(out, raw)
		}
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, key string, fn func(raw []byte) (any, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, _ := m.live(key)
	next, err := fn(raw)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	m.records[key] = encoded
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.records, key)
		delete(m.expiry, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetWithTTL(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	m.records[key] = []byte(value)
	if ttl > 0 {
		m.expiry[key] = time.Now().Add(ttl)
	} else {
		delete(m.expiry, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetString(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	raw, ok := m.live(key)
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	return string(raw), true, nil
}

func (m *Memory) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := RateLimitKey(scope)
	win := m.windows[key]
	now := time.Now()
	if win == nil || now.After(win.reset) {
		win = &rateWindow{reset: now.Add(window)}
		m.windows[key] = win
	}
	win.count++
	return win.count <= limit, win.count, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// live returns the raw value at key unless a TTL has lapsed. Callers hold mu.
func (m *Memory) live(key string) ([]byte, bool) {
	raw, ok := m.records[key]
	if !ok {
		return nil, false
	}
	if deadline, has := m.expiry[key]; has && time.Now().After(deadline) {
		return nil, false
	}
	return raw, true
}
