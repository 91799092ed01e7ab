package kv

import (
	"testing"
	"time"

	"github.com/agrilink/agrilink-backend/pkg/config"
)

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:secret@localhost:6380/2",
		PoolSize:    7,
		DialTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 7 {
		t.Fatalf("pool size should fall back to config, got %d", opts.PoolSize)
	}
	if opts.DialTimeout != 3*time.Second {
		t.Fatalf("unexpected dial timeout %v", opts.DialTimeout)
	}
}

func TestOptionsFromConfigAddressFallback(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "127.0.0.1:6379", Password: "pw", DB: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "127.0.0.1:6379" || opts.Password != "pw" || opts.DB != 1 {
		t.Fatalf("address config not applied: %+v", opts)
	}
}

func TestKeyBuilders(t *testing.T) {
	if got := RateLimitKey("login:ip:1.2.3.4"); got != "al:rate_limit:login:ip:1.2.3.4" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := SessionKey("abc"); got != "al:session:abc" {
		t.Fatalf("unexpected session key %s", got)
	}
}
