package policy

import (
	"context"
	"testing"
	"time"

	"github.com/af-corp/reqbridge/internal/config"
	"github.com/redis/go-redis/v9"
)

func rateCfg() func() config.RateLimitConfig {
	return func() config.RateLimitConfig {
		return config.RateLimitConfig{Enabled: true, Requests: 10, Window: time.Minute, KeyPrefix: "rl"}
	}
}

func TestHostLimiter_NilRedisDisabled(t *testing.T) {
	if NewHostLimiter(nil, rateCfg()).Enabled() {
		t.Error("limiter without redis must be disabled")
	}
}

func TestHostLimiter_ZeroWindowDisabled(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	l := NewHostLimiter(rdb, func() config.RateLimitConfig {
		return config.RateLimitConfig{Enabled: true, Requests: 10}
	})
	if l.Enabled() {
		t.Error("limiter without a window must be disabled")
	}
}

func TestHostLimiter_RedisDown_FailOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	l := NewHostLimiter(rdb, rateCfg())
	if !l.Enabled() {
		t.Fatal("expected limiter enabled")
	}
	if d := l.Check(context.Background(), target(t, "https://example.com/")); d.Blocked {
		t.Errorf("redis failure should fail open, got %+v", d)
	}
}
