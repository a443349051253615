package policy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/af-corp/reqbridge/internal/config"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then adds the current
// request when the count is still under the limit.
// KEYS[1] sorted set, ARGV: window start, now (unix micro), limit, ttl seconds.
// Returns {count, allowed}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)
redis.call('EXPIRE', key, ttl)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    return {count + 1, 1}
end
return {count, 0}
`)

// HostLimiter caps outgoing requests per destination host. Counters are
// shared through Redis so every instance sees the same window. Redis errors
// fail open.
type HostLimiter struct {
	rdb redis.UniversalClient
	cfg func() config.RateLimitConfig
	now func() time.Time
}

func NewHostLimiter(rdb redis.UniversalClient, cfg func() config.RateLimitConfig) *HostLimiter {
	return &HostLimiter{rdb: rdb, cfg: cfg, now: time.Now}
}

func (l *HostLimiter) Name() string { return "ratelimit" }

func (l *HostLimiter) Enabled() bool {
	c := l.cfg()
	return l.rdb != nil && c.Enabled && c.Requests > 0 && c.Window > 0
}

func (l *HostLimiter) Check(ctx context.Context, t Target) Decision {
	c := l.cfg()
	host := strings.ToLower(t.URL.Hostname())

	now := l.now()
	res, err := slidingWindow.Run(ctx, l.rdb, []string{c.KeyPrefix + ":" + host},
		now.Add(-c.Window).UnixMicro(), now.UnixMicro(), c.Requests, int64(c.Window.Seconds())+1,
	).Int64Slice()
	if err != nil || len(res) != 2 {
		slog.Warn("rate limit check failed, allowing request", "host", host, "error", err)
		return Decision{}
	}
	if res[1] == 1 {
		return Decision{}
	}
	return Decision{
		Blocked: true,
		Checker: l.Name(),
		Reason:  "Too many requests to " + host + ", try again later.",
	}
}
