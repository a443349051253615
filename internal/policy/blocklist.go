package policy

import (
	"context"
	"log/slog"
	"strings"

	"github.com/af-corp/reqbridge/internal/config"
	"github.com/redis/go-redis/v9"
)

// Blocklist blocks hosts stored in a Redis set. A host is blocked when it or
// any parent domain is a member. Redis errors fail open.
type Blocklist struct {
	rdb redis.UniversalClient
	cfg func() config.BlocklistConfig
}

func NewBlocklist(rdb redis.UniversalClient, cfg func() config.BlocklistConfig) *Blocklist {
	return &Blocklist{rdb: rdb, cfg: cfg}
}

func (b *Blocklist) Name() string { return "blocklist" }

func (b *Blocklist) Enabled() bool { return b.rdb != nil && b.cfg().Enabled }

func (b *Blocklist) Check(ctx context.Context, t Target) Decision {
	host := strings.ToLower(t.URL.Hostname())
	candidates := domainSuffixes(host)
	members := make([]any, len(candidates))
	for i, c := range candidates {
		members[i] = c
	}

	found, err := b.rdb.SMIsMember(ctx, b.cfg().Key, members...).Result()
	if err != nil {
		slog.Warn("blocklist lookup failed, allowing request", "host", host, "error", err)
		return Decision{}
	}
	for i, hit := range found {
		if hit {
			return Decision{Blocked: true, Checker: b.Name(), Reason: "host " + candidates[i] + " is blocklisted"}
		}
	}
	return Decision{}
}

// Add puts hosts on the blocklist.
func (b *Blocklist) Add(ctx context.Context, hosts ...string) error {
	if len(hosts) == 0 {
		return nil
	}
	return b.rdb.SAdd(ctx, b.cfg().Key, lowerAll(hosts)...).Err()
}

// Remove takes hosts off the blocklist.
func (b *Blocklist) Remove(ctx context.Context, hosts ...string) error {
	if len(hosts) == 0 {
		return nil
	}
	return b.rdb.SRem(ctx, b.cfg().Key, lowerAll(hosts)...).Err()
}

// List returns the blocklisted hosts.
func (b *Blocklist) List(ctx context.Context) ([]string, error) {
	return b.rdb.SMembers(ctx, b.cfg().Key).Result()
}

// domainSuffixes returns host followed by each parent domain, stopping
// before the top-level label: "a.b.example.com" yields itself,
// "b.example.com" and "example.com".
func domainSuffixes(host string) []string {
	out := []string{host}
	if strings.Count(host, ".") < 2 || strings.Trim(host, "0123456789.") == "" {
		return out
	}
	rest := host
	for {
		_, after, ok := strings.Cut(rest, ".")
		if !ok || !strings.Contains(after, ".") {
			return out
		}
		out = append(out, after)
		rest = after
	}
}

func lowerAll(hosts []string) []any {
	out := make([]any, len(hosts))
	for i, h := range hosts {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}
