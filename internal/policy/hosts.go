package policy

import (
	"context"
	"path"
	"strings"

	"github.com/af-corp/reqbridge/internal/config"
)

// HostPolicy blocks requests to external hosts unless they are listed in
// the accessible hosts. Requests to localhost and the site host are allowed
// unless block_local is set.
type HostPolicy struct {
	cfg func() config.PolicyConfig
}

func NewHostPolicy(cfg func() config.PolicyConfig) *HostPolicy {
	return &HostPolicy{cfg: cfg}
}

func (h *HostPolicy) Name() string  { return "hosts" }
func (h *HostPolicy) Enabled() bool { return h.cfg().BlockExternal }

func (h *HostPolicy) Check(_ context.Context, t Target) Decision {
	cfg := h.cfg()
	host := strings.ToLower(t.URL.Hostname())

	if host == "localhost" || (cfg.SiteHost != "" && strings.EqualFold(host, cfg.SiteHost)) {
		if cfg.BlockLocal {
			return h.block("local requests are blocked")
		}
		return Decision{}
	}

	for _, pattern := range cfg.AccessibleHosts {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == host {
			return Decision{}
		}
		if strings.Contains(pattern, "*") {
			if ok, _ := path.Match(pattern, host); ok {
				return Decision{}
			}
		}
	}
	return h.block("User has blocked requests through HTTP.")
}

func (h *HostPolicy) block(reason string) Decision {
	return Decision{Blocked: true, Checker: h.Name(), Reason: reason}
}
