package policy

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/af-corp/reqbridge/internal/config"
	"github.com/af-corp/reqbridge/internal/engine"
	"github.com/af-corp/reqbridge/internal/hooks"
	"github.com/af-corp/reqbridge/internal/host"
)

// CircuitState is the state of one host's breaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // requests flow
	StateOpen                         // requests refused
	StateHalfOpen                     // one probe allowed
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type breaker struct {
	state    CircuitState
	failures int
	openedAt time.Time
	probeAt  time.Time
}

// Circuits keeps a breaker per destination host. Outcomes arrive through the
// http_api_debug action; Check refuses hosts whose breaker is open.
type Circuits struct {
	mu    sync.Mutex
	hosts map[string]*breaker
	cfg   func() config.CircuitConfig
	now   func() time.Time
}

func NewCircuits(cfg func() config.CircuitConfig) *Circuits {
	return &Circuits{hosts: make(map[string]*breaker), cfg: cfg, now: time.Now}
}

func (c *Circuits) Name() string { return "circuit" }

func (c *Circuits) Enabled() bool { return c.cfg().Enabled }

// Subscribe feeds request outcomes into the breakers.
func (c *Circuits) Subscribe(reg *hooks.Registry) {
	reg.AddAction(host.ActionHTTPAPIDebug, c.onDebug, hooks.DefaultPriority)
}

func (c *Circuits) Check(_ context.Context, t Target) Decision {
	h := strings.ToLower(t.URL.Hostname())
	if c.allow(h) {
		return Decision{}
	}
	return Decision{
		Blocked: true,
		Checker: c.Name(),
		Reason:  "Requests to " + h + " are suspended after repeated failures.",
	}
}

// State reports the breaker state for host.
func (c *Circuits) State(h string) CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.hosts[strings.ToLower(h)]
	if !ok {
		return StateClosed
	}
	return c.current(b)
}

// Reset closes every breaker.
func (c *Circuits) Reset() {
	c.mu.Lock()
	c.hosts = make(map[string]*breaker)
	c.mu.Unlock()
}

// current moves an open breaker to half-open once the recovery interval has
// passed. Must be called with mu held.
func (c *Circuits) current(b *breaker) CircuitState {
	if b.state == StateOpen && c.now().Sub(b.openedAt) >= c.cfg().RecoveryInterval {
		b.state = StateHalfOpen
		b.probeAt = time.Time{}
	}
	return b.state
}

func (c *Circuits) allow(h string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.hosts[h]
	if !ok {
		return true
	}
	switch c.current(b) {
	case StateClosed:
		return true
	case StateHalfOpen:
		// A probe that never reported back frees the slot after one
		// recovery interval.
		now := c.now()
		if !b.probeAt.IsZero() && now.Sub(b.probeAt) < c.cfg().RecoveryInterval {
			return false
		}
		b.probeAt = now
		return true
	}
	return false
}

func (c *Circuits) record(h string, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.hosts[h]
	if !ok {
		if !failed {
			return
		}
		b = &breaker{}
		c.hosts[h] = b
	}

	if !failed {
		if b.state != StateOpen {
			delete(c.hosts, h)
		}
		return
	}

	b.failures++
	switch c.current(b) {
	case StateClosed:
		if b.failures >= c.cfg().FailureThreshold {
			b.state = StateOpen
			b.openedAt = c.now()
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = c.now()
		b.probeAt = time.Time{}
	}
}

// onDebug reads the outcome (engine response or error) and the URL from the
// http_api_debug arguments. 5xx responses count as failures.
func (c *Circuits) onDebug(_ context.Context, e *hooks.Event) {
	if !c.Enabled() {
		return
	}
	raw, _ := e.Arg(4).(string)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	h := strings.ToLower(u.Hostname())

	switch v := e.Arg(0).(type) {
	case *engine.Response:
		c.record(h, v.StatusCode >= 500)
	case error:
		c.record(h, true)
	}
}
