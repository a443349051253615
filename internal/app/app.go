// Package app assembles the host, the engine and the bridge from config.
package app

import (
	"fmt"
	"log/slog"

	"github.com/af-corp/reqbridge/internal/audit"
	"github.com/af-corp/reqbridge/internal/bridge"
	"github.com/af-corp/reqbridge/internal/config"
	"github.com/af-corp/reqbridge/internal/engine"
	"github.com/af-corp/reqbridge/internal/hooks"
	"github.com/af-corp/reqbridge/internal/host"
	"github.com/af-corp/reqbridge/internal/policy"
	"github.com/af-corp/reqbridge/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

// Deps are the external resources the app may use. All are optional.
type Deps struct {
	Fs      afero.Fs
	Redis   redis.UniversalClient
	DB      audit.DB
	Metrics *telemetry.Metrics
}

// App is a wired request stack.
type App struct {
	Registry  *hooks.Registry
	Client    *host.Client
	Bridge    *bridge.Bridge
	Env       *host.Env
	Sanitizer *host.Sanitizer
	Chain     *policy.Chain
	Evaluator *policy.Evaluator
	Blocklist *policy.Blocklist
	Limiter   *policy.HostLimiter
	Circuits  *policy.Circuits
	Recorder  *audit.Recorder

	cfg func() *config.Config
}

// New wires the stack. cfg is read on every request so reloaded settings
// apply without a restart.
func New(cfg func() *config.Config, deps Deps) (*App, error) {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	c := cfg()

	reg := hooks.NewRegistry()
	env := host.NewEnv(deps.Fs, c.HTTP.TempDir)

	evaluator := policy.NewEvaluator(deps.Fs, func() config.RegoConfig { return cfg().Policy.Rego })
	if c.Policy.Rego.Enabled {
		if err := evaluator.Load(); err != nil {
			return nil, fmt.Errorf("load policies: %w", err)
		}
	}
	blocklist := policy.NewBlocklist(deps.Redis, func() config.BlocklistConfig { return cfg().Policy.Blocklist })
	limiter := policy.NewHostLimiter(deps.Redis, func() config.RateLimitConfig { return cfg().Policy.RateLimit })
	circuits := policy.NewCircuits(func() config.CircuitConfig { return cfg().Policy.Circuit })
	circuits.Subscribe(reg)
	// The limiter runs last so refused requests never take a slot. A
	// half-open probe it refuses is released after the recovery interval.
	chain := policy.NewChain(
		policy.NewHostPolicy(func() config.PolicyConfig { return cfg().Policy }),
		blocklist,
		evaluator,
		circuits,
		limiter,
	)
	sanitizer := host.NewSanitizer(c.Policy.SiteHost)

	eng := engine.New(engine.Config{
		MaxIdleConns:        c.Engine.MaxIdleConns,
		MaxIdleConnsPerHost: c.Engine.MaxIdleConnsPerHost,
		IdleConnTimeout:     c.Engine.IdleConnTimeout,
		Fs:                  deps.Fs,
	})

	b := bridge.New(bridge.Config{
		Engine:    eng,
		Hooks:     reg,
		Env:       env,
		Sanitizer: sanitizer,
		Blocker:   chain,
		Metrics:   deps.Metrics,
	})
	b.Register(reg)

	a := &App{
		Registry:  reg,
		Client:    host.NewClient(reg, c.HTTP.Defaults(), nil),
		Bridge:    b,
		Env:       env,
		Sanitizer: sanitizer,
		Chain:     chain,
		Evaluator: evaluator,
		Blocklist: blocklist,
		Limiter:   limiter,
		Circuits:  circuits,
		cfg:       cfg,
	}

	if c.Audit.Enabled && deps.DB != nil {
		a.Recorder = audit.NewRecorder(deps.DB, c.Audit.WriteTimeout)
		a.Recorder.Subscribe(reg)
	}
	return a, nil
}

// Reload applies the current config: host defaults, temp dir, site host and
// policies. Engine pool settings take effect on restart only.
func (a *App) Reload() {
	c := a.cfg()
	a.Client.SetDefaults(c.HTTP.Defaults())
	a.Env.SetTempDir(c.HTTP.TempDir)
	a.Sanitizer.SetSiteHost(c.Policy.SiteHost)
	if !c.Policy.Rego.Enabled {
		return
	}
	if err := a.Evaluator.Load(); err != nil {
		slog.Error("failed to reload policies", "error", err)
	}
}

// Close waits for pending audit writes.
func (a *App) Close() {
	if a.Recorder != nil {
		a.Recorder.Wait()
	}
}
