// Package bridge routes the host's generic HTTP dispatch point through the
// engine. It translates request arguments into engine options, adapts the
// engine's hooks onto the host registry and normalizes the engine response.
package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/af-corp/reqbridge/internal/engine"
	"github.com/af-corp/reqbridge/internal/hooks"
	"github.com/af-corp/reqbridge/internal/host"
	"github.com/af-corp/reqbridge/internal/telemetry"
	"github.com/af-corp/reqbridge/internal/types"
)

// HandlerPriority places the bridge ahead of every other pre_http_request
// handler.
const HandlerPriority = -100

// Requester is the engine call the bridge drives.
type Requester interface {
	Request(ctx context.Context, rawURL string, headers map[string]string, body []byte, method string, opts engine.Options) (*engine.Response, error)
}

// Config wires a Bridge. Sanitizer, Blocker and Metrics are optional.
type Config struct {
	Engine    Requester
	Hooks     *hooks.Registry
	Env       Env
	Sanitizer Sanitizer
	Blocker   BlockChecker
	Metrics   *telemetry.Metrics
}

// Bridge executes host requests through the engine.
type Bridge struct {
	engine     Requester
	hooks      *hooks.Registry
	adapter    *HookAdapter
	translator *Translator
	normalizer *Normalizer
	metrics    *telemetry.Metrics
}

// New builds a bridge from cfg. A nil Hooks gets a fresh registry.
func New(cfg Config) *Bridge {
	if cfg.Hooks == nil {
		cfg.Hooks = hooks.NewRegistry()
	}
	adapter := NewHookAdapter(cfg.Hooks, cfg.Metrics)
	return &Bridge{
		engine:     cfg.Engine,
		hooks:      cfg.Hooks,
		adapter:    adapter,
		translator: NewTranslator(cfg.Env, cfg.Sanitizer, cfg.Blocker, cfg.Hooks, adapter, cfg.Metrics),
		normalizer: NewNormalizer(cfg.Env),
		metrics:    cfg.Metrics,
	}
}

// Hooks returns the adapter engine hooks are registered through.
func (b *Bridge) Hooks() *HookAdapter { return b.adapter }

// Register installs the bridge as the pre_http_request handler.
func (b *Bridge) Register(reg *hooks.Registry) {
	reg.AddFilter(host.FilterPreHTTPRequest, b.handle, HandlerPriority)
}

func (b *Bridge) handle(ctx context.Context, e *hooks.Event) {
	args, ok := e.Arg(0).(types.RequestArgs)
	if !ok {
		slog.Warn("pre_http_request called without request args")
		return
	}
	if url, ok := e.Arg(1).(string); ok {
		args.URL = url
	}
	resp, err := b.Execute(ctx, args)
	e.Value = host.Result{Response: resp, Err: err}
}

// Execute runs one request. It returns a *Error on failure.
func (b *Bridge) Execute(ctx context.Context, args types.RequestArgs) (*types.Response, error) {
	start := time.Now()

	call, terr := b.translator.Translate(ctx, args)
	if terr != nil {
		outcome := telemetry.OutcomeError
		if terr.Kind == KindRequestBlocked {
			outcome = telemetry.OutcomeBlocked
		}
		b.metrics.RecordRequest(args.Method, outcome, 0, msSince(start))
		return nil, terr
	}

	resp, err := b.engine.Request(ctx, call.URL, call.Headers, call.Body, call.Method, call.Options)
	if err != nil {
		ferr := engineFailed(err)
		b.hooks.DoAction(ctx, host.ActionHTTPAPIDebug, ferr, "response", "Requests", call.Args, call.URL)
		b.metrics.RecordRequest(call.Method, telemetry.OutcomeError, 0, msSince(start))
		slog.Warn("request failed", "url", call.URL, "method", call.Method, "error", err)
		return nil, ferr
	}
	b.hooks.DoAction(ctx, host.ActionHTTPAPIDebug, resp, "response", "Requests", call.Args, call.URL)

	out := b.normalizer.Normalize(resp, call.Args)
	b.metrics.RecordRequest(call.Method, telemetry.OutcomeOK, resp.StatusCode, msSince(start))
	if !call.Args.Blocking {
		return out, nil
	}

	if v, ok := b.hooks.ApplyFilters(ctx, host.FilterHTTPResponse, out, call.Args, call.URL).(*types.Response); ok && v != nil {
		out = v
	}
	return out, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
