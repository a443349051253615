package bridge

import (
	"context"

	"github.com/af-corp/reqbridge/internal/engine"
	"github.com/af-corp/reqbridge/internal/hooks"
	"github.com/af-corp/reqbridge/internal/telemetry"
)

const (
	// HookPrefix namespaces engine hooks inside the host registry.
	HookPrefix = "requests-"
	// PriorityOffset shifts engine priorities (default 0) onto the host
	// scale (default 10).
	PriorityOffset = hooks.DefaultPriority
)

// HookAdapter lets the engine register and fire its hooks through the host
// registry.
type HookAdapter struct {
	reg     *hooks.Registry
	metrics *telemetry.Metrics
}

// NewHookAdapter returns an adapter over reg. metrics may be nil.
func NewHookAdapter(reg *hooks.Registry, metrics *telemetry.Metrics) *HookAdapter {
	return &HookAdapter{reg: reg, metrics: metrics}
}

// Register subscribes fn to the prefixed engine hook at priority plus the offset.
func (a *HookAdapter) Register(hook string, fn engine.HookFunc, priority int) {
	a.reg.AddFilter(HookPrefix+hook, func(ctx context.Context, e *hooks.Event) {
		fn(ctx, e.Args...)
	}, priority+PriorityOffset)
}

// Dispatch fires hook with params. The registry cannot tell an event nobody
// listens to from one that ran, so it always reports true.
func (a *HookAdapter) Dispatch(ctx context.Context, hook string, params ...any) bool {
	a.metrics.RecordHookDispatch(hook)
	a.reg.DoAction(ctx, HookPrefix+hook, params...)
	return true
}
