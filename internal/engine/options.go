package engine

import (
	"context"
	"net/http"
	"time"
)

// Hook names fired by the engine during a request.
const (
	HookBeforeRequest  = "requests.before_request"
	HookBeforeRedirect = "requests.before_redirect"
	HookAfterRequest   = "requests.after_request"
	HookFailed         = "requests.failed"
)

// DefaultRedirects caps redirect following when no explicit limit is given.
const DefaultRedirects = 10

// HookFunc is an instrumentation callback. params is the full bundle passed
// to Dispatch; pointer entries may be modified in place.
type HookFunc func(ctx context.Context, params ...any)

// Hooker is the registration/dispatch capability the engine fires its
// instrumentation through.
type Hooker interface {
	Register(hook string, fn HookFunc, priority int)
	Dispatch(ctx context.Context, hook string, params ...any) bool
}

// Verify selects TLS certificate verification. With Enabled set and an empty
// CABundle the system roots are used.
type Verify struct {
	Enabled  bool
	CABundle string
}

// VerifyOff disables certificate verification.
var VerifyOff = Verify{}

// Options is the per-call option set accepted by Request.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Blocking  bool
	Hooks     Hooker

	// Filename, when set, receives the response body instead of memory.
	Filename string

	FollowRedirects bool
	Redirects       int

	Cookies []*http.Cookie
	Verify  Verify
}

type nopHooks struct{}

func (nopHooks) Register(string, HookFunc, int)                {}
func (nopHooks) Dispatch(context.Context, string, ...any) bool { return true }
