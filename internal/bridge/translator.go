package bridge

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"path"
	"path/filepath"

	"github.com/af-corp/reqbridge/internal/engine"
	"github.com/af-corp/reqbridge/internal/hooks"
	"github.com/af-corp/reqbridge/internal/host"
	"github.com/af-corp/reqbridge/internal/policy"
	"github.com/af-corp/reqbridge/internal/telemetry"
	"github.com/af-corp/reqbridge/internal/types"
)

// Env resolves host environment details.
type Env interface {
	TempDir() string
	IsWritable(dir string) bool
	StatusText(code int) string
}

// Sanitizer cleans URLs and headers before they reach the engine.
type Sanitizer interface {
	ValidateURL(ctx context.Context, raw string) (string, bool)
	BadProtocol(raw string, allowed []string) string
	SanitizeHeaders(h map[string]string) map[string]string
}

// BlockChecker decides whether a URL may be requested at all.
type BlockChecker interface {
	Check(ctx context.Context, rawURL, method string) policy.Decision
}

// Call is everything one engine call needs, built fresh per request.
type Call struct {
	// Args are the caller's arguments after normalization (derived
	// filename, forced blocking).
	Args    types.RequestArgs
	URL     string
	Headers map[string]string
	Body    []byte
	Method  string
	Options engine.Options
}

// Translator turns host request arguments into engine options.
type Translator struct {
	env       Env
	sanitizer Sanitizer
	blocker   BlockChecker
	hooks     *hooks.Registry
	adapter   engine.Hooker
	metrics   *telemetry.Metrics
}

// NewTranslator builds a translator. sanitizer, blocker and metrics may be nil.
func NewTranslator(env Env, sanitizer Sanitizer, blocker BlockChecker, reg *hooks.Registry, adapter engine.Hooker, metrics *telemetry.Metrics) *Translator {
	return &Translator{env: env, sanitizer: sanitizer, blocker: blocker, hooks: reg, adapter: adapter, metrics: metrics}
}

// Translate validates args and builds the engine call. It returns a *Error
// when the call must not proceed; nothing is sent in that case.
func (t *Translator) Translate(ctx context.Context, args types.RequestArgs) (*Call, *Error) {
	rawURL, ok := t.sanitize(ctx, args)
	if !ok {
		t.metrics.RecordBlocked("url")
		return nil, blocked(msgInvalidURL)
	}
	args.URL = rawURL

	if t.blocker != nil {
		if d := t.blocker.Check(ctx, rawURL, args.Method); d.Blocked {
			slog.Info("request blocked", "url", rawURL, "checker", d.Checker, "reason", d.Reason)
			t.metrics.RecordBlocked(d.Checker)
			return nil, blocked(d.Reason)
		}
	}

	if args.Stream {
		if args.Filename == "" {
			args.Filename = filepath.Join(t.env.TempDir(), streamName(rawURL))
		}
		args.Blocking = true
		if !t.env.IsWritable(filepath.Dir(args.Filename)) {
			return nil, unwritable()
		}
	}

	// Engine hooks receive the map by pointer; never hand them the caller's.
	headers := maps.Clone(args.Headers.Map)
	if args.Headers.IsRaw() {
		headers = host.ParseHeaderBlock(args.Headers.Raw)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	if t.sanitizer != nil {
		headers = t.sanitizer.SanitizeHeaders(headers)
	}

	method := args.Method
	if method == "" {
		method = http.MethodGet
	}

	opts := engine.Options{
		Timeout:   args.Timeout,
		UserAgent: args.UserAgent,
		Blocking:  args.Blocking,
		Hooks:     t.adapter,
	}
	if args.Stream {
		opts.Filename = args.Filename
	}
	if args.Redirection <= 0 {
		opts.FollowRedirects = false
	} else {
		opts.FollowRedirects = true
		opts.Redirects = args.Redirection
	}
	for _, c := range args.Cookies {
		if c != nil {
			opts.Cookies = append(opts.Cookies, c.HTTPCookie())
		}
	}

	verify := engine.VerifyOff
	if args.SSLVerify {
		verify = engine.Verify{Enabled: true, CABundle: args.SSLCertificates}
	}
	opts.Verify = t.filterVerify(ctx, verify)

	return &Call{
		Args:    args,
		URL:     rawURL,
		Headers: headers,
		Body:    []byte(args.Body),
		Method:  method,
		Options: opts,
	}, nil
}

// sanitize runs the optional pre-flight URL checks. It reports false when
// unsafe URLs are rejected and the URL fails validation.
func (t *Translator) sanitize(ctx context.Context, args types.RequestArgs) (string, bool) {
	if t.sanitizer == nil {
		return args.URL, true
	}
	raw := args.URL
	if args.RejectUnsafeURLs {
		var ok bool
		if raw, ok = t.sanitizer.ValidateURL(ctx, raw); !ok {
			return "", false
		}
	}
	return t.sanitizer.BadProtocol(raw, host.SafeProtocols), true
}

// filterVerify lets host filters override the verify decision. Filters may
// return an engine.Verify, a bool to keep or drop verification, or a CA
// bundle path.
func (t *Translator) filterVerify(ctx context.Context, v engine.Verify) engine.Verify {
	if t.hooks == nil {
		return v
	}
	switch out := t.hooks.ApplyFilters(ctx, host.FilterHTTPSSLVerify, v).(type) {
	case engine.Verify:
		return out
	case bool:
		if !out {
			return engine.VerifyOff
		}
		if !v.Enabled {
			return engine.Verify{Enabled: true}
		}
		return v
	case string:
		return engine.Verify{Enabled: true, CABundle: out}
	default:
		slog.Warn("ignoring unexpected https_ssl_verify value", "value", out)
		return v
	}
}

// streamName is the file a streamed download lands in: the last URL path
// segment, or the host name when the path has none.
func streamName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	if name := path.Base(u.Path); name != "." && name != "/" {
		return name
	}
	return u.Hostname()
}
