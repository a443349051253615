// Package host provides the host application's generic HTTP entry point and
// the environment services that request handlers rely on.
package host

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/af-corp/reqbridge/internal/hooks"
	"github.com/af-corp/reqbridge/internal/types"
)

// Hook names used around the HTTP dispatch point.
const (
	// FilterPreHTTPRequest lets a handler answer a request before the
	// host default runs. Handlers set Event.Value to a Result.
	FilterPreHTTPRequest = "pre_http_request"
	// FilterHTTPResponse may replace a response before it is returned.
	FilterHTTPResponse = "http_response"
	// FilterHTTPSSLVerify may override the final TLS verify decision.
	FilterHTTPSSLVerify = "https_ssl_verify"
	// ActionHTTPAPIDebug fires once per executed call with the outcome.
	ActionHTTPAPIDebug = "http_api_debug"
)

var ErrNoTransport = errors.New("no HTTP transport available")

// Result is the value a pre_http_request handler produces.
type Result struct {
	Response *types.Response
	Err      error
}

// Transport is the host's own implementation, used when no handler claims
// the request.
type Transport interface {
	Do(ctx context.Context, args types.RequestArgs) (*types.Response, error)
}

// Client is the generic HTTP dispatch point.
type Client struct {
	hooks    *hooks.Registry
	fallback Transport

	mu       sync.RWMutex
	defaults types.Defaults
}

// NewClient builds a dispatch point. fallback may be nil.
func NewClient(reg *hooks.Registry, defaults types.Defaults, fallback Transport) *Client {
	return &Client{hooks: reg, defaults: defaults, fallback: fallback}
}

// Args returns request arguments populated with the host defaults.
func (c *Client) Args() types.RequestArgs {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.NewRequestArgs(c.defaults)
}

// SetDefaults replaces the host defaults, e.g. after a config reload.
func (c *Client) SetDefaults(d types.Defaults) {
	c.mu.Lock()
	c.defaults = d
	c.mu.Unlock()
}

// Request dispatches one HTTP call.
func (c *Client) Request(ctx context.Context, url string, args types.RequestArgs) (*types.Response, error) {
	args.URL = url
	if args.Method == "" {
		args.Method = c.Args().Method
	}

	if v := c.hooks.ApplyFilters(ctx, FilterPreHTTPRequest, nil, args, url); v != nil {
		res, ok := v.(Result)
		if ok {
			return res.Response, res.Err
		}
		slog.Warn("ignoring unexpected pre_http_request value", "url", url)
	}

	if c.fallback == nil {
		return nil, ErrNoTransport
	}
	return c.fallback.Do(ctx, args)
}

func (c *Client) Get(ctx context.Context, url string) (*types.Response, error) {
	args := c.Args()
	args.Method = http.MethodGet
	return c.Request(ctx, url, args)
}

func (c *Client) Head(ctx context.Context, url string) (*types.Response, error) {
	args := c.Args()
	args.Method = http.MethodHead
	return c.Request(ctx, url, args)
}

func (c *Client) Post(ctx context.Context, url, body string) (*types.Response, error) {
	args := c.Args()
	args.Method = http.MethodPost
	args.Body = body
	return c.Request(ctx, url, args)
}
