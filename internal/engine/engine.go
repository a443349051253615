// Package engine executes HTTP requests on top of net/http. It owns
// connection reuse, redirects, TLS, cookies and streaming to disk; callers
// drive it through a flat Options value and observe it through hooks.
package engine

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/spf13/afero"
)

// Config tunes the shared transport.
type Config struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	// Fs receives streamed bodies and serves CA bundles. Defaults to the OS.
	Fs afero.Fs
}

// Response is the engine's view of a completed request.
type Response struct {
	URL        string
	StatusCode int
	Headers    *Headers
	Body       []byte
	Filename   string
	Redirects  int
}

// Engine performs requests. It is safe for concurrent use.
type Engine struct {
	base *http.Transport
	fs   afero.Fs
}

func New(cfg Config) *Engine {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConns = cfg.MaxIdleConns
	base.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	base.IdleConnTimeout = cfg.IdleConnTimeout
	base.ForceAttemptHTTP2 = true
	return &Engine{base: base, fs: cfg.Fs}
}

// Request sends one request and returns its response. Redirects are followed
// according to opts and are not counted as separate requests.
func (e *Engine) Request(ctx context.Context, rawURL string, headers map[string]string, body []byte, method string, opts Options) (*Response, error) {
	hooks := opts.Hooks
	if hooks == nil {
		hooks = nopHooks{}
	}

	hooks.Dispatch(ctx, HookBeforeRequest, &rawURL, &headers, &body, &method, &opts)

	resp, redirects, err := e.send(ctx, rawURL, headers, body, method, opts, hooks)
	if err != nil {
		hooks.Dispatch(ctx, HookFailed, &err)
		return nil, err
	}
	defer resp.Body.Close()

	out := &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Headers:    headersFrom(resp.Header),
		Redirects:  redirects,
	}

	// Non-blocking callers are not interested in the body.
	if !opts.Blocking {
		return out, nil
	}

	if opts.Filename != "" {
		if err := e.writeFile(opts.Filename, resp.Body); err != nil {
			err = &Error{Op: "write body", URL: rawURL, Err: err}
			hooks.Dispatch(ctx, HookFailed, &err)
			return nil, err
		}
		out.Filename = opts.Filename
	} else {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			err = &Error{Op: "read body", URL: rawURL, Err: err}
			hooks.Dispatch(ctx, HookFailed, &err)
			return nil, err
		}
		out.Body = data
	}

	hooks.Dispatch(ctx, HookAfterRequest, out)
	return out, nil
}

func (e *Engine) send(ctx context.Context, rawURL string, headers map[string]string, body []byte, method string, opts Options, hooks Hooker) (*http.Response, int, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, 0, &Error{Op: "build request", URL: rawURL, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if opts.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}

	transport, err := e.transport(opts.Verify)
	if err != nil {
		return nil, 0, &Error{Op: "configure tls", URL: rawURL, Err: err}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, 0, &Error{Op: "create cookie jar", URL: rawURL, Err: err}
	}
	if len(opts.Cookies) > 0 {
		jar.SetCookies(req.URL, opts.Cookies)
	}

	limit := opts.Redirects
	if limit <= 0 {
		limit = DefaultRedirects
	}
	redirects := 0
	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   opts.Timeout,
		CheckRedirect: func(next *http.Request, via []*http.Request) error {
			if !opts.FollowRedirects {
				return http.ErrUseLastResponse
			}
			if len(via) > limit {
				return ErrTooManyRedirects
			}
			redirects = len(via)
			status := 0
			if next.Response != nil {
				status = next.Response.StatusCode
			}
			hooks.Dispatch(next.Context(), HookBeforeRedirect, next, status)
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, redirects, &Error{Op: "send request", URL: rawURL, Err: err}
	}
	return resp, redirects, nil
}

// transport returns the shared transport, or a single-use clone when the
// call needs its own TLS settings.
func (e *Engine) transport(v Verify) (*http.Transport, error) {
	if v.Enabled && v.CABundle == "" {
		return e.base, nil
	}

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if !v.Enabled {
		tlsCfg.InsecureSkipVerify = true
	} else {
		pem, err := afero.ReadFile(e.fs, v.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle %s: %w", v.CABundle, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, ErrInvalidCABundle
		}
		tlsCfg.RootCAs = pool
	}

	t := e.base.Clone()
	t.TLSClientConfig = tlsCfg
	t.DisableKeepAlives = true
	return t, nil
}

func (e *Engine) writeFile(name string, body io.Reader) error {
	f, err := e.fs.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
