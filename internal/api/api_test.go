package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/af-corp/reqbridge/internal/bridge"
	"github.com/af-corp/reqbridge/internal/engine"
	"github.com/af-corp/reqbridge/internal/hooks"
	"github.com/af-corp/reqbridge/internal/host"
	"github.com/af-corp/reqbridge/internal/types"
	"github.com/spf13/afero"
)

type fakeDispatcher struct {
	args types.RequestArgs
	resp *types.Response
	err  error
}

func (f *fakeDispatcher) Args() types.RequestArgs {
	return types.NewRequestArgs(types.Defaults{Timeout: 5 * time.Second, Redirection: 5, SSLVerify: true})
}

func (f *fakeDispatcher) Request(_ context.Context, url string, args types.RequestArgs) (*types.Response, error) {
	args.URL = url
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return types.EmptyResponse(), nil
}

func noToken() string { return "" }

func post(t *testing.T, h http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := NewRouter(NewHandler(&fakeDispatcher{}, "1.2.3"), noToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "healthy" || body["version"] != "1.2.3" {
		t.Errorf("unexpected body %v", body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id")
	}
}

func TestRequests_BadInput(t *testing.T) {
	r := NewRouter(NewHandler(&fakeDispatcher{}, "dev"), noToken)
	tests := []struct {
		name, body string
	}{
		{"invalid json", "{"},
		{"missing url", `{"method":"GET"}`},
		{"negative timeout", `{"url":"http://example.com","timeout":-1}`},
		{"bad headers", `{"url":"http://example.com","headers":42}`},
		{"absolute filename", `{"url":"http://example.com","stream":true,"filename":"/root/.ssh/authorized_keys"}`},
		{"relative traversal", `{"url":"http://example.com","stream":true,"filename":"../etc/passwd"}`},
		{"nested filename", `{"url":"http://example.com","stream":true,"filename":"a/b.txt"}`},
		{"dot dot", `{"url":"http://example.com","stream":true,"filename":".."}`},
		{"ca bundle", `{"url":"http://example.com","sslcertificates":"/etc/shadow"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := post(t, r, tt.body, nil); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRequests_AppliesPayload(t *testing.T) {
	d := &fakeDispatcher{}
	r := NewRouter(NewHandler(d, "dev"), noToken)

	w := post(t, r, `{
		"url": "http://example.com/x",
		"method": "PUT",
		"headers": "X-Test: 1\r\nX-Two: 2",
		"body": "data",
		"timeout": 1.5,
		"redirection": 0,
		"blocking": false,
		"sslverify": false,
		"limit_response_size": 10
	}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	a := d.args
	if a.URL != "http://example.com/x" || a.Method != "PUT" || a.Body != "data" {
		t.Errorf("unexpected args %+v", a)
	}
	if !a.Headers.IsRaw() || a.Headers.Raw != "X-Test: 1\r\nX-Two: 2" {
		t.Errorf("expected raw headers, got %+v", a.Headers)
	}
	if a.Timeout != 1500*time.Millisecond {
		t.Errorf("expected 1.5s timeout, got %s", a.Timeout)
	}
	if a.Redirection != 0 || a.Blocking || a.SSLVerify {
		t.Errorf("explicit false/zero values must override defaults: %+v", a)
	}
	if a.LimitResponseSize == nil || *a.LimitResponseSize != 10 {
		t.Errorf("expected limit 10, got %v", a.LimitResponseSize)
	}
}

func TestRequests_KeepsDefaults(t *testing.T) {
	d := &fakeDispatcher{}
	r := NewRouter(NewHandler(d, "dev"), noToken)

	if w := post(t, r, `{"url":"http://example.com/"}`, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if d.args.Method != "GET" || d.args.Redirection != 5 || !d.args.Blocking || !d.args.SSLVerify {
		t.Errorf("expected defaults, got %+v", d.args)
	}
}

func TestRequests_CannotRelaxUnsafeURLCheck(t *testing.T) {
	d := &strictDispatcher{}
	r := NewRouter(NewHandler(d, "dev"), noToken)

	if w := post(t, r, `{"url":"http://example.com/","reject_unsafe_urls":false}`, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !d.args.RejectUnsafeURLs {
		t.Error("caller must not switch off the unsafe URL check")
	}
}

type strictDispatcher struct{ fakeDispatcher }

func (s *strictDispatcher) Args() types.RequestArgs {
	args := s.fakeDispatcher.Args()
	args.RejectUnsafeURLs = true
	return args
}

func TestRequests_StreamStaysInTempDir(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ssh-ed25519 AAAA")
	}))
	defer upstream.Close()

	fs := afero.NewMemMapFs()
	fs.MkdirAll("/var/reqbridge", 0o755)
	fs.MkdirAll("/root/.ssh", 0o700)
	reg := hooks.NewRegistry()
	env := host.NewEnv(fs, "/var/reqbridge")
	b := bridge.New(bridge.Config{Engine: engine.New(engine.Config{Fs: fs}), Hooks: reg, Env: env})
	b.Register(reg)
	client := host.NewClient(reg, types.Defaults{Timeout: 5 * time.Second, SSLVerify: true}, nil)
	r := NewRouter(NewHandler(client, "dev").WithTempDir(env.TempDir), noToken)

	w := post(t, r, fmt.Sprintf(`{"url":%q,"stream":true,"filename":"/root/.ssh/authorized_keys"}`, upstream.URL), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a path outside the temp dir, got %d", w.Code)
	}
	if ok, _ := afero.Exists(fs, "/root/.ssh/authorized_keys"); ok {
		t.Fatal("file written outside the temp dir")
	}

	w = post(t, r, fmt.Sprintf(`{"url":%q,"stream":true,"filename":"keys.txt"}`, upstream.URL), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data, err := afero.ReadFile(fs, "/var/reqbridge/keys.txt")
	if err != nil || string(data) != "ssh-ed25519 AAAA" {
		t.Errorf("expected file in temp dir, got %q (%v)", data, err)
	}
}

func TestRequests_ErrorMapping(t *testing.T) {
	d := &fakeDispatcher{err: &bridge.Error{Kind: bridge.KindRequestBlocked, Message: "User has blocked requests through HTTP."}}
	r := NewRouter(NewHandler(d, "dev"), noToken)

	w := post(t, r, `{"url":"http://blocked.example.com/"}`, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), bridge.Code) {
		t.Errorf("expected error code in body, got %s", w.Body.String())
	}
}

func TestTokenAuth(t *testing.T) {
	r := NewRouter(NewHandler(&fakeDispatcher{}, "dev"), func() string { return "s3cret" })

	tests := []struct {
		name   string
		header map[string]string
		status int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong scheme", map[string]string{"Authorization": "Basic s3cret"}, http.StatusUnauthorized},
		{"wrong token", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"ok", map[string]string{"Authorization": "Bearer s3cret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := post(t, r, `{"url":"http://example.com/"}`, tt.header); w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
		})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health must not require a token, got %d", w.Code)
	}
}

func TestRequests_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Echo", r.Header.Get("X-Test"))
		w.Header().Add("Set-Cookie", "sid=abc; Path=/")
		fmt.Fprint(w, "hello from upstream")
	}))
	defer upstream.Close()

	fs := afero.NewMemMapFs()
	reg := hooks.NewRegistry()
	env := host.NewEnv(fs, "/tmp")
	b := bridge.New(bridge.Config{Engine: engine.New(engine.Config{Fs: fs}), Hooks: reg, Env: env})
	b.Register(reg)
	client := host.NewClient(reg, types.Defaults{Timeout: 5 * time.Second, SSLVerify: true}, nil)

	r := NewRouter(NewHandler(client, "dev"), noToken)
	w := post(t, r, fmt.Sprintf(`{"url":%q,"headers":{"X-Test":"1"}}`, upstream.URL), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Headers  map[string]any `json:"headers"`
		Body     string         `json:"body"`
		Response struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"response"`
		Cookies []map[string]any `json:"cookies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Body != "hello from upstream" {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if resp.Response.Code != 200 || resp.Response.Message != "OK" {
		t.Errorf("unexpected status %+v", resp.Response)
	}
	if resp.Headers["x-echo"] != "1" {
		t.Errorf("expected single header as bare string, got %#v", resp.Headers["x-echo"])
	}
	if len(resp.Cookies) != 1 || resp.Cookies[0]["name"] != "sid" {
		t.Errorf("unexpected cookies %v", resp.Cookies)
	}
}
