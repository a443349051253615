package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/af-corp/reqbridge/internal/types"
	"github.com/spf13/afero"
)

func run(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(fs, &out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRequestCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Test", r.Header.Get("X-Test"))
		fmt.Fprint(w, "0123456789")
	}))
	defer srv.Close()

	out, err := run(t, afero.NewMemMapFs(), "request", srv.URL, "-X", "put", "-H", "X-Test: yes", "--limit", "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp types.Response
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.Body != "0123" {
		t.Errorf("expected truncated body, got %q", resp.Body)
	}
	if resp.Header("x-method") != "PUT" || resp.Header("x-test") != "yes" {
		t.Errorf("unexpected headers %v", resp.Headers)
	}
}

func TestRequestCommand_StreamToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "archive")
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	fs.MkdirAll("/downloads", 0o755)

	out, err := run(t, fs, "request", srv.URL+"/a.zip", "-o", "/downloads/a.zip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"filename": "/downloads/a.zip"`) {
		t.Errorf("expected filename in output, got %s", out)
	}
	data, _ := afero.ReadFile(fs, "/downloads/a.zip")
	if string(data) != "archive" {
		t.Errorf("unexpected file contents %q", data)
	}

	if _, err := run(t, fs, "request", srv.URL+"/a.zip", "-o", "/nowhere/a.zip"); err == nil {
		t.Error("expected error for unwritable destination")
	}
}

func TestRequestCommand_ConfigFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/reqbridge.yaml", []byte("policy:\n  block_external: true\n"), 0o644)

	_, err := run(t, fs, "--config", "/reqbridge.yaml", "request", "http://example.com/")
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Errorf("expected blocked request, got %v", err)
	}
}

func TestApplyRequestOpts(t *testing.T) {
	base := types.NewRequestArgs(types.Defaults{Redirection: 5, SSLVerify: true})
	args := applyRequestOpts(base, &requestOpts{redirection: 0, insecure: true, noWait: true, stream: true})

	if args.Redirection != 0 || args.SSLVerify || args.Blocking || !args.Stream {
		t.Errorf("unexpected args %+v", args)
	}
	if kept := applyRequestOpts(base, &requestOpts{redirection: -1}); kept.Redirection != 5 {
		t.Errorf("expected default redirection, got %d", kept.Redirection)
	}
}

func TestBlocklistCommand_RequiresRedis(t *testing.T) {
	if _, err := run(t, afero.NewMemMapFs(), "blocklist", "list"); err == nil {
		t.Error("expected error without redis configured")
	}
}
