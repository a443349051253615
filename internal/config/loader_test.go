package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "hello"},
		{"${TEST_VAR:default}", "hello"},
		{"${UNSET_VAR:fallback}", "fallback"},
		{"${UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
	}

	for _, tt := range tests {
		got := expandEnvVars(tt.input)
		if got != tt.expected {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadFile_WithEnvVars(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "12s")

	fs := afero.NewMemMapFs()
	content := `
server:
  host: "${TEST_HOST:127.0.0.1}"
  port: 9999
http:
  timeout: ${TEST_TIMEOUT}
  reject_unsafe_urls: true
policy:
  accessible_hosts: ["api.example.com", "*.github.com"]
`
	if err := afero.WriteFile(fs, "/etc/reqbridge.yaml", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(fs, "/etc/reqbridge.yaml", cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1 (default), got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.HTTP.Timeout != 12*time.Second {
		t.Errorf("expected timeout 12s, got %s", cfg.HTTP.Timeout)
	}
	if !cfg.HTTP.RejectUnsafeURLs {
		t.Error("expected reject_unsafe_urls true")
	}
	if !cfg.HTTP.SSLVerify {
		t.Error("unset sslverify should keep the default")
	}
	if len(cfg.Policy.AccessibleHosts) != 2 {
		t.Errorf("expected 2 accessible hosts, got %v", cfg.Policy.AccessibleHosts)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if err := LoadFile(afero.NewMemMapFs(), "/nope.yaml", DefaultConfig()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.HTTP.Redirection = -1
	cfg.Policy.Blocklist.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation errors")
	}
}

func TestValidate_PolicyStores(t *testing.T) {
	tests := []struct {
		name  string
		apply func(c *Config)
		ok    bool
	}{
		{"rate limit without redis", func(c *Config) { c.Policy.RateLimit.Enabled = true }, false},
		{"rate limit with redis", func(c *Config) {
			c.Policy.RateLimit.Enabled = true
			c.Redis.Addresses = []string{"localhost:6379"}
		}, true},
		{"rate limit zero window", func(c *Config) {
			c.Policy.RateLimit.Enabled = true
			c.Policy.RateLimit.Window = 0
			c.Redis.Addresses = []string{"localhost:6379"}
		}, false},
		{"circuit zero threshold", func(c *Config) {
			c.Policy.Circuit.Enabled = true
			c.Policy.Circuit.FailureThreshold = 0
		}, false},
		{"circuit defaults", func(c *Config) { c.Policy.Circuit.Enabled = true }, true},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.apply(cfg)
		if err := cfg.Validate(); (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func TestLoader_LoadRejectsInvalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/reqbridge.yaml", []byte("http:\n  timeout: -1s\n"), 0o644)

	l := NewLoader("/reqbridge.yaml", testLogger()).WithFs(fs)
	if err := l.Load(); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
	if l.Config() != nil {
		t.Error("rejected config must not be installed")
	}
}

func TestLoader_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reqbridge.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 1111\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(path, testLogger())
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}
	reloaded := make(chan struct{}, 4)
	l.OnReload(func() { reloaded <- struct{}{} })
	if err := l.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("server:\n  port: 2222\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-reloaded:
			if l.Config().Server.Port == 2222 {
				return
			}
		case <-deadline:
			t.Fatalf("config not reloaded, port=%d", l.Config().Server.Port)
		}
	}
}
