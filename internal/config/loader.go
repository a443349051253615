package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:default} patterns in a string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		name, fallback := submatch[1], submatch[2]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return fallback
	})
}

// LoadFile reads a YAML file from fs, expands env vars, and unmarshals into dest.
func LoadFile(fs afero.Fs, path string, dest any) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), dest); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the bridge cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Timeout < 0 {
		errs = append(errs, errors.New("http.timeout must not be negative"))
	}
	if c.HTTP.Redirection < 0 {
		errs = append(errs, errors.New("http.redirection must not be negative"))
	}
	if c.HTTP.LimitResponseSize < 0 {
		errs = append(errs, errors.New("http.limit_response_size must not be negative"))
	}
	if c.Policy.Blocklist.Enabled && len(c.Redis.Addresses) == 0 {
		errs = append(errs, errors.New("policy.blocklist requires redis.addresses"))
	}
	if c.Policy.RateLimit.Enabled {
		if len(c.Redis.Addresses) == 0 {
			errs = append(errs, errors.New("policy.rate_limit requires redis.addresses"))
		}
		if c.Policy.RateLimit.Requests <= 0 || c.Policy.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("policy.rate_limit needs positive requests and window"))
		}
	}
	if c.Policy.Circuit.Enabled && c.Policy.Circuit.FailureThreshold <= 0 {
		errs = append(errs, errors.New("policy.circuit.failure_threshold must be positive"))
	}
	if c.Policy.Rego.Enabled && c.Policy.Rego.BundlePath == "" {
		errs = append(errs, errors.New("policy.rego.bundle_path is required when rego is enabled"))
	}
	return errors.Join(errs...)
}

// Loader manages configuration loading and hot-reload via fsnotify.
type Loader struct {
	path     string
	fs       afero.Fs
	mu       sync.RWMutex
	cfg      *Config
	watchers []func()
	logger   *slog.Logger
}

func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{
		path:   path,
		fs:     afero.NewOsFs(),
		logger: logger,
	}
}

// WithFs swaps the filesystem the loader reads from.
func (l *Loader) WithFs(fs afero.Fs) *Loader {
	l.fs = fs
	return l
}

func (l *Loader) Load() error {
	cfg := DefaultConfig()
	if err := LoadFile(l.fs, l.path, cfg); err != nil {
		return fmt.Errorf("load reqbridge config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid reqbridge config: %w", err)
	}

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()

	l.logger.Info("configuration loaded", "path", l.path)
	return nil
}

func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// OnReload registers a callback that fires after config is reloaded.
func (l *Loader) OnReload(fn func()) {
	l.mu.Lock()
	l.watchers = append(l.watchers, fn)
	l.mu.Unlock()
}

func (l *Loader) reload() {
	if err := l.Load(); err != nil {
		l.logger.Error("failed to reload config", "error", err)
		return
	}
	l.mu.RLock()
	fns := append([]func(){}, l.watchers...)
	l.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// Watch watches the directory holding the config file and reloads when the
// file is written or replaced. Editors that save by rename are covered by
// watching the directory rather than the file.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir %s: %w", dir, err)
	}
	target := filepath.Clean(l.path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					l.logger.Info("config file changed, reloading", "file", event.Name)
					l.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Error("fsnotify error", "error", err)
			}
		}
	}()

	return nil
}
