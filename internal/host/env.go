package host

import (
	"net/http"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// Env exposes the filesystem and lookup services of the host.
type Env struct {
	fs afero.Fs

	mu      sync.RWMutex
	tempDir string
}

// NewEnv creates an environment over fs. An empty tempDir selects the OS
// temporary directory.
func NewEnv(fs afero.Fs, tempDir string) *Env {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Env{fs: fs, tempDir: tempDir}
}

func (e *Env) Fs() afero.Fs { return e.fs }

// TempDir returns the directory streamed downloads default to.
func (e *Env) TempDir() string {
	e.mu.RLock()
	dir := e.tempDir
	e.mu.RUnlock()
	if dir != "" {
		return dir
	}
	return os.TempDir()
}

// SetTempDir replaces the configured temp dir; "" restores the OS default.
func (e *Env) SetTempDir(dir string) {
	e.mu.Lock()
	e.tempDir = dir
	e.mu.Unlock()
}

// IsWritable reports whether dir exists and a file can be created in it.
func (e *Env) IsWritable(dir string) bool {
	fi, err := e.fs.Stat(dir)
	if err != nil || !fi.IsDir() {
		return false
	}
	f, err := afero.TempFile(e.fs, dir, ".reqbridge-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	e.fs.Remove(name)
	return true
}

// StatusText returns the reason phrase for code, or "" when unknown.
func (e *Env) StatusText(code int) string {
	return http.StatusText(code)
}
