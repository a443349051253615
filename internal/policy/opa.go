package policy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/af-corp/reqbridge/internal/config"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/spf13/afero"
)

const query = "[data.reqbridge.policy.block, data.reqbridge.policy.reason]"

// Input is the document sent to OPA for evaluation.
type Input struct {
	URL    string `json:"url"`
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   string `json:"port"`
	Path   string `json:"path"`
	Method string `json:"method"`
}

// Evaluator implements Checker using OPA.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	fs       afero.Fs
	cfg      func() config.RegoConfig
}

// NewEvaluator creates a policy evaluator. Call Load to compile policies.
func NewEvaluator(fs afero.Fs, cfg func() config.RegoConfig) *Evaluator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Evaluator{fs: fs, cfg: cfg}
}

func (e *Evaluator) Name() string  { return "rego" }
func (e *Evaluator) Enabled() bool { return e.cfg().Enabled }

// Load compiles Rego modules from the bundle path.
func (e *Evaluator) Load() error {
	dir := e.cfg().BundlePath
	modules, err := LoadRegoFiles(e.fs, dir)
	if err != nil {
		return fmt.Errorf("load rego files: %w", err)
	}
	if len(modules) == 0 {
		slog.Warn("no rego files found", "path", dir)
	}
	if err := e.LoadFromModules(modules); err != nil {
		return err
	}
	slog.Info("opa policies loaded", "modules", len(modules))
	return nil
}

// LoadFromModules compiles policies from the given module sources. An empty
// set clears the loaded policies.
func (e *Evaluator) LoadFromModules(modules map[string]string) error {
	if len(modules) == 0 {
		e.mu.Lock()
		e.prepared = nil
		e.mu.Unlock()
		return nil
	}

	opts := []func(*rego.Rego){rego.Query(query)}
	for name, src := range modules {
		opts = append(opts, rego.Module(name, src))
	}
	prepared, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate runs the policy against input. With no policies loaded nothing
// is blocked; an undefined block rule counts as not blocked.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (bool, string, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		return false, "", nil
	}

	timeout := e.cfg().EvaluationTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return true, "", err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "", nil
	}

	// [block, reason]
	arr, ok := results[0].Expressions[0].Value.([]any)
	if !ok || len(arr) < 2 {
		return true, "", fmt.Errorf("unexpected policy result %T", results[0].Expressions[0].Value)
	}
	blocked, _ := arr[0].(bool)
	reason, _ := arr[1].(string)
	return blocked, reason, nil
}

// Check implements Checker. Evaluation errors block the request.
func (e *Evaluator) Check(ctx context.Context, t Target) Decision {
	port := t.URL.Port()
	if port == "" {
		switch t.URL.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	input := Input{
		URL:    t.Raw,
		Scheme: t.URL.Scheme,
		Host:   t.URL.Hostname(),
		Port:   port,
		Path:   t.URL.EscapedPath(),
		Method: t.Method,
	}
	if ip := net.ParseIP(input.Host); ip != nil {
		input.Host = ip.String()
	}

	blocked, reason, err := e.Evaluate(ctx, input)
	if err != nil {
		slog.Error("policy evaluation failed", "error", err, "url", t.Raw)
		return Decision{Blocked: true, Checker: e.Name(), Reason: "Policy evaluation failed: " + err.Error()}
	}
	if blocked {
		if reason == "" {
			reason = "User has blocked requests through HTTP."
		}
		return Decision{Blocked: true, Checker: e.Name(), Reason: reason}
	}
	return Decision{}
}
