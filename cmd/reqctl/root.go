package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/af-corp/reqbridge/internal/config"
	"github.com/af-corp/reqbridge/internal/telemetry"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type globalOpts struct {
	configPath string
	verbose    bool
}

// NewRootCommand returns reqctl with all subcommands attached.
func NewRootCommand(fs afero.Fs, out io.Writer) *cobra.Command {
	opts := &globalOpts{}
	root := &cobra.Command{
		Use:           "reqctl",
		Short:         "Run outgoing HTTP requests through the request bridge.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to reqbridge.yaml (defaults when empty)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newRequestCmd(fs, opts))
	root.AddCommand(newBlocklistCmd(fs, opts))
	return root
}

// loadConfig reads the config file when one is given, else the defaults.
func loadConfig(fs afero.Fs, opts *globalOpts) (*config.Config, error) {
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	slog.SetDefault(telemetry.NewLogger(os.Stderr, config.TelemetryConfig{LogLevel: level, LogFormat: "text"}))

	cfg := config.DefaultConfig()
	if opts.configPath == "" {
		return cfg, nil
	}
	if err := config.LoadFile(fs, opts.configPath, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
