package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/af-corp/reqbridge/internal/app"
	"github.com/af-corp/reqbridge/internal/config"
	"github.com/af-corp/reqbridge/internal/types"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type requestOpts struct {
	method      string
	headers     []string
	data        string
	timeout     time.Duration
	stream      bool
	output      string
	redirection int
	insecure    bool
	limit       int64
	noWait      bool
}

func newRequestCmd(fs afero.Fs, g *globalOpts) *cobra.Command {
	o := &requestOpts{}
	cmd := &cobra.Command{
		Use:   "request URL",
		Short: "Send one request and print the normalized response as JSON",
		Long: `Send one request through the same host stack the service uses and print
the normalized response.

Examples:
  # Simple GET
  reqctl request https://example.com/

  # POST with headers
  reqctl request https://example.com/api -X POST -H "Content-Type: application/json" -d '{"a":1}'

  # Download to a file
  reqctl request https://example.com/file.zip --stream -o /tmp/file.zip`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(fs, g)
			if err != nil {
				return err
			}
			return runRequest(cmd, fs, cfg, o, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.method, "method", "X", "", "HTTP method (default from config)")
	f.StringArrayVarP(&o.headers, "header", "H", nil, `request header "Name: value" (repeatable)`)
	f.StringVarP(&o.data, "data", "d", "", "request body")
	f.DurationVar(&o.timeout, "timeout", 0, "request timeout (default from config)")
	f.BoolVar(&o.stream, "stream", false, "stream the body to a file")
	f.StringVarP(&o.output, "output", "o", "", "file to stream to (implies --stream)")
	f.IntVar(&o.redirection, "redirection", -1, "redirects to follow, 0 disables (default from config)")
	f.BoolVarP(&o.insecure, "insecure", "k", false, "skip TLS certificate verification")
	f.Int64Var(&o.limit, "limit", 0, "truncate the body to this many bytes")
	f.BoolVar(&o.noWait, "no-wait", false, "do not wait for the response body")
	return cmd
}

func runRequest(cmd *cobra.Command, fs afero.Fs, cfg *config.Config, o *requestOpts, url string) error {
	stack, err := app.New(func() *config.Config { return cfg }, app.Deps{Fs: fs})
	if err != nil {
		return err
	}
	defer stack.Close()

	args := applyRequestOpts(stack.Client.Args(), o)
	resp, err := stack.Client.Request(cmd.Context(), url, args)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func applyRequestOpts(args types.RequestArgs, o *requestOpts) types.RequestArgs {
	if o.method != "" {
		args.Method = strings.ToUpper(o.method)
	}
	if len(o.headers) > 0 {
		args.Headers = types.RawHeaders(strings.Join(o.headers, "\r\n"))
	}
	args.Body = o.data
	if o.timeout > 0 {
		args.Timeout = o.timeout
	}
	if o.output != "" {
		args.Stream = true
		args.Filename = o.output
	}
	if o.stream {
		args.Stream = true
	}
	if o.redirection >= 0 {
		args.Redirection = o.redirection
	}
	if o.insecure {
		args.SSLVerify = false
	}
	if o.limit > 0 {
		limit := o.limit
		args.LimitResponseSize = &limit
	}
	if o.noWait {
		args.Blocking = false
	}
	return args
}
