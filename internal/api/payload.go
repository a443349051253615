package api

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/af-corp/reqbridge/internal/types"
)

// RequestPayload is the JSON body of POST /v1/requests. Unset fields keep
// the host defaults. Timeout is in seconds. Filename is a bare file name
// placed in the host temp dir; CA bundles come from config only, and
// reject_unsafe_urls can be switched on but not off.
type RequestPayload struct {
	URL               string               `json:"url"`
	Method            string               `json:"method"`
	Headers           types.RequestHeaders `json:"headers"`
	Body              string               `json:"body"`
	Timeout           *float64             `json:"timeout"`
	UserAgent         *string              `json:"user-agent"`
	HTTPVersion       string               `json:"httpversion"`
	Blocking          *bool                `json:"blocking"`
	Stream            bool                 `json:"stream"`
	Filename          string               `json:"filename"`
	Redirection       *int                 `json:"redirection"`
	Cookies           []*types.Cookie      `json:"cookies"`
	SSLVerify         *bool                `json:"sslverify"`
	SSLCertificates   string               `json:"sslcertificates"`
	LimitResponseSize *int64               `json:"limit_response_size"`
	RejectUnsafeURLs  *bool                `json:"reject_unsafe_urls"`
	Compress          *bool                `json:"compress"`
	Decompress        *bool                `json:"decompress"`
}

func (p *RequestPayload) Validate() error {
	if p.URL == "" {
		return errors.New("url is required")
	}
	if p.Timeout != nil && *p.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if p.Redirection != nil && *p.Redirection < 0 {
		return errors.New("redirection must not be negative")
	}
	if p.LimitResponseSize != nil && *p.LimitResponseSize < 0 {
		return errors.New("limit_response_size must not be negative")
	}
	if p.Filename != "" && !isBareName(p.Filename) {
		return errors.New("filename must be a plain file name without directories")
	}
	if p.SSLCertificates != "" {
		return errors.New("sslcertificates cannot be set through the API")
	}
	return nil
}

func isBareName(name string) bool {
	return name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) &&
		filepath.Base(name) == name
}

// Apply overlays the payload onto args. tempDir is where a named stream
// file is placed.
func (p *RequestPayload) Apply(args types.RequestArgs, tempDir string) types.RequestArgs {
	args.URL = p.URL
	if p.Method != "" {
		args.Method = p.Method
	}
	if p.Headers.IsRaw() || p.Headers.Map != nil {
		args.Headers = p.Headers
	}
	args.Body = p.Body
	if p.Timeout != nil {
		args.Timeout = time.Duration(*p.Timeout * float64(time.Second))
	}
	if p.UserAgent != nil {
		args.UserAgent = *p.UserAgent
	}
	if p.HTTPVersion != "" {
		args.HTTPVersion = p.HTTPVersion
	}
	if p.Blocking != nil {
		args.Blocking = *p.Blocking
	}
	args.Stream = p.Stream
	args.Filename = ""
	if p.Stream && p.Filename != "" {
		args.Filename = filepath.Join(tempDir, p.Filename)
	}
	if p.Redirection != nil {
		args.Redirection = *p.Redirection
	}
	if len(p.Cookies) > 0 {
		args.Cookies = p.Cookies
	}
	if p.SSLVerify != nil {
		args.SSLVerify = *p.SSLVerify
	}
	if p.LimitResponseSize != nil {
		args.LimitResponseSize = p.LimitResponseSize
	}
	if p.RejectUnsafeURLs != nil && *p.RejectUnsafeURLs {
		args.RejectUnsafeURLs = true
	}
	if p.Compress != nil {
		args.Compress = *p.Compress
	}
	if p.Decompress != nil {
		args.Decompress = *p.Decompress
	}
	return args
}
