package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RequestArgs is the host's generic representation of an outgoing HTTP call.
// Callers own it for the duration of one call; the bridge works on a copy.
type RequestArgs struct {
	URL         string         `json:"url"`
	Method      string         `json:"method"`
	Headers     RequestHeaders `json:"headers"`
	Body        string         `json:"body,omitempty"`
	Timeout     time.Duration  `json:"-"`
	UserAgent   string         `json:"user-agent"`
	HTTPVersion string         `json:"httpversion"`

	Blocking    bool   `json:"blocking"`
	Stream      bool   `json:"stream"`
	Filename    string `json:"filename,omitempty"`
	Redirection int    `json:"redirection"`

	Cookies []*Cookie `json:"cookies,omitempty"`

	SSLVerify       bool   `json:"sslverify"`
	SSLCertificates string `json:"sslcertificates,omitempty"`

	// LimitResponseSize truncates the response body; nil means unlimited.
	LimitResponseSize *int64 `json:"limit_response_size,omitempty"`
	RejectUnsafeURLs  bool   `json:"reject_unsafe_urls"`

	// Compress and Decompress are accepted for compatibility; the engine
	// always negotiates and decodes compression itself.
	Compress   bool `json:"compress"`
	Decompress bool `json:"decompress"`
}

// Defaults holds the host-level default request arguments.
type Defaults struct {
	Method          string
	Timeout         time.Duration
	Redirection     int
	HTTPVersion     string
	UserAgent       string
	SSLVerify       bool
	SSLCertificates string
	RejectUnsafe    bool

	// LimitResponseSize applies to every request when positive.
	LimitResponseSize int64
}

// NewRequestArgs returns request arguments populated with the host defaults.
func NewRequestArgs(d Defaults) RequestArgs {
	method := d.Method
	if method == "" {
		method = "GET"
	}
	var limit *int64
	if d.LimitResponseSize > 0 {
		n := d.LimitResponseSize
		limit = &n
	}
	return RequestArgs{
		Method:            method,
		Timeout:           d.Timeout,
		Redirection:       d.Redirection,
		HTTPVersion:       d.HTTPVersion,
		UserAgent:         d.UserAgent,
		Blocking:          true,
		SSLVerify:         d.SSLVerify,
		SSLCertificates:   d.SSLCertificates,
		RejectUnsafeURLs:  d.RejectUnsafe,
		LimitResponseSize: limit,
		Decompress:        true,
	}
}

// RequestHeaders carries request headers either as a structured map or as a
// raw "Name: value" block, one header per line.
type RequestHeaders struct {
	Map map[string]string
	Raw string
}

// HeaderMap wraps a structured header map.
func HeaderMap(m map[string]string) RequestHeaders {
	return RequestHeaders{Map: m}
}

// RawHeaders wraps a raw header block.
func RawHeaders(s string) RequestHeaders {
	return RequestHeaders{Raw: s}
}

// IsRaw reports whether the headers still need to be parsed.
func (h RequestHeaders) IsRaw() bool {
	return h.Map == nil && h.Raw != ""
}

func (h *RequestHeaders) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*h = RequestHeaders{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode raw headers: %w", err)
		}
		*h = RawHeaders(raw)
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode header map: %w", err)
	}
	*h = HeaderMap(m)
	return nil
}

func (h RequestHeaders) MarshalJSON() ([]byte, error) {
	if h.IsRaw() {
		return json.Marshal(h.Raw)
	}
	if h.Map == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(h.Map)
}
