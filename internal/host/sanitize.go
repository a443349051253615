package host

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"
)

// SafeProtocols are the schemes outgoing requests may use.
var SafeProtocols = []string{"http", "https", "ssl"}

// Sanitizer validates and cleans outgoing URLs and headers.
type Sanitizer struct {
	// SiteHost is exempt from private-address and port checks.
	SiteHost string
	// LookupIP resolves host names; defaults to net.DefaultResolver.
	LookupIP func(ctx context.Context, host string) ([]net.IP, error)

	mu sync.RWMutex
}

// SetSiteHost replaces SiteHost while requests may be in flight.
func (s *Sanitizer) SetSiteHost(h string) {
	s.mu.Lock()
	s.SiteHost = h
	s.mu.Unlock()
}

func (s *Sanitizer) siteHost() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SiteHost
}

func NewSanitizer(siteHost string) *Sanitizer {
	return &Sanitizer{
		SiteHost: siteHost,
		LookupIP: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip", host)
		},
	}
}

// ValidateURL checks that raw is a plain http(s) URL that does not point at
// loopback, private or link-local addresses, and that uses a standard port.
// It returns the URL and true when it is safe.
func (s *Sanitizer) ValidateURL(ctx context.Context, raw string) (string, bool) {
	if raw == "" || strings.ContainsAny(raw, "\r\n\t") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.User != nil {
		return "", false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" || (strings.ContainsAny(hostname, ":#?[]") && net.ParseIP(hostname) == nil) {
		return "", false
	}

	site := s.siteHost()
	sameHost := site != "" && strings.EqualFold(hostname, site)
	if !sameHost {
		ips := []net.IP{net.ParseIP(hostname)}
		if ips[0] == nil {
			if s.LookupIP == nil {
				return "", false
			}
			ips, err = s.LookupIP(ctx, hostname)
			if err != nil || len(ips) == 0 {
				return "", false
			}
		}
		for _, ip := range ips {
			if isInternal(ip) {
				return "", false
			}
		}

		switch u.Port() {
		case "", "80", "443", "8080":
		default:
			return "", false
		}
	}
	return raw, true
}

func isInternal(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

// BadProtocol strips leading schemes not in allowed, repeatedly, so that
// "javascript:alert(1)" becomes "alert(1)".
func (s *Sanitizer) BadProtocol(raw string, allowed []string) string {
	out := strings.TrimSpace(raw)
	for {
		scheme, rest, ok := strings.Cut(out, ":")
		if !ok || scheme == "" || strings.ContainsAny(scheme, "/?#") {
			return out
		}
		if containsFold(allowed, scheme) {
			return out
		}
		out = strings.TrimSpace(rest)
	}
}

// SanitizeHeaders removes CR and LF from header names and values.
func (s *Sanitizer) SanitizeHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	strip := strings.NewReplacer("\r", "", "\n", "")
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strip.Replace(k)] = strip.Replace(v)
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
