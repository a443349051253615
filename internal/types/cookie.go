package types

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Cookie is a structured cookie record as exchanged with host callers.
type Cookie struct {
	Name     string            `json:"name"`
	Value    string            `json:"value"`
	Expires  time.Time         `json:"expires,omitzero"`
	Path     string            `json:"path,omitempty"`
	Domain   string            `json:"domain,omitempty"`
	MaxAge   int               `json:"max_age,omitempty"`
	Secure   bool              `json:"secure,omitempty"`
	HTTPOnly bool              `json:"httponly,omitempty"`
	SameSite string            `json:"samesite,omitempty"`
	Attrs    map[string]string `json:"attributes,omitempty"`
}

// ParseSetCookie parses one Set-Cookie header value.
func ParseSetCookie(line string) (*Cookie, error) {
	hc, err := http.ParseSetCookie(line)
	if err != nil {
		return nil, fmt.Errorf("parse set-cookie: %w", err)
	}
	c := &Cookie{
		Name:     hc.Name,
		Value:    hc.Value,
		Expires:  hc.Expires,
		Path:     hc.Path,
		Domain:   hc.Domain,
		MaxAge:   hc.MaxAge,
		Secure:   hc.Secure,
		HTTPOnly: hc.HttpOnly,
		SameSite: sameSiteName(hc.SameSite),
	}
	for _, attr := range hc.Unparsed {
		if c.Attrs == nil {
			c.Attrs = make(map[string]string)
		}
		k, v, _ := strings.Cut(attr, "=")
		c.Attrs[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return c, nil
}

// HTTPCookie converts the record into the net/http form used for the
// engine's cookie jar.
func (c *Cookie) HTTPCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
	}
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return ""
	}
}
