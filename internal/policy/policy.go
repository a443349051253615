// Package policy decides whether an outgoing request may leave the host.
package policy

import (
	"context"
	"net/url"
	"strings"
)

// Target is the request a Checker inspects.
type Target struct {
	URL    *url.URL
	Raw    string
	Method string
}

// Decision is returned by each checker.
type Decision struct {
	Blocked bool
	Checker string
	Reason  string
}

// Checker is the interface all block checks implement.
type Checker interface {
	Name() string
	Enabled() bool
	Check(ctx context.Context, t Target) Decision
}

// Chain runs checkers in order, stopping on the first block.
type Chain struct {
	checkers []Checker
}

func NewChain(checkers ...Checker) *Chain {
	return &Chain{checkers: checkers}
}

// Names lists the checkers in evaluation order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.checkers))
	for i, ch := range c.checkers {
		names[i] = ch.Name()
	}
	return names
}

// Check parses rawURL and runs every enabled checker against it. A URL that
// cannot be parsed or has no host is blocked outright.
func (c *Chain) Check(ctx context.Context, rawURL, method string) Decision {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Decision{Blocked: true, Checker: "url", Reason: "A valid URL was not provided."}
	}
	t := Target{URL: u, Raw: rawURL, Method: strings.ToUpper(method)}
	for _, ch := range c.checkers {
		if !ch.Enabled() {
			continue
		}
		if d := ch.Check(ctx, t); d.Blocked {
			if d.Checker == "" {
				d.Checker = ch.Name()
			}
			return d
		}
	}
	return Decision{}
}
