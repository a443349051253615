package engine

import (
	"net/http"
	"sort"
	"strings"
)

// Headers is a case-insensitive, multi-valued header set. Keys are stored
// lower-cased and iterate in first-seen order.
type Headers struct {
	keys []string
	vals map[string][]string
}

func NewHeaders() *Headers {
	return &Headers{vals: make(map[string][]string)}
}

// Add appends a value to key.
func (h *Headers) Add(key, value string) {
	lk := strings.ToLower(key)
	if _, ok := h.vals[lk]; !ok {
		h.keys = append(h.keys, lk)
	}
	h.vals[lk] = append(h.vals[lk], value)
}

// Get returns the first value of key, or "".
func (h *Headers) Get(key string) string {
	v := h.vals[strings.ToLower(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values returns every value of key in the order received.
func (h *Headers) Values(key string) []string {
	return h.vals[strings.ToLower(key)]
}

// Keys returns the header names in first-seen order.
func (h *Headers) Keys() []string {
	return append([]string(nil), h.keys...)
}

func (h *Headers) Len() int { return len(h.keys) }

// headersFrom converts net/http headers. Go maps carry no key order, so keys
// are sorted; per-key value order is preserved.
func headersFrom(src http.Header) *Headers {
	names := make([]string, 0, len(src))
	for k := range src {
		names = append(names, k)
	}
	sort.Strings(names)

	h := NewHeaders()
	for _, k := range names {
		for _, v := range src[k] {
			h.Add(k, v)
		}
	}
	return h
}
