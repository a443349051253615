package host

import (
	"strings"
)

// ParseHeaderBlock parses a raw header block into a map. Lines are
// "Name: value" pairs; status lines and lines without a colon are skipped,
// folded continuation lines are joined, and repeated names are comma-joined
// under the first spelling seen. When the block contains several header
// sections separated by blank lines, the last non-empty one is used.
func ParseHeaderBlock(raw string) map[string]string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\n\t", " ")
	raw = strings.ReplaceAll(raw, "\n ", " ")

	section := ""
	for _, s := range strings.Split(raw, "\n\n") {
		if strings.TrimSpace(s) != "" {
			section = s
		}
	}

	out := make(map[string]string)
	seen := make(map[string]string)
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "HTTP/") {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" {
			continue
		}

		if key, dup := seen[strings.ToLower(name)]; dup {
			out[key] += ", " + value
			continue
		}
		seen[strings.ToLower(name)] = name
		out[name] = value
	}
	return out
}
