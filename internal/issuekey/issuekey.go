// Package issuekey extracts structured issue identifiers from free-text
// work item titles like "PFTI-092 - Create Payment" or "[PFTI-092] Verlof".
package issuekey

import (
	"regexp"
	"strings"
)

// pattern matches an optional leading bracketed-or-bare issue key
// (project prefix, dash, number) followed by " - " or whitespace and the
// remainder of the title. Anchored at the start; nothing is extracted
// from keys appearing mid-title.
var pattern = regexp.MustCompile(`^\[?([A-Z0-9]+-\d+)\]?(?:\s*-\s*|\s+)(.*)$`)

// Extract pulls an issue key and a cleaned title out of name.
// When no key is present, key is empty and the title is returned
// unchanged. The cleaned title is always the remainder text, regardless
// of whether a separately stored attribute also carries a key.
func Extract(name string) (key, title string) {
	m := pattern.FindStringSubmatch(name)
	if m == nil {
		return "", name
	}
	return m[1], strings.TrimSpace(m[2])
}
