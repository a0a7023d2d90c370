// Package sanitize strips markup from inbound chat text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Stripper removes every HTML tag and decodes entities, leaving plain text.
// Safe for concurrent use.
type Stripper struct {
	policy *bluemonday.Policy
}

func NewStripper() *Stripper {
	return &Stripper{policy: bluemonday.StrictPolicy()}
}

// Strip returns s without tags, with entities unescaped and whitespace
// trimmed.
func (s *Stripper) Strip(in string) string {
	out := s.policy.Sanitize(in)
	return strings.TrimSpace(html.UnescapeString(out))
}
