// Package sanitize handles user-submitted profile text. Text is stored as the
// user typed it, trimmed; html/template escapes it on output. Multiline turns
// a stored bio into HTML with line breaks and runs the result through a
// bluemonday policy that admits nothing but <br>.
package sanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared line-break policy, building it on first use.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.NewPolicy()
		policy.AllowElements("br")
	})
	return policy
}

// PlainText trims input. Tag-shaped text such as "<b>" is kept verbatim.
func PlainText(input string) string {
	return strings.TrimSpace(input)
}

// Optional returns nil for an already cleaned empty value and a pointer to
// it otherwise. Blank optional columns are stored as NULL.
func Optional(clean string) *string {
	if clean == "" {
		return nil
	}
	return &clean
}

// Multiline escapes text and replaces its line breaks with <br>.
func Multiline(text string) template.HTML {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = html.EscapeString(line)
	}
	return template.HTML(getPolicy().Sanitize(strings.Join(lines, "<br>")))
}
