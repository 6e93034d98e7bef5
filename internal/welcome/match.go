package welcome

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/lvrach/x-social-ai/internal/xapi"
)

// DefaultMarkers identify a verification post.
var DefaultMarkers = []string{"verify", "clawfriend", "signature"}

// DefaultReplyTemplate is the welcome reply. {{.Handle}} is the bare handle.
const DefaultReplyTemplate = "Welcome to the pack @{{.Handle}}! 🐾 We're excited to have you in the ClawFriend ecosystem. Let's build something amazing together! 🚀"

// Matcher decides whether a post's text qualifies for a welcome reply.
type Matcher func(text string) bool

// MarkerMatcher matches text containing any marker, ignoring case.
// With no non-empty markers it matches nothing.
func MarkerMatcher(markers ...string) Matcher {
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	return func(text string) bool {
		text = strings.ToLower(text)
		for _, m := range lowered {
			if strings.Contains(text, m) {
				return true
			}
		}
		return false
	}
}

// FirstMatch returns the first post, in the order given, that m accepts.
func FirstMatch(posts []xapi.Post, m Matcher) (xapi.Post, bool) {
	for _, p := range posts {
		if m(p.Text) {
			return p, true
		}
	}
	return xapi.Post{}, false
}

// ReplyTemplate renders the welcome message for a handle.
type ReplyTemplate struct {
	t *template.Template
}

// ParseReplyTemplate parses s, or DefaultReplyTemplate when s is blank.
func ParseReplyTemplate(s string) (*ReplyTemplate, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultReplyTemplate
	}
	t, err := template.New("reply").Option("missingkey=error").Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse reply template: %w", err)
	}
	return &ReplyTemplate{t: t}, nil
}

// MustReplyTemplate is ParseReplyTemplate for known-good templates.
func MustReplyTemplate(s string) *ReplyTemplate {
	rt, err := ParseReplyTemplate(s)
	if err != nil {
		panic(err)
	}
	return rt
}

// Render executes the template for handle.
func (rt *ReplyTemplate) Render(handle string) (string, error) {
	var buf bytes.Buffer
	if err := rt.t.Execute(&buf, struct{ Handle string }{Handle: handle}); err != nil {
		return "", fmt.Errorf("render reply: %w", err)
	}
	return buf.String(), nil
}
