// Package sanitize strips generator boilerplate and banned vocabulary from
// generated text.
package sanitize

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var boldLine = regexp.MustCompile(`(?m)^\*\*(.*?)\*\*\s*$`)

// Sanitizer holds compiled rules. It is safe for concurrent use.
type Sanitizer struct {
	preambles []*regexp.Regexp
	forbidden []*regexp.Regexp
}

// New compiles rules. Preambles are anchored per line; every match is
// case-insensitive.
func New(r Rules) (*Sanitizer, error) {
	s := &Sanitizer{}
	for _, p := range r.Preambles {
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?im)" + p)
		if err != nil {
			return nil, fmt.Errorf("preamble %q: %w", p, err)
		}
		s.preambles = append(s.preambles, re)
	}
	// Longest phrases first, so "In conclusion," is removed whole before "Conclusion".
	words := slices.Clone(r.ForbiddenWords)
	slices.SortStableFunc(words, func(a, b string) int { return len(b) - len(a) })
	for _, w := range words {
		if w == "" {
			continue
		}
		s.forbidden = append(s.forbidden, regexp.MustCompile("(?i)"+regexp.QuoteMeta(w)))
	}
	for _, p := range r.ForbiddenPatterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("forbidden pattern %q: %w", p, err)
		}
		s.forbidden = append(s.forbidden, re)
	}
	return s, nil
}

// Clean removes generator preambles and unwraps lines that are entirely bold.
func (s *Sanitizer) Clean(text string) string {
	return fixpoint(text, func(t string) string {
		for _, re := range s.preambles {
			t = re.ReplaceAllString(t, "")
		}
		t = boldLine.ReplaceAllString(t, "$1")
		return strings.TrimSpace(t)
	})
}

// StripForbidden removes banned phrases and word forms.
func (s *Sanitizer) StripForbidden(text string) string {
	return fixpoint(text, func(t string) string {
		for _, re := range s.forbidden {
			t = re.ReplaceAllString(t, "")
		}
		return strings.TrimSpace(t)
	})
}

// Apply runs Clean then StripForbidden.
func (s *Sanitizer) Apply(text string) string {
	return s.StripForbidden(s.Clean(text))
}

// fixpoint repeats pass until the text stops changing. Every pass only
// deletes, so this terminates, and the result is stable under another pass.
func fixpoint(text string, pass func(string) string) string {
	for {
		next := pass(text)
		if next == text {
			return next
		}
		text = next
	}
}
