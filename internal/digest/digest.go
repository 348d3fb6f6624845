package digest

import (
	"errors"
	"strings"
)

// ErrEmptySummary is returned when the summary holds no non-blank paragraph.
var ErrEmptySummary = errors.New("summary has no content")

// Request is a single book summary job.
type Request struct {
	BookName string `json:"book_name"`
	Author   string `json:"author"`
	Summary  string `json:"summary"`
}

// InputError reports required request fields that are absent.
type InputError struct {
	Missing []string
}

func (e *InputError) Error() string {
	return "Missing required fields: " + strings.Join(e.Missing, ", ")
}

// Validate rejects a request with a blank name or author, or no summary at
// all. A whitespace-only summary passes here and fails segmentation with
// ErrEmptySummary.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.BookName) == "" {
		missing = append(missing, "book_name")
	}
	if strings.TrimSpace(r.Author) == "" {
		missing = append(missing, "author")
	}
	if r.Summary == "" {
		missing = append(missing, "summary")
	}
	if len(missing) > 0 {
		return &InputError{Missing: missing}
	}
	return nil
}

// SectionSummary is the generated text for one input section.
type SectionSummary struct {
	Ordinal int    `json:"-"`
	Content string `json:"content"`
}

// Heading splits the content on its first line break. ok is false when the
// content has no line break and should be rendered as body only.
func (s SectionSummary) Heading() (heading, body string, ok bool) {
	heading, body, ok = strings.Cut(s.Content, "\n")
	if !ok {
		return "", s.Content, false
	}
	return heading, body, true
}

// Record aggregates every stage output for one request.
type Record struct {
	BookName      string           `json:"book_name"`
	Author        string           `json:"author"`
	SuperSummary  string           `json:"super_summary"`
	Abstract      string           `json:"abstract"`
	KeyPoints     string           `json:"key_points"`
	Sections      []SectionSummary `json:"main_content"`
	WriterProfile string           `json:"writer_profile"`
	Story         string           `json:"story"`
}
