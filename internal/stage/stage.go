// Package stage issues one prompt-and-sanitize round per generation stage.
package stage

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/sanitize"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Kind names a generation stage.
type Kind int

const (
	SectionSummary Kind = iota
	SuperSummary
	Abstract
	KeyPoints
	WriterProfile
	Story
)

var kindNames = [...]string{
	SectionSummary: "section_summary",
	SuperSummary:   "super_summary",
	Abstract:       "abstract",
	KeyPoints:      "key_points",
	WriterProfile:  "writer_profile",
	Story:          "story",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Result is the sanitized output of one stage. Ordinal is 1-based and only
// set for section summaries.
type Result struct {
	Kind    Kind
	Ordinal int
	Text    string
	Elapsed time.Duration
}

// Error reports a failed stage. The pipeline treats it as fatal.
type Error struct {
	Kind    Kind
	Ordinal int
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == SectionSummary {
		return fmt.Sprintf("section %d summary: %v", e.Ordinal, e.Err)
	}
	return fmt.Sprintf("%s: %v", strings.ReplaceAll(e.Kind.String(), "_", " "), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options are the generation parameters shared by every stage.
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Generator builds stage prompts, calls the backend and cleans the output.
// It holds no per-request state and is safe for concurrent use.
type Generator struct {
	backend   llm.Completer
	sanitizer *sanitize.Sanitizer
	prompts   *template.Template
	openers   []string
	opts      Options
	log       *slog.Logger
}

// NewGenerator parses the embedded prompt templates. openers lists the
// phrases a section heading must not start with.
func NewGenerator(backend llm.Completer, s *sanitize.Sanitizer, openers []string, opts Options, log *slog.Logger) (*Generator, error) {
	tmpl, err := template.New("prompts").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Generator{
		backend:   backend,
		sanitizer: s,
		prompts:   tmpl,
		openers:   openers,
		opts:      opts,
		log:       log,
	}, nil
}

type promptData struct {
	Text    string
	Book    string
	Author  string
	Ordinal int
	Total   int
	Openers []string
}

// SectionSummary produces a heading line followed by a body for one chunk.
func (g *Generator) SectionSummary(ctx context.Context, chunk string, ordinal, total int) (Result, error) {
	return g.run(ctx, SectionSummary, ordinal, "section", promptData{
		Text:    chunk,
		Ordinal: ordinal,
		Total:   total,
		Openers: g.openers,
	})
}

// SuperSummary produces the 43-word conclusion.
func (g *Generator) SuperSummary(ctx context.Context, aggregate string) (Result, error) {
	return g.run(ctx, SuperSummary, 0, "super_summary", promptData{Text: aggregate})
}

// Abstract produces an abstract that opens by naming the book and author.
func (g *Generator) Abstract(ctx context.Context, aggregate, book, author string) (Result, error) {
	return g.run(ctx, Abstract, 0, "abstract", promptData{Text: aggregate, Book: book, Author: author})
}

// KeyPoints produces seven one-line points, each prefixed with a bullet.
func (g *Generator) KeyPoints(ctx context.Context, aggregate string) (Result, error) {
	res, err := g.run(ctx, KeyPoints, 0, "key_points", promptData{Text: aggregate})
	if err != nil {
		return res, err
	}
	res.Text = NormalizeBullets(res.Text)
	return res, nil
}

// WriterProfile produces a short profile of the author. It does not look at
// the summary text.
func (g *Generator) WriterProfile(ctx context.Context, author string) (Result, error) {
	return g.run(ctx, WriterProfile, 0, "writer_profile", promptData{Author: author})
}

// Story produces a short story carrying the summary's message.
func (g *Generator) Story(ctx context.Context, aggregate string) (Result, error) {
	return g.run(ctx, Story, 0, "story", promptData{Text: aggregate})
}

func (g *Generator) run(ctx context.Context, kind Kind, ordinal int, name string, data promptData) (Result, error) {
	var sb strings.Builder
	if err := g.prompts.ExecuteTemplate(&sb, name, data); err != nil {
		return Result{}, &Error{Kind: kind, Ordinal: ordinal, Err: fmt.Errorf("render prompt: %w", err)}
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := g.backend.Complete(ctx, sb.String(), g.opts.MaxTokens, g.opts.Temperature)
	elapsed := time.Since(start)
	if err != nil {
		g.log.Error("stage failed", "stage", kind.String(), "ordinal", ordinal, "duration_ms", elapsed.Milliseconds(), "error", err)
		return Result{}, &Error{Kind: kind, Ordinal: ordinal, Err: err}
	}

	text := g.sanitizer.Apply(raw)
	g.log.Debug("stage complete", "stage", kind.String(), "ordinal", ordinal, "duration_ms", elapsed.Milliseconds(), "chars", len(text))
	return Result{Kind: kind, Ordinal: ordinal, Text: text, Elapsed: elapsed}, nil
}

var bulletMarker = regexp.MustCompile(`^(?:•\s*|[-*–]\s+|\d+[.)]\s+)+`)

// NormalizeBullets trims every line, drops blank ones, and gives each
// remaining line exactly one leading "• ".
func NormalizeBullets(text string) string {
	var out []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(bulletMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, "• "+line)
	}
	return strings.Join(out, "\n")
}
