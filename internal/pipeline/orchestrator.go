// Package pipeline sequences the generation stages for one summary and runs
// queued summary jobs.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/bookdigest/internal/digest"
	"github.com/dgallion1/bookdigest/internal/metrics"
	"github.com/dgallion1/bookdigest/internal/segment"
	"github.com/dgallion1/bookdigest/internal/stage"
)

// SectionSeparator joins section summaries into the aggregate text the
// closing stages read.
const SectionSeparator = "\n\n---\n\n"

// Hooks receive pipeline milestones. Nil fields are skipped. With section
// concurrency above one, StageDone may be called from several goroutines.
type Hooks struct {
	Planned    func(sections int)
	StageDone  func(stage.Result)
	Publishing func()
}

func (h Hooks) planned(n int) {
	if h.Planned != nil {
		h.Planned(n)
	}
}

func (h Hooks) stageDone(r stage.Result) {
	if h.StageDone != nil {
		h.StageDone(r)
	}
}

func (h Hooks) publishing() {
	if h.Publishing != nil {
		h.Publishing()
	}
}

// Orchestrator runs every stage for one request and builds the record.
type Orchestrator struct {
	gen         *stage.Generator
	concurrency int
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// NewOrchestrator runs up to concurrency section summaries at once.
func NewOrchestrator(gen *stage.Generator, concurrency int, m *metrics.Metrics, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gen:         gen,
		concurrency: max(concurrency, 1),
		metrics:     m,
		log:         log,
	}
}

// Run segments the summary, summarizes every section, then runs the closing
// stages over the joined section summaries. The first failed stage aborts
// the run and its *stage.Error is returned; no partial record is produced.
func (o *Orchestrator) Run(ctx context.Context, req digest.Request, hooks Hooks) (*digest.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	count := segment.SectionCount(req.Summary)
	chunks := segment.Split(req.Summary, count)
	if len(chunks) == 0 {
		return nil, digest.ErrEmptySummary
	}
	log := o.log.With("book", req.BookName)
	log.Info("segmented summary",
		"words", segment.WordCount(req.Summary),
		"est_tokens", segment.EstimateTokens(req.Summary),
		"section_count", count,
		"chunks", len(chunks))
	hooks.planned(len(chunks))

	sections, err := o.summarizeSections(ctx, chunks, hooks)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.Content
	}
	aggregate := strings.Join(texts, SectionSeparator)

	rec := &digest.Record{
		BookName: req.BookName,
		Author:   req.Author,
		Sections: sections,
	}
	closing := []struct {
		kind stage.Kind
		dst  *string
		call func() (stage.Result, error)
	}{
		{stage.SuperSummary, &rec.SuperSummary, func() (stage.Result, error) { return o.gen.SuperSummary(ctx, aggregate) }},
		{stage.Abstract, &rec.Abstract, func() (stage.Result, error) { return o.gen.Abstract(ctx, aggregate, req.BookName, req.Author) }},
		{stage.KeyPoints, &rec.KeyPoints, func() (stage.Result, error) { return o.gen.KeyPoints(ctx, aggregate) }},
		{stage.WriterProfile, &rec.WriterProfile, func() (stage.Result, error) { return o.gen.WriterProfile(ctx, req.Author) }},
		{stage.Story, &rec.Story, func() (stage.Result, error) { return o.gen.Story(ctx, aggregate) }},
	}
	for _, step := range closing {
		res, err := step.call()
		o.observe(step.kind, res.Elapsed, err)
		if err != nil {
			log.Error("pipeline aborted", "stage", step.kind.String(), "error", err)
			return nil, err
		}
		*step.dst = res.Text
		hooks.stageDone(res)
	}

	log.Info("pipeline complete", "sections", len(sections))
	return rec, nil
}

// summarizeSections keeps results in ordinal order regardless of completion
// order. Once a section fails no further section is started.
func (o *Orchestrator) summarizeSections(ctx context.Context, chunks []string, hooks Hooks) ([]digest.SectionSummary, error) {
	out := make([]digest.SectionSummary, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, chunk := range chunks {
		if gctx.Err() != nil {
			break
		}
		ordinal := i + 1
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := o.gen.SectionSummary(gctx, chunk, ordinal, len(chunks))
			o.observe(stage.SectionSummary, res.Elapsed, err)
			if err != nil {
				o.log.Error("section failed", "ordinal", ordinal, "total", len(chunks), "error", err)
				return err
			}
			out[i] = digest.SectionSummary{Ordinal: ordinal, Content: res.Text}
			hooks.stageDone(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) observe(kind stage.Kind, d time.Duration, err error) {
	o.metrics.ObserveStage(kind.String(), d, err == nil)
}
