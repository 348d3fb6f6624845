package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/bookdigest/internal/assemble"
	"github.com/dgallion1/bookdigest/internal/digest"
	"github.com/dgallion1/bookdigest/internal/docstore"
	"github.com/dgallion1/bookdigest/internal/metrics"
)

// Service runs the pipeline, then assembles and publishes the document.
type Service struct {
	orch    *Orchestrator
	store   docstore.Store
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewService(orch *Orchestrator, store docstore.Store, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{orch: orch, store: store, metrics: m, log: log}
}

// Result is a finished digest. When publishing fails, Published is false and
// DocumentURL holds the store's error description.
type Result struct {
	Record      *digest.Record
	DocumentURL string
	Published   bool
	Elapsed     time.Duration
}

// Response is the JSON shape returned to callers.
type Response struct {
	Status string `json:"status"`
	digest.Record
	DocumentURL string `json:"document_url"`
	TotalTime   string `json:"total_time"`
}

func (r *Result) Response() Response {
	return Response{
		Status:      "success",
		Record:      *r.Record,
		DocumentURL: r.DocumentURL,
		TotalTime:   FormatElapsed(r.Elapsed),
	}
}

// FormatElapsed renders d as whole minutes and seconds, e.g. "3m 7s".
func FormatElapsed(d time.Duration) string {
	d = max(d, 0)
	return fmt.Sprintf("%dm %ds", int(d/time.Minute), int(d%time.Minute/time.Second))
}

// Process generates and publishes one digest. Only input and stage errors
// fail it; a document store failure is reported through the Result.
func (s *Service) Process(ctx context.Context, req digest.Request, hooks Hooks) (*Result, error) {
	start := time.Now()
	rec, err := s.orch.Run(ctx, req, hooks)
	if err != nil {
		s.metrics.ObserveRun(time.Since(start), false)
		return nil, err
	}

	hooks.publishing()
	doc := assemble.Assemble(rec)
	url, ok := docstore.Publish(ctx, s.store, doc, s.log)
	s.metrics.ObservePublish(ok)

	elapsed := time.Since(start)
	s.metrics.ObserveRun(elapsed, true)
	s.log.Info("digest finished", "book", rec.BookName, "published", ok, "total_time", FormatElapsed(elapsed))
	return &Result{Record: rec, DocumentURL: url, Published: ok, Elapsed: elapsed}, nil
}
