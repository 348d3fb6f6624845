package pipeline

import (
	"context"

	"github.com/dgallion1/bookdigest/internal/stage"
)

// process runs one job to completion and records the outcome on it.
func (r *JobRunner) process(ctx context.Context, job *Job) {
	log := r.log.With("job_id", job.ID, "book", job.BookName)
	log.Info("job started")

	job.SetStatus(StatusSegmenting, "segmenting")
	hooks := Hooks{
		Planned: func(n int) {
			job.SetTotalSections(n)
			job.SetStatus(StatusGenerating, "section summaries")
		},
		StageDone: func(res stage.Result) {
			job.StageDone(res.Kind == stage.SectionSummary)
			if res.Kind == stage.SectionSummary {
				return
			}
			job.SetStatus(StatusGenerating, res.Kind.String()+" done")
		},
		Publishing: func() {
			job.SetStatus(StatusPublishing, "publishing")
		},
	}

	res, err := r.svc.Process(ctx, job.Request(), hooks)
	if err != nil {
		log.Error("job failed", "error", err)
		job.Fail(err)
		return
	}
	job.Complete(res.Response())
	log.Info("job completed", "document_url", res.DocumentURL, "published", res.Published)
}
