package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/bookdigest/internal/metrics"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("job queue is full")

// JobRunner feeds queued jobs to a fixed pool of workers.
type JobRunner struct {
	svc     *Service
	jobs    *JobStore
	queue   chan *Job
	workers int
	metrics *metrics.Metrics
	log     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewJobRunner(svc *Service, workers, queueSize int, ttl time.Duration, m *metrics.Metrics, log *slog.Logger) *JobRunner {
	return &JobRunner{
		svc:     svc,
		jobs:    NewJobStore(ttl),
		queue:   make(chan *Job, queueSize),
		workers: max(workers, 1),
		metrics: m,
		log:     log,
	}
}

// Start launches worker goroutines and the job store sweeper.
func (r *JobRunner) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for range r.workers {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-r.queue:
					if !ok {
						return
					}
					r.metrics.SetQueued(len(r.queue))
					r.process(workerCtx, job)
				}
			}
		}()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				r.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels in-flight jobs and waits for the workers to exit.
func (r *JobRunner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	close(r.queue)
	r.wg.Wait()
}

// Submit registers job and queues it for processing.
func (r *JobRunner) Submit(job *Job) error {
	r.jobs.Put(job)
	select {
	case r.queue <- job:
		r.metrics.SetQueued(len(r.queue))
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		job.Fail(ErrQueueFull)
		return ErrQueueFull
	}
}

// GetJob returns a job by ID, or nil.
func (r *JobRunner) GetJob(id string) *Job {
	return r.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (r *JobRunner) QueueDepth() int {
	return len(r.queue)
}
