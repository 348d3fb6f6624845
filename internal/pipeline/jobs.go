package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/bookdigest/internal/digest"
)

// JobStatus represents the state of a digest job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusSegmenting JobStatus = "segmenting"
	StatusGenerating JobStatus = "generating"
	StatusPublishing JobStatus = "publishing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single queued digest.
type Job struct {
	mu sync.Mutex

	ID       string
	BookName string
	Author   string
	Filename string

	Status   JobStatus
	Phase    string
	Progress Progress

	CreatedAt time.Time
	UpdatedAt time.Time

	request digest.Request
	result  *Response
	err     string
}

// Progress tracks processing progress.
type Progress struct {
	TotalSections int `json:"total_sections"`
	SectionsDone  int `json:"sections_done"`
	StagesDone    int `json:"stages_done"`
}

// NewJob creates a queued job for req. filename is informational and may be
// empty when the summary arrived inline.
func NewJob(req digest.Request, filename string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		BookName:  req.BookName,
		Author:    req.Author,
		Filename:  filename,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		request:   req,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs idle for longer than the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		idle := now.Sub(job.UpdatedAt)
		job.mu.Unlock()
		if idle > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetTotalSections records how many sections will be summarized.
func (j *Job) SetTotalSections(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalSections = n
	j.UpdatedAt = time.Now()
}

// StageDone counts one finished stage. section is true for section summaries.
func (j *Job) StageDone(section bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if section {
		j.Progress.SectionsDone++
	}
	j.Progress.StagesDone++
	j.UpdatedAt = time.Now()
}

// Complete stores the response and marks the job completed.
func (j *Job) Complete(resp Response) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = &resp
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed in the current phase.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = err.Error()
	j.Status = StatusFailed
	j.UpdatedAt = time.Now()
}

// Request returns the submitted request.
func (j *Job) Request() digest.Request {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.request
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	BookName  string    `json:"book_name"`
	Author    string    `json:"author"`
	Filename  string    `json:"filename,omitempty"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	Result    *Response `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:        j.ID,
		BookName:  j.BookName,
		Author:    j.Author,
		Filename:  j.Filename,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress:  j.Progress,
		Result:    j.result,
		Error:     j.err,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
