package llm

import (
	"context"
	"slices"
	"sync"
	"time"
)

type sample struct {
	at     time.Time
	millis int64
	failed bool
}

// Snapshot aggregates the calls seen within the stats window.
type Snapshot struct {
	Model    string  `json:"model,omitempty"`
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// Stats keeps generation call latencies for a rolling window.
type Stats struct {
	mu      sync.Mutex
	model   string
	window  time.Duration
	samples []sample
	now     func() time.Time
}

func NewStats(model string, window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		model:   model,
		window:  window,
		samples: make([]sample, 0, 256),
		now:     time.Now,
	}
}

// Record adds one call. Negative durations count as zero.
func (s *Stats) Record(d time.Duration, failed bool) {
	ms := max(d.Milliseconds(), 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, millis: ms, failed: failed})
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())

	snap := Snapshot{Model: s.model}
	if len(s.samples) == 0 {
		return snap
	}
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		if sm.failed {
			snap.Failures++
		}
		values = append(values, sm.millis)
		sum += sm.millis
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	kept := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.at.Before(cutoff) {
			kept = append(kept, sm)
		}
	}
	s.samples = kept
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*frac
}

type instrumented struct {
	next  Completer
	stats *Stats
}

// Instrumented records the latency of every call to next into stats.
func Instrumented(next Completer, stats *Stats) Completer {
	return &instrumented{next: next, stats: stats}
}

func (i *instrumented) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	start := time.Now()
	out, err := i.next.Complete(ctx, prompt, maxTokens, temperature)
	i.stats.Record(time.Since(start), err != nil)
	return out, err
}
