package domain

import (
	"sync"
	"time"
)

// RunStats accumulates run-level counters. Safe for concurrent use.
type RunStats struct {
	mu sync.Mutex

	RunID                string
	StartedAt            time.Time
	FinishedAt           time.Time
	SourcesAttempted     int
	SourcesFailed        int
	CandidatesDiscovered int
	Skipped              map[SkipReason]int
	ItemsNew             int
	ItemsUpdated         int
	Titles               []string
}

// NewRunStats starts an empty stats record.
func NewRunStats(runID string, startedAt time.Time) *RunStats {
	return &RunStats{
		RunID:     runID,
		StartedAt: startedAt,
		Skipped:   make(map[SkipReason]int, len(SkipReasons)),
	}
}

func (s *RunStats) SourceAttempted() {
	s.mu.Lock()
	s.SourcesAttempted++
	s.mu.Unlock()
}

func (s *RunStats) SourceFailed() {
	s.mu.Lock()
	s.SourcesFailed++
	s.mu.Unlock()
}

func (s *RunStats) CandidateDiscovered() {
	s.mu.Lock()
	s.CandidatesDiscovered++
	s.mu.Unlock()
}

// Record folds a candidate outcome into the counters.
func (s *RunStats) Record(outcome Outcome, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if outcome.State == StateSkipped {
		s.Skipped[outcome.Reason]++
		return
	}

	switch outcome.Result {
	case UpsertInserted:
		s.ItemsNew++
	case UpsertUpdated:
		s.ItemsUpdated++
	}
	if title != "" {
		s.Titles = append(s.Titles, title)
	}
}

// Finish stamps the end of the run.
func (s *RunStats) Finish(at time.Time) {
	s.mu.Lock()
	s.FinishedAt = at
	s.mu.Unlock()
}

// RunSummary is an immutable copy of the counters.
type RunSummary struct {
	RunID                string
	StartedAt            time.Time
	FinishedAt           time.Time
	SourcesAttempted     int
	SourcesFailed        int
	CandidatesDiscovered int
	SkippedStale         int
	SkippedDuplicate     int
	SkippedExtraction    int
	SkippedSummarization int
	SkippedPersistence   int
	ItemsNew             int
	ItemsUpdated         int
	Titles               []string
}

// ItemsWritten is the number of rows inserted or overwritten.
func (r RunSummary) ItemsWritten() int {
	return r.ItemsNew + r.ItemsUpdated
}

// SkippedTotal sums all skip reasons.
func (r RunSummary) SkippedTotal() int {
	return r.SkippedStale + r.SkippedDuplicate + r.SkippedExtraction + r.SkippedSummarization + r.SkippedPersistence
}

// Duration is the wall time of the run.
func (r RunSummary) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Snapshot copies the counters under the lock.
func (s *RunStats) Snapshot() RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles := make([]string, len(s.Titles))
	copy(titles, s.Titles)

	return RunSummary{
		RunID:                s.RunID,
		StartedAt:            s.StartedAt,
		FinishedAt:           s.FinishedAt,
		SourcesAttempted:     s.SourcesAttempted,
		SourcesFailed:        s.SourcesFailed,
		CandidatesDiscovered: s.CandidatesDiscovered,
		SkippedStale:         s.Skipped[SkipStale],
		SkippedDuplicate:     s.Skipped[SkipDuplicate],
		SkippedExtraction:    s.Skipped[SkipExtractionFailed],
		SkippedSummarization: s.Skipped[SkipSummarizationFailed],
		SkippedPersistence:   s.Skipped[SkipPersistenceFailed],
		ItemsNew:             s.ItemsNew,
		ItemsUpdated:         s.ItemsUpdated,
		Titles:               titles,
	}
}
