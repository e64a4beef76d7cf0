package domain

import "errors"

var (
	ErrRegistry         = errors.New("source registry unavailable")
	ErrDiscovery        = errors.New("discovery failed")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrQuotaExhausted   = errors.New("generation quota exhausted")
	ErrSummarization    = errors.New("summarization failed")
	ErrPersistence      = errors.New("persistence failed")
)

// CandidateState enumerates the per-candidate pipeline milestones.
type CandidateState string

const (
	StateDiscovered  CandidateState = "discovered"
	StateExtracting  CandidateState = "extracting"
	StateSummarizing CandidateState = "summarizing"
	StatePersisting  CandidateState = "persisting"
	StateDone        CandidateState = "done"
	StateSkipped     CandidateState = "skipped"
)

// Terminal reports whether no further transition is allowed.
func (s CandidateState) Terminal() bool {
	return s == StateDone || s == StateSkipped
}

// SkipReason explains why a candidate ended in StateSkipped.
type SkipReason string

const (
	SkipNone                SkipReason = ""
	SkipStale               SkipReason = "stale"
	SkipDuplicate           SkipReason = "duplicate"
	SkipExtractionFailed    SkipReason = "extraction_failed"
	SkipSummarizationFailed SkipReason = "summarization_failed"
	SkipPersistenceFailed   SkipReason = "persistence_failed"
)

// SkipReasons lists every reason in reporting order.
var SkipReasons = []SkipReason{
	SkipStale,
	SkipDuplicate,
	SkipExtractionFailed,
	SkipSummarizationFailed,
	SkipPersistenceFailed,
}

// Outcome is the typed result of running one candidate through the pipeline.
type Outcome struct {
	State  CandidateState
	Reason SkipReason
	Result UpsertResult
	Err    error
}

// Done builds a successful outcome.
func Done(result UpsertResult) Outcome {
	return Outcome{State: StateDone, Result: result}
}

// Skipped builds a skip outcome for the given reason.
func Skipped(reason SkipReason, err error) Outcome {
	return Outcome{State: StateSkipped, Reason: reason, Err: err}
}

// ReasonFor maps a stage error onto its skip reason. The stage the candidate
// was in decides the reason for timeouts and cancellations.
func ReasonFor(stage CandidateState, err error) SkipReason {
	switch {
	case errors.Is(err, ErrExtractionFailed):
		return SkipExtractionFailed
	case errors.Is(err, ErrQuotaExhausted), errors.Is(err, ErrSummarization):
		return SkipSummarizationFailed
	case errors.Is(err, ErrPersistence):
		return SkipPersistenceFailed
	default:
		return reasonForStage(stage)
	}
}

func reasonForStage(stage CandidateState) SkipReason {
	switch stage {
	case StateExtracting:
		return SkipExtractionFailed
	case StateSummarizing:
		return SkipSummarizationFailed
	case StatePersisting:
		return SkipPersistenceFailed
	default:
		return SkipExtractionFailed
	}
}
