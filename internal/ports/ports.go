package ports

import (
	"context"
	"iter"
	"time"

	"NewsIngestor/internal/domain"
)

// SourceRegistry lists the publishers to ingest. No side effects.
type SourceRegistry interface {
	ListActiveSources(ctx context.Context) ([]domain.Source, error)
}

// Discoverer turns a source into a lazy, finite candidate sequence. Each call
// re-fetches; a failure is yielded once as a non-nil error and ends the sequence.
type Discoverer interface {
	Discover(ctx context.Context, src domain.Source) iter.Seq2[domain.Candidate, error]
}

// Extractor isolates readable text and a representative image from a page.
type Extractor interface {
	Extract(ctx context.Context, url string) (domain.ExtractedContent, error)
}

// Summarizer converts article text into a bounded factual summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (domain.Summary, error)
}

// NewsSink persists items idempotently, keyed by link.
type NewsSink interface {
	UpsertNewsItem(ctx context.Context, item domain.NewsItem) (domain.UpsertResult, error)
}

// DuplicateGate answers whether a link is already stored. Reporting and cost
// control only; uniqueness is enforced by the sink.
type DuplicateGate interface {
	Known(ctx context.Context, link string) (bool, error)
}

// SeenRecorder is implemented by gates that keep their own membership state.
type SeenRecorder interface {
	Remember(ctx context.Context, link string) error
}

// SnapshotReader serves the point-in-time export.
type SnapshotReader interface {
	ItemsCreatedSince(ctx context.Context, since time.Time) ([]domain.NewsItem, error)
}

// Pacer blocks until the next call to a resource class is permitted.
type Pacer interface {
	Await(ctx context.Context, class string) error
}

// Notifier streams run reports to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// RunRecorder receives pipeline events for metrics.
type RunRecorder interface {
	SourceFinished(failed bool)
	CandidateFinished(outcome domain.Outcome)
	RunFinished(summary domain.RunSummary)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
