package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/freshness"
	"NewsIngestor/internal/logging"
	"NewsIngestor/internal/pacing"
	"NewsIngestor/internal/ports"
)

const (
	defaultMaxPerSource      = 5
	defaultCrawlMaxPerSource = 10
	reportTimeout            = 15 * time.Second
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Gate, Recorder and Notifier are optional.
type PipelineDeps struct {
	Registry   ports.SourceRegistry
	Discoverer ports.Discoverer
	Extractor  ports.Extractor
	Summarizer ports.Summarizer
	Sink       ports.NewsSink
	Gate       ports.DuplicateGate
	Recorder   ports.RunRecorder
	Notifier   ports.Notifier
	Clock      pacing.Clock
	Logger     *slog.Logger
}

// PipelineOptions bound every run.
type PipelineOptions struct {
	Window            time.Duration
	MaxPerSource      int
	CrawlMaxPerSource int
	DiscoveryWorkers  int
	SummarizeWorkers  int
	RunTimeout        time.Duration
	SummarizeTimeout  time.Duration
	// SkipKnown drops candidates the duplicate gate has already seen before
	// any page is fetched. Off by default: known links are re-summarized and
	// overwritten.
	SkipKnown bool
}

// RunOptions override PipelineOptions for a single run. Zero values keep
// the configured defaults.
type RunOptions struct {
	Window       time.Duration
	MaxPerSource int
}

// Pipeline implements the news-ingestion workflow.
type Pipeline struct {
	registry   ports.SourceRegistry
	discoverer ports.Discoverer
	extractor  ports.Extractor
	summarizer ports.Summarizer
	sink       ports.NewsSink
	gate       ports.DuplicateGate
	recorder   ports.RunRecorder
	notifier   ports.Notifier
	clock      pacing.Clock
	logger     *slog.Logger
	opts       PipelineOptions
	newRunID   func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = pacing.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if opts.MaxPerSource <= 0 {
		opts.MaxPerSource = defaultMaxPerSource
	}
	if opts.CrawlMaxPerSource <= 0 {
		opts.CrawlMaxPerSource = defaultCrawlMaxPerSource
	}
	if opts.DiscoveryWorkers <= 0 {
		opts.DiscoveryWorkers = 1
	}
	if opts.SummarizeWorkers <= 0 {
		opts.SummarizeWorkers = 1
	}

	return &Pipeline{
		registry:   deps.Registry,
		discoverer: deps.Discoverer,
		extractor:  deps.Extractor,
		summarizer: deps.Summarizer,
		sink:       deps.Sink,
		gate:       deps.Gate,
		recorder:   deps.Recorder,
		notifier:   deps.Notifier,
		clock:      deps.Clock,
		logger:     deps.Logger,
		opts:       opts,
		newRunID:   func() string { return uuid.NewString() },
	}
}

// run carries the per-run state shared by the source workers.
type run struct {
	id           string
	sources      domain.SourceIndex
	filter       freshness.Filter
	maxPerSource int // run override; zero uses the per-strategy caps
	stats        *domain.RunStats
	summarizeSem *semaphore.Weighted
	logger       *slog.Logger
}

// Run performs one pass over every active source. Only a registry failure is
// returned as an error; source and candidate failures end up in the summary.
func (p *Pipeline) Run(ctx context.Context, ro RunOptions) (domain.RunSummary, error) {
	r := &run{
		id:           p.newRunID(),
		filter:       freshness.NewFilter(p.opts.Window, p.clock),
		maxPerSource: ro.MaxPerSource,
		summarizeSem: semaphore.NewWeighted(int64(p.opts.SummarizeWorkers)),
	}
	if ro.Window > 0 {
		r.filter.Window = ro.Window
	}
	r.stats = domain.NewRunStats(r.id, p.clock.Now())
	r.logger = p.logger.With("run_id", r.id)

	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}

	sources, err := p.registry.ListActiveSources(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrRegistry) {
			err = fmt.Errorf("%w: %w", domain.ErrRegistry, err)
		}
		r.stats.Finish(p.clock.Now())
		r.logger.Error("registry unavailable", "error", err)
		return r.stats.Snapshot(), err
	}
	r.sources = domain.NewSourceIndex(sources)

	r.logger.Info("run started",
		"sources", len(sources),
		"window", r.filter.Window,
		"cutoff", r.filter.Cutoff().Format(time.RFC3339))

	var g errgroup.Group
	g.SetLimit(p.opts.DiscoveryWorkers)
	for _, src := range sources {
		g.Go(func() error {
			p.runSource(ctx, r, src.ID)
			return nil
		})
	}
	_ = g.Wait()

	r.stats.Finish(p.clock.Now())
	summary := r.stats.Snapshot()

	r.logger.Info("run finished",
		"duration", summary.Duration(),
		"sources_attempted", summary.SourcesAttempted,
		"sources_failed", summary.SourcesFailed,
		"candidates_discovered", summary.CandidatesDiscovered,
		"skipped_stale", summary.SkippedStale,
		"skipped_duplicate", summary.SkippedDuplicate,
		"skipped_extraction", summary.SkippedExtraction,
		"skipped_summarization", summary.SkippedSummarization,
		"skipped_persistence", summary.SkippedPersistence,
		"items_new", summary.ItemsNew,
		"items_updated", summary.ItemsUpdated)

	if p.recorder != nil {
		p.recorder.RunFinished(summary)
	}
	p.report(ctx, r.logger, summary)

	return summary, nil
}

func (p *Pipeline) runSource(ctx context.Context, r *run, sourceID string) {
	src := r.sources[sourceID]
	logger := r.logger.With("source_id", src.ID, "source", src.Name)
	r.stats.SourceAttempted()

	limit := p.limitFor(r, src)

	failed := false
	processed := 0
	for candidate, err := range p.discoverer.Discover(ctx, src) {
		if err != nil {
			failed = true
			logger.Warn("source failed", "error", err)
			break
		}

		r.stats.CandidateDiscovered()
		outcome, fetched := p.processCandidate(ctx, r, src, candidate, logger.With("link", candidate.Link))
		r.stats.Record(outcome, candidate.Title)
		if p.recorder != nil {
			p.recorder.CandidateFinished(outcome)
		}

		// Only candidates that cost a page fetch count against the cap.
		if fetched {
			processed++
		}
		if processed >= limit {
			break
		}
	}

	if failed {
		r.stats.SourceFailed()
	}
	if p.recorder != nil {
		p.recorder.SourceFinished(failed)
	}
	logger.Debug("source done", "candidates", processed, "failed", failed)
}

func (p *Pipeline) limitFor(r *run, src domain.Source) int {
	switch {
	case r.maxPerSource > 0:
		return r.maxPerSource
	case src.Strategy == domain.StrategyCrawl:
		return p.opts.CrawlMaxPerSource
	default:
		return p.opts.MaxPerSource
	}
}

// processCandidate walks one candidate through the state machine. Every exit
// is a terminal outcome; nothing is retried across states. The second result
// reports whether the candidate reached extraction.
func (p *Pipeline) processCandidate(ctx context.Context, r *run, src domain.Source, c domain.Candidate, logger *slog.Logger) (domain.Outcome, bool) {
	state := domain.StateDiscovered

	skip := func(reason domain.SkipReason, err error) (domain.Outcome, bool) {
		if err != nil {
			logger.Warn("candidate skipped", "reason", reason, "state", state, "error", err)
		} else {
			logger.Warn("candidate skipped", "reason", reason, "state", state)
		}
		return domain.Skipped(reason, err), state != domain.StateDiscovered
	}
	fail := func(err error) (domain.Outcome, bool) {
		return skip(domain.ReasonFor(state, err), err)
	}

	if !r.filter.Admit(c) {
		return skip(domain.SkipStale, nil)
	}

	if p.gate != nil && p.opts.SkipKnown {
		known, err := p.gate.Known(ctx, c.Link)
		if err != nil {
			logger.Debug("duplicate check failed", "error", err)
		}
		if known {
			return skip(domain.SkipDuplicate, nil)
		}
	}

	state = domain.StateExtracting
	logger.Debug("extracting")
	content, err := p.extractor.Extract(ctx, c.Link)
	if err != nil {
		return fail(err)
	}

	publishedAt := c.PublishedAt
	if !c.PublishedKnown && !content.PublishedAt.IsZero() {
		publishedAt = content.PublishedAt
		if !r.filter.Fresh(publishedAt) {
			return skip(domain.SkipStale, nil)
		}
	}

	imageURL := content.ImageURL
	if imageURL == "" {
		imageURL = c.ImageHint
	}

	state = domain.StateSummarizing
	logger.Debug("summarizing", "extractor", content.Strategy)
	summary, err := p.summarize(ctx, r, content.Text)
	if err != nil {
		return fail(err)
	}

	state = domain.StatePersisting
	title := c.Title
	if title == "" {
		title = c.Link
	}
	result, err := p.sink.UpsertNewsItem(ctx, domain.NewsItem{
		Link:        c.Link,
		Title:       title,
		SourceID:    src.ID,
		SourceName:  src.Name,
		SummaryText: summary.String(),
		ImageURL:    imageURL,
		PublishedAt: publishedAt,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return fail(err)
	}

	if recorder, ok := p.gate.(ports.SeenRecorder); ok {
		if err := recorder.Remember(ctx, c.Link); err != nil {
			logger.Debug("remember link failed", "error", err)
		}
	}

	logger.Info("item written", "result", result, "words", summary.Words())
	return domain.Done(result), true
}

// summarize holds a summarizer slot for the duration of one call.
func (p *Pipeline) summarize(ctx context.Context, r *run, text string) (domain.Summary, error) {
	if err := r.summarizeSem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for summarizer: %w", err)
	}
	defer r.summarizeSem.Release(1)

	if p.opts.SummarizeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.SummarizeTimeout)
		defer cancel()
	}
	return p.summarizer.Summarize(ctx, text)
}

func (p *Pipeline) report(ctx context.Context, logger *slog.Logger, summary domain.RunSummary) {
	if p.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	if err := p.notifier.PublishDigest(ctx, BuildReport(summary, defaultReportTitles)); err != nil {
		logger.Warn("publish run report", "error", err)
	}
}
