// Package app wires configuration into adapters and use cases.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"NewsIngestor/internal/config"
	"NewsIngestor/internal/discovery"
	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/infrastructure/crawl"
	"NewsIngestor/internal/infrastructure/extract"
	"NewsIngestor/internal/infrastructure/feed"
	"NewsIngestor/internal/infrastructure/fetch"
	"NewsIngestor/internal/infrastructure/llm"
	"NewsIngestor/internal/infrastructure/scheduler"
	"NewsIngestor/internal/infrastructure/storage"
	"NewsIngestor/internal/infrastructure/telegram"
	"NewsIngestor/internal/logging"
	"NewsIngestor/internal/metrics"
	"NewsIngestor/internal/pacing"
	"NewsIngestor/internal/ports"
	"NewsIngestor/internal/summarize"
	"NewsIngestor/internal/usecase"
)

const (
	robotsTTL        = 6 * time.Hour
	crawlLinksFactor = 3
	shutdownTimeout  = 10 * time.Second
)

// Options select optional behaviour at construction time.
type Options struct {
	// DryRun keeps everything in memory instead of Postgres and Redis.
	DryRun bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	clock    pacing.Clock
	pipeline *usecase.Pipeline
	exporter *usecase.Exporter
	metrics  *metrics.Metrics
	closers  []func() error
}

// New builds every adapter the configuration asks for.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		clock:   pacing.SystemClock{},
		metrics: metrics.New(),
	}

	gate := pacing.NewGate(pacing.Spacing{
		Provider: cfg.Pacing.ProviderSpacing.Std(),
		Host:     cfg.Pacing.HostSpacing.Std(),
	}, a.clock, baseLogger.With("component", "pacing"))

	httpClient := &http.Client{}
	var robots *fetch.RobotsChecker
	if cfg.HTTP.RespectRobots {
		robots = fetch.NewRobotsChecker(&http.Client{Timeout: cfg.HTTP.Timeout.Std()}, cfg.HTTP.UserAgent, robotsTTL)
	}
	fetcher := fetch.NewClient(httpClient, fetch.Options{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.HTTP.Timeout.Std(),
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Pacer:        gate,
		Robots:       robots,
	})

	discoverer := discovery.NewRegistry(baseLogger.With("component", "discovery"))
	discoverer.Register(feed.NewStrategy(fetcher, a.clock, baseLogger.With("component", "discovery.feed")))
	crawlOpts := crawl.Options{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout.Std(),
		MaxLinks:  cfg.Pipeline.CrawlMaxPerSource * crawlLinksFactor,
	}
	if robots != nil {
		crawlOpts.Robots = robots
	}
	discoverer.Register(crawl.NewStrategy(httpClient, fetcher, a.clock, crawlOpts,
		baseLogger.With("component", "discovery.crawl")))

	extractor, err := extract.Build(cfg.Extractor.Strategies, fetcher, cfg.HTTP.BrowserUserAgent,
		cfg.Extractor.MinTextLength, baseLogger.With("component", "extractor"))
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	summarizer, err := a.buildSummarizer(gate)
	if err != nil {
		return nil, err
	}

	store, err := a.buildStore(ctx, opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	registry := ports.SourceRegistry(store.registry)
	if len(cfg.Sources) > 0 {
		static, err := storage.NewStaticRegistry(cfg.Sources)
		if err != nil {
			a.Close()
			return nil, err
		}
		registry = static
		if store.seeder != nil {
			if err := a.seedSources(ctx, static, store.seeder); err != nil {
				a.Close()
				return nil, err
			}
		}
	}

	var notifier ports.Notifier
	tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	if tg.Configured() {
		notifier = tg
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Registry:   registry,
		Discoverer: discoverer,
		Extractor:  extractor,
		Summarizer: summarizer,
		Sink:       store.sink,
		Gate:       store.gate,
		Recorder:   a.metrics,
		Notifier:   notifier,
		Clock:      a.clock,
		Logger:     baseLogger.With("component", "pipeline"),
	}, usecase.PipelineOptions{
		Window:            cfg.Pipeline.FreshnessWindow.Std(),
		MaxPerSource:      cfg.Pipeline.MaxPerSource,
		CrawlMaxPerSource: cfg.Pipeline.CrawlMaxPerSource,
		DiscoveryWorkers:  cfg.Pipeline.DiscoveryWorkers,
		SummarizeWorkers:  cfg.Pipeline.SummarizeWorkers,
		RunTimeout:        cfg.Pipeline.RunTimeout.Std(),
		SummarizeTimeout:  cfg.Pipeline.SummarizeTimeout.Std(),
		SkipKnown:         cfg.Pipeline.SkipKnown,
	})
	a.exporter = usecase.NewExporter(store.snapshots)

	return a, nil
}

func (a *Application) buildSummarizer(pacer ports.Pacer) (ports.Summarizer, error) {
	cfg := a.cfg.Summarizer
	kind := summarize.Kind(a.cfg.SummarizerStrategy())

	var provider llm.Provider
	if kind == summarize.KindGenerative {
		var err error
		provider, err = llm.New(llm.Config{
			Provider: cfg.Generative.Provider,
			Endpoint: cfg.Generative.Endpoint,
			Model:    cfg.Generative.Model,
			APIKey:   cfg.Generative.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("build generation provider: %w", err)
		}
	}

	summarizer, err := summarize.New(summarize.Options{
		Kind:     kind,
		MaxWords: cfg.MaxWords,
		Generative: summarize.GenerativeOptions{
			System:        cfg.Generative.SystemPrompt,
			MaxInputWords: cfg.Generative.MaxInputWords,
			MaxAttempts:   cfg.Generative.MaxAttempts,
			BaseDelay:     cfg.Generative.BaseDelay.Std(),
			Params: llm.Params{
				Model:       cfg.Generative.Model,
				Temperature: cfg.Generative.Temperature,
				MaxTokens:   cfg.Generative.MaxTokens,
			},
		},
		Extractive: summarize.ExtractiveOptions{Sentences: cfg.Extractive.Sentences},
	}, summarize.Deps{
		Provider: provider,
		Pacer:    pacer,
		Clock:    a.clock,
		Observer: a.metrics,
		Logger:   a.logger.With("component", "summarizer"),
	})
	if err != nil {
		return nil, fmt.Errorf("build summarizer: %w", err)
	}
	return summarizer, nil
}

type store struct {
	registry  ports.SourceRegistry
	sink      ports.NewsSink
	gate      ports.DuplicateGate
	snapshots ports.SnapshotReader
	seeder    sourceSeeder
}

// sourceSeeder mirrors configured sources into a persistent registry.
type sourceSeeder interface {
	UpsertSources(ctx context.Context, sources []domain.Source) (created, updated int, err error)
}

// seedSources copies the configured sources into the database so stored
// items can reference them.
func (a *Application) seedSources(ctx context.Context, registry ports.SourceRegistry, seeder sourceSeeder) error {
	sources, err := registry.ListActiveSources(ctx)
	if err != nil {
		return err
	}
	created, updated, err := seeder.UpsertSources(ctx, sources)
	if err != nil {
		return fmt.Errorf("seed configured sources: %w", err)
	}
	a.logger.Info("configured sources synced", "created", created, "updated", updated)
	return nil
}

func (a *Application) buildStore(ctx context.Context, opts Options) (store, error) {
	if opts.DryRun {
		mem := storage.NewMemoryRepository(a.clock)
		a.logger.Info("dry run: items are kept in memory")
		return store{registry: mem, sink: mem, gate: mem, snapshots: mem}, nil
	}

	db, err := storage.Open(ctx, storage.DBOptions{
		DSN:             a.cfg.Database.DSN,
		MaxOpenConns:    a.cfg.Database.MaxOpenConns,
		MaxIdleConns:    a.cfg.Database.MaxIdleConns,
		ConnMaxLifetime: a.cfg.Database.ConnMaxLifetime.Std(),
	})
	if err != nil {
		return store{}, err
	}
	a.closers = append(a.closers, db.Close)

	repo := storage.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return store{}, err
	}
	s := store{registry: repo, sink: repo, gate: repo, snapshots: repo, seeder: repo}

	if a.cfg.Redis.Addr != "" {
		client, err := storage.NewRedisClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			a.logger.Warn("redis unavailable, using database for duplicate checks", "error", err)
			return s, nil
		}
		a.closers = append(a.closers, client.Close)
		s.gate = storage.NewRedisGate(client, a.cfg.Redis.Key, a.cfg.Redis.TTL.Std(), repo)
	}

	return s, nil
}

// Run performs a single pipeline pass. When export is non-nil the items
// created during the run are written to it.
func (a *Application) Run(ctx context.Context, ro usecase.RunOptions, export io.Writer) (domain.RunSummary, error) {
	startedAt := a.clock.Now()

	summary, err := a.pipeline.Run(ctx, ro)
	if err != nil {
		return summary, err
	}

	if export != nil {
		n, err := a.exporter.Export(ctx, startedAt, export)
		if err != nil {
			return summary, fmt.Errorf("export snapshot: %w", err)
		}
		a.logger.Info("snapshot exported", "items", n)
	}
	return summary, nil
}

// Export writes the snapshot of items created after since.
func (a *Application) Export(ctx context.Context, since time.Time, w io.Writer) (int, error) {
	return a.exporter.Export(ctx, since, w)
}

// Serve runs the pipeline on the configured cron schedule and exposes
// metrics until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := scheduler.Validate(a.cfg.Scheduler.CronExpression); err != nil {
		return err
	}

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(),
		a.logger.With("component", "scheduler"))
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	server := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("metrics listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if err := sched.Start(ctx); err != nil {
		_ = server.Close()
		return fmt.Errorf("start scheduler: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("metrics server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("metrics server shutdown", "error", err)
	}
	return runErr
}

// Close releases database and cache connections.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
	a.closers = nil
}
