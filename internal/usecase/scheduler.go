package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"NewsIngestor/internal/logging"
	"NewsIngestor/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case. A tick that
// fires while a run is still in progress is dropped.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return errors.New("scheduler requires a driver and a pipeline")
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.Trigger(ctx, trigger)
	})
}

// Trigger runs the pipeline once unless a run is already in progress.
func (s *Scheduler) Trigger(ctx context.Context, trigger time.Time) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous run still in progress, skipping tick", "trigger", trigger)
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if _, err := s.pipeline.Run(ctx, RunOptions{}); err != nil {
		s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
	}
	return true
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
