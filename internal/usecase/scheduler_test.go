package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/usecase"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

type blockingRegistry struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingRegistry) ListActiveSources(context.Context) ([]domain.Source, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return nil, nil
}

func TestScheduler_RunsPipelineOnTick(t *testing.T) {
	t.Parallel()

	sources := []domain.Source{{ID: "s1", Name: "News"}}
	f := newFixture(sources, stubDiscoverer{candidates: map[string][]domain.Candidate{"s1": {
		candidate("https://news.example/a", time.Hour),
	}}})

	driver := &manualDriver{}
	s := usecase.NewScheduler(driver, usecase.NewPipeline(f.deps, f.opts), nil)
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(runNow)
	assert.Len(t, f.repo.Items(), 1)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestScheduler_DropsOverlappingTicks(t *testing.T) {
	t.Parallel()

	f := newFixture(nil, stubDiscoverer{})
	registry := &blockingRegistry{entered: make(chan struct{}), release: make(chan struct{})}
	f.deps.Registry = registry

	s := usecase.NewScheduler(&manualDriver{}, usecase.NewPipeline(f.deps, f.opts), nil)

	done := make(chan bool)
	go func() { done <- s.Trigger(context.Background(), runNow) }()

	<-registry.entered
	assert.False(t, s.Trigger(context.Background(), runNow.Add(time.Hour)))

	close(registry.release)
	assert.True(t, <-done)
	assert.True(t, s.Trigger(context.Background(), runNow.Add(2*time.Hour)))
}

func TestScheduler_RequiresDriver(t *testing.T) {
	t.Parallel()

	assert.Error(t, usecase.NewScheduler(nil, nil, nil).Start(context.Background()))
}
