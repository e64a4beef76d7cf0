package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/config"
	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/infrastructure/storage"
	"NewsIngestor/internal/pacing"
)

func TestMemoryRepository_UpsertIsIdempotent(t *testing.T) {
	clock := pacing.NewFakeClock(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))
	repo := storage.NewMemoryRepository(clock)
	ctx := context.Background()

	item := sampleItem()
	item.ImageURL = "https://example.com/img.jpg"

	result, err := repo.UpsertNewsItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertInserted, result)

	clock.Advance(time.Hour)
	item.SummaryText = "Revised summary."
	item.ImageURL = ""

	result, err = repo.UpsertNewsItem(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, domain.UpsertUpdated, result)

	items := repo.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Revised summary.", items[0].SummaryText)
	assert.Equal(t, "https://example.com/img.jpg", items[0].ImageURL)
	assert.Equal(t, time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), items[0].CreatedAt)

	known, err := repo.Known(ctx, item.Link)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestMemoryRepository_ItemsCreatedSince(t *testing.T) {
	start := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	clock := pacing.NewFakeClock(start)
	repo := storage.NewMemoryRepository(clock)
	ctx := context.Background()

	first := sampleItem()
	first.Link = "https://example.com/first"
	_, err := repo.UpsertNewsItem(ctx, first)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	second := sampleItem()
	second.Link = "https://example.com/second"
	_, err = repo.UpsertNewsItem(ctx, second)
	require.NoError(t, err)

	items, err := repo.ItemsCreatedSince(ctx, start)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, second.Link, items[0].Link)

	items, err = repo.ItemsCreatedSince(ctx, start.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.Link, items[0].Link)
}

func TestStaticRegistry(t *testing.T) {
	t.Run("defaults name and strategy", func(t *testing.T) {
		reg, err := storage.NewStaticRegistry([]config.SourceConfig{
			{ID: "s1", URL: "https://example.com/rss"},
			{ID: "s2", Name: "Daily", URL: "https://daily.example.org/", Strategy: "Crawl"},
		})
		require.NoError(t, err)

		sources, err := reg.ListActiveSources(context.Background())
		require.NoError(t, err)
		require.Len(t, sources, 2)
		assert.Equal(t, "s1", sources[0].Name)
		assert.Equal(t, domain.StrategyFeed, sources[0].Strategy)
		assert.Equal(t, domain.StrategyCrawl, sources[1].Strategy)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := storage.NewStaticRegistry([]config.SourceConfig{
			{ID: "s1", URL: "https://example.com/rss"},
			{ID: "s1", URL: "https://example.com/other"},
		})
		assert.ErrorIs(t, err, domain.ErrRegistry)
	})

	t.Run("rejects missing url", func(t *testing.T) {
		_, err := storage.NewStaticRegistry([]config.SourceConfig{{ID: "s1"}})
		assert.ErrorIs(t, err, domain.ErrRegistry)
	})
}
