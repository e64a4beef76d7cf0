package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/pacing"
	"NewsIngestor/internal/ports"
)

// MemoryRepository is an in-process sink and registry for dry runs and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	items   map[string]domain.NewsItem
	sources []domain.Source
	clock   pacing.Clock
}

var (
	_ ports.NewsSink       = (*MemoryRepository)(nil)
	_ ports.DuplicateGate  = (*MemoryRepository)(nil)
	_ ports.SourceRegistry = (*MemoryRepository)(nil)
	_ ports.SnapshotReader = (*MemoryRepository)(nil)
)

// NewMemoryRepository builds an empty repository serving the given sources.
func NewMemoryRepository(clock pacing.Clock, sources ...domain.Source) *MemoryRepository {
	if clock == nil {
		clock = pacing.SystemClock{}
	}
	return &MemoryRepository{
		items:   make(map[string]domain.NewsItem),
		sources: append([]domain.Source(nil), sources...),
		clock:   clock,
	}
}

// UpsertNewsItem stores item under its link; the original created_at survives overwrites.
func (m *MemoryRepository) UpsertNewsItem(_ context.Context, item domain.NewsItem) (domain.UpsertResult, error) {
	item = item.Normalized()

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[item.Link]
	if ok {
		item.CreatedAt = existing.CreatedAt
		if item.ImageURL == "" {
			item.ImageURL = existing.ImageURL
		}
		m.items[item.Link] = item
		return domain.UpsertUpdated, nil
	}

	item.CreatedAt = m.clock.Now().UTC()
	m.items[item.Link] = item
	return domain.UpsertInserted, nil
}

// Known reports whether link is stored.
func (m *MemoryRepository) Known(_ context.Context, link string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.items[link]
	return ok, nil
}

// ListActiveSources returns the configured sources.
func (m *MemoryRepository) ListActiveSources(context.Context) ([]domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Source(nil), m.sources...), nil
}

// ItemsCreatedSince returns items created after since, oldest first.
func (m *MemoryRepository) ItemsCreatedSince(_ context.Context, since time.Time) ([]domain.NewsItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.NewsItem
	for _, item := range m.items {
		if item.CreatedAt.After(since) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Link < out[j].Link
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Items returns every stored item ordered by link.
func (m *MemoryRepository) Items() []domain.NewsItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.NewsItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Link < out[j].Link })
	return out
}
