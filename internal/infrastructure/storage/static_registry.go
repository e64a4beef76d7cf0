package storage

import (
	"context"
	"fmt"
	"strings"

	"NewsIngestor/internal/config"
	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// StaticRegistry serves sources declared in configuration.
type StaticRegistry struct {
	sources []domain.Source
}

var _ ports.SourceRegistry = (*StaticRegistry)(nil)

// NewStaticRegistry converts config-defined sources; IDs must be unique and
// endpoints present.
func NewStaticRegistry(cfg []config.SourceConfig) (*StaticRegistry, error) {
	seen := make(map[string]struct{}, len(cfg))
	sources := make([]domain.Source, 0, len(cfg))

	for i, sc := range cfg {
		id := strings.TrimSpace(sc.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: source #%d has no id", domain.ErrRegistry, i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate source id %s", domain.ErrRegistry, id)
		}
		if strings.TrimSpace(sc.URL) == "" {
			return nil, fmt.Errorf("%w: source %s has no url", domain.ErrRegistry, id)
		}
		seen[id] = struct{}{}

		name := sc.Name
		if name == "" {
			name = id
		}
		strategy := domain.StrategyKind(strings.ToLower(sc.Strategy))
		if strategy == "" {
			strategy = domain.StrategyFeed
		}

		sources = append(sources, domain.Source{
			ID:                id,
			Name:              name,
			DiscoveryEndpoint: sc.URL,
			Category:          sc.Category,
			Strategy:          strategy,
		})
	}

	return &StaticRegistry{sources: sources}, nil
}

// ListActiveSources returns a copy of the configured sources.
func (r *StaticRegistry) ListActiveSources(context.Context) ([]domain.Source, error) {
	return append([]domain.Source(nil), r.sources...), nil
}
