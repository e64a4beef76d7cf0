// Package discovery resolves a source's discovery strategy and runs it.
package discovery

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// Strategy captures a single discovery implementation (feed, crawl).
type Strategy interface {
	Kind() domain.StrategyKind
	Discover(ctx context.Context, src domain.Source) iter.Seq2[domain.Candidate, error]
}

// Registry keeps a mapping from strategy kinds to their implementations.
type Registry struct {
	strategies map[domain.StrategyKind]Strategy
	logger     *slog.Logger
}

var _ ports.Discoverer = (*Registry)(nil)

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{strategies: map[domain.StrategyKind]Strategy{}, logger: logger}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[domain.StrategyKind]Strategy{}
	}
	r.strategies[strategy.Kind()] = strategy
}

// Resolve returns a strategy by kind or an error if it is absent. An empty
// kind resolves to the feed strategy.
func (r *Registry) Resolve(kind domain.StrategyKind) (Strategy, error) {
	if kind == "" {
		kind = domain.StrategyFeed
	}
	if strategy, ok := r.strategies[kind]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("discovery strategy %s is not registered", kind)
}

// Discover runs the source's strategy. Errors never escape as panics; they
// are yielded once and the sequence ends.
func (r *Registry) Discover(ctx context.Context, src domain.Source) iter.Seq2[domain.Candidate, error] {
	strategy, err := r.Resolve(src.Strategy)
	if err != nil {
		return Fail(fmt.Errorf("source %s: %w", src.ID, err))
	}

	if r.logger != nil {
		r.logger.Debug("discover", "source_id", src.ID, "strategy", strategy.Kind(), "endpoint", src.DiscoveryEndpoint)
	}
	return strategy.Discover(ctx, src)
}

// Fail is a sequence that yields a single discovery error.
func Fail(err error) iter.Seq2[domain.Candidate, error] {
	return func(yield func(domain.Candidate, error) bool) {
		yield(domain.Candidate{}, fmt.Errorf("%w: %w", domain.ErrDiscovery, err))
	}
}

// FromSlice yields candidates in order.
func FromSlice(candidates []domain.Candidate) iter.Seq2[domain.Candidate, error] {
	return func(yield func(domain.Candidate, error) bool) {
		for _, c := range candidates {
			if !yield(c, nil) {
				return
			}
		}
	}
}
