// Package extract isolates readable article text and a representative image
// from a page, trying strategies in a fixed order.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/infrastructure/fetch"
	"NewsIngestor/internal/ports"
)

// Kind selects an extraction strategy.
type Kind string

const (
	KindReadability Kind = "readability"
	KindParagraphs  Kind = "paragraphs"
)

// DefaultMinTextLength is the shortest text accepted as an article body.
const DefaultMinTextLength = 100

// ErrTooShort marks a tier whose text fell below the minimum length.
var ErrTooShort = errors.New("extracted text below minimum length")

// Fetcher downloads article pages.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (fetch.Page, error)
	GetAs(ctx context.Context, rawURL, userAgent string) (fetch.Page, error)
}

// Strategy is a single extraction tier.
type Strategy interface {
	Kind() Kind
	Extract(ctx context.Context, url string) (domain.ExtractedContent, error)
}

// Chain tries strategies in order and returns the first valid result.
type Chain struct {
	strategies []Strategy
	minLength  int
	logger     *slog.Logger
}

var _ ports.Extractor = (*Chain)(nil)

// NewChain composes strategies; minLength <= 0 uses DefaultMinTextLength.
func NewChain(strategies []Strategy, minLength int, logger *slog.Logger) *Chain {
	if minLength <= 0 {
		minLength = DefaultMinTextLength
	}
	return &Chain{strategies: strategies, minLength: minLength, logger: logger}
}

// Build resolves configured strategy names into a chain.
func Build(kinds []string, fetcher Fetcher, browserUserAgent string, minLength int, logger *slog.Logger) (*Chain, error) {
	if len(kinds) == 0 {
		kinds = []string{string(KindReadability), string(KindParagraphs)}
	}

	strategies := make([]Strategy, 0, len(kinds))
	for _, name := range kinds {
		switch Kind(strings.ToLower(strings.TrimSpace(name))) {
		case KindReadability:
			strategies = append(strategies, NewReadability(fetcher))
		case KindParagraphs:
			strategies = append(strategies, NewParagraphs(fetcher, browserUserAgent))
		default:
			return nil, fmt.Errorf("unknown extraction strategy %q", name)
		}
	}
	return NewChain(strategies, minLength, logger), nil
}

// Extract runs each tier until one yields valid content. A tier counts as
// failed on any error or when its text is shorter than the minimum length.
func (c *Chain) Extract(ctx context.Context, url string) (domain.ExtractedContent, error) {
	if len(c.strategies) == 0 {
		return domain.ExtractedContent{}, fmt.Errorf("%w: no strategies configured", domain.ErrExtractionFailed)
	}

	causes := make([]error, 0, len(c.strategies))
	for _, strategy := range c.strategies {
		if err := ctx.Err(); err != nil {
			causes = append(causes, err)
			break
		}

		content, err := strategy.Extract(ctx, url)
		if err == nil && !content.Valid(c.minLength) {
			err = fmt.Errorf("%w (%d < %d)", ErrTooShort, len([]rune(strings.TrimSpace(content.Text))), c.minLength)
		}
		if err != nil {
			c.debug("extraction tier failed", "strategy", strategy.Kind(), "url", url, "error", err)
			causes = append(causes, fmt.Errorf("%s: %w", strategy.Kind(), err))
			continue
		}

		content.Text = strings.TrimSpace(content.Text)
		content.Strategy = string(strategy.Kind())
		return content, nil
	}

	return domain.ExtractedContent{}, fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailed, url, errors.Join(causes...))
}

func (c *Chain) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
