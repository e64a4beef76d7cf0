package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/infrastructure/llm"
	"NewsIngestor/internal/pacing"
	"NewsIngestor/internal/ports"
)

// Instruction is sent ahead of every article excerpt.
const Instruction = "Summarize the following news article in exactly 3 to 5 lines. " +
	"Focus only on the core facts. No fluff. No 'According to the article' phrases."

const (
	defaultMaxInputWords = 2000
	defaultMaxAttempts   = 3
	defaultBaseDelay     = 60 * time.Second
)

// GenerativeOptions bound prompts and retries.
type GenerativeOptions struct {
	System        string
	MaxInputWords int
	MaxAttempts   int
	BaseDelay     time.Duration
	Params        llm.Params
	MaxWords      int
}

// Generative summarizes through an external provider, retrying only on quota exhaustion.
type Generative struct {
	provider llm.Provider
	pacer    ports.Pacer
	clock    pacing.Clock
	opts     GenerativeOptions
	observer AttemptObserver
	logger   *slog.Logger
}

var _ ports.Summarizer = (*Generative)(nil)

// NewGenerative wires the backend. A nil clock uses the system clock; a nil pacer never waits.
func NewGenerative(provider llm.Provider, pacer ports.Pacer, clock pacing.Clock, opts GenerativeOptions, observer AttemptObserver, logger *slog.Logger) *Generative {
	if clock == nil {
		clock = pacing.SystemClock{}
	}
	if opts.MaxInputWords <= 0 {
		opts.MaxInputWords = defaultMaxInputWords
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay < 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultMaxWords
	}
	return &Generative{
		provider: provider,
		pacer:    pacer,
		clock:    clock,
		opts:     opts,
		observer: observer,
		logger:   logger,
	}
}

// Summarize waits for the provider slot before each attempt. Quota errors are
// retried with base*attempt backoff up to MaxAttempts calls; anything else
// fails immediately.
func (g *Generative) Summarize(ctx context.Context, text string) (domain.Summary, error) {
	excerpt := Excerpt(text, g.opts.MaxInputWords)
	if excerpt == "" {
		return "", fmt.Errorf("%w: empty input", domain.ErrSummarization)
	}

	req := llm.Request{
		System: g.opts.System,
		Prompt: BuildPrompt(excerpt),
		Params: g.opts.Params,
	}

	var lastErr error
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		if g.pacer != nil {
			if err := g.pacer.Await(ctx, pacing.ClassProvider); err != nil {
				return "", fmt.Errorf("%w: await provider slot: %w", domain.ErrSummarization, err)
			}
		}

		out, err := g.provider.Generate(ctx, req)
		if err == nil {
			g.observe("ok")
			return Finalize(out, g.opts.MaxWords)
		}

		lastErr = err
		if !errors.Is(err, domain.ErrQuotaExhausted) {
			g.observe("error")
			return "", fmt.Errorf("%w: %w", domain.ErrSummarization, err)
		}
		g.observe("quota")

		if attempt == g.opts.MaxAttempts {
			break
		}

		wait := g.opts.BaseDelay * time.Duration(attempt)
		g.warn("provider quota exhausted, backing off", "provider", g.provider.Name(), "attempt", attempt, "wait", wait)
		if err := g.clock.Sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("%w: backoff interrupted: %w", domain.ErrSummarization, err)
		}
	}

	return "", fmt.Errorf("%w: gave up after %d attempts: %w", domain.ErrSummarization, g.opts.MaxAttempts, lastErr)
}

// BuildPrompt prefixes the excerpt with the fixed instruction.
func BuildPrompt(excerpt string) string {
	return Instruction + "\n\nArticle Text: " + excerpt
}

// Excerpt keeps the first maxWords whitespace-separated words.
func Excerpt(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}

func (g *Generative) observe(result string) {
	if g.observer != nil {
		g.observer.SummarizeAttempt(result)
	}
}

func (g *Generative) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}
