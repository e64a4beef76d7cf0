// Package summarize turns article text into a bounded factual summary using
// either a generative provider or deterministic sentence ranking.
package summarize

import (
	"fmt"
	"log/slog"
	"strings"

	"NewsIngestor/internal/infrastructure/llm"
	"NewsIngestor/internal/pacing"
	"NewsIngestor/internal/ports"
)

// Kind selects the summarization backend.
type Kind string

const (
	KindGenerative Kind = "generative"
	KindExtractive Kind = "extractive"
)

// DefaultMaxWords is the word ceiling applied to every summary.
const DefaultMaxWords = 75

// AttemptObserver is told about every provider call and its result
// ("ok", "quota", "error").
type AttemptObserver interface {
	SummarizeAttempt(result string)
}

// Options configure New.
type Options struct {
	Kind       Kind
	MaxWords   int
	Generative GenerativeOptions
	Extractive ExtractiveOptions
}

// Deps are the collaborators of the generative backend.
type Deps struct {
	Provider llm.Provider
	Pacer    ports.Pacer
	Clock    pacing.Clock
	Observer AttemptObserver
	Logger   *slog.Logger
}

// New builds the configured backend. Both satisfy ports.Summarizer.
func New(opts Options, deps Deps) (ports.Summarizer, error) {
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultMaxWords
	}

	switch Kind(strings.ToLower(string(opts.Kind))) {
	case KindGenerative:
		if deps.Provider == nil {
			return nil, fmt.Errorf("generative summarizer requires a provider")
		}
		gen := opts.Generative
		gen.MaxWords = opts.MaxWords
		return NewGenerative(deps.Provider, deps.Pacer, deps.Clock, gen, deps.Observer, deps.Logger), nil
	case KindExtractive, "":
		ext := opts.Extractive
		ext.MaxWords = opts.MaxWords
		return NewExtractive(ext), nil
	default:
		return nil, fmt.Errorf("unknown summarizer strategy %q", opts.Kind)
	}
}
