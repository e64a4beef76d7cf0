// Package llm adapts external text-generation providers to a single
// request/response contract with typed quota errors.
package llm

import (
	"context"
	"errors"
	"fmt"

	"NewsIngestor/internal/domain"
)

// Params are provider-neutral generation settings.
type Params struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Request is one generation call.
type Request struct {
	System string
	Prompt string
	Params Params
}

// Provider generates text for a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindQuotaExhausted ErrorKind = "quota_exhausted"
	KindOther          ErrorKind = "other"
)

// ProviderError is the typed failure every provider returns.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is maps the kind onto the domain sentinels.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case domain.ErrQuotaExhausted:
		return e.Kind == KindQuotaExhausted
	case domain.ErrSummarization:
		return e.Kind != KindQuotaExhausted
	}
	return false
}

// QuotaExhausted builds a quota failure.
func QuotaExhausted(provider string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindQuotaExhausted, Status: status, Err: err}
}

// Failed builds a non-retryable failure.
func Failed(provider string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindOther, Status: status, Err: err}
}

// classifyTransport wraps client-side failures; context errors stay visible to errors.Is.
func classifyTransport(provider string, err error) error {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return err
	}
	return Failed(provider, 0, err)
}
