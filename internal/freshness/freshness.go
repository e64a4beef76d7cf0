// Package freshness decides whether a candidate is recent enough to process.
package freshness

import (
	"time"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/pacing"
)

// IsFresh reports whether publishedAt lies strictly after now-window.
func IsFresh(publishedAt, now time.Time, window time.Duration) bool {
	return publishedAt.After(now.Add(-window))
}

// Filter applies a fixed window relative to the clock.
type Filter struct {
	Window time.Duration
	Clock  pacing.Clock
}

// NewFilter builds a filter; a nil clock means the wall clock.
func NewFilter(window time.Duration, clock pacing.Clock) Filter {
	if clock == nil {
		clock = pacing.SystemClock{}
	}
	return Filter{Window: window, Clock: clock}
}

// Cutoff is the oldest instant still rejected.
func (f Filter) Cutoff() time.Time {
	return f.Clock.Now().Add(-f.Window)
}

// Admit checks a candidate before any page fetch. Candidates whose
// publication time was defaulted are admitted and re-checked later.
func (f Filter) Admit(c domain.Candidate) bool {
	if !c.PublishedKnown {
		return true
	}
	return IsFresh(c.PublishedAt, f.Clock.Now(), f.Window)
}

// Fresh checks an explicit publication time.
func (f Filter) Fresh(publishedAt time.Time) bool {
	return IsFresh(publishedAt, f.Clock.Now(), f.Window)
}
