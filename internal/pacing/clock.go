package pacing

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time so pacing and retry backoff can be tested without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

var _ Clock = SystemClock{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FakeClock is a manually driven Clock. Sleep records the requested duration
// and, when AutoAdvance is set, moves the clock forward by it.
type FakeClock struct {
	mu          sync.Mutex
	now         time.Time
	sleeps      []time.Duration
	autoAdvance bool
}

var _ Clock = (*FakeClock)(nil)

// NewFakeClock starts a clock at the given instant with auto-advance enabled.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start, autoAdvance: true}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep records d and returns immediately.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.autoAdvance && d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SetAutoAdvance toggles whether Sleep moves the clock.
func (c *FakeClock) SetAutoAdvance(on bool) {
	c.mu.Lock()
	c.autoAdvance = on
	c.mu.Unlock()
}

// Sleeps returns a copy of the recorded sleep durations.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
