// Package pacing spaces out calls to rate-limited external resources.
package pacing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ClassProvider is the single account-wide generation provider queue.
	ClassProvider = "provider"

	hostClassPrefix = "host:"
)

// HostClass returns the pacing class for page fetches to host.
func HostClass(host string) string {
	return hostClassPrefix + strings.ToLower(strings.TrimPrefix(host, "www."))
}

// Spacing configures the minimum interval between calls per resource class.
type Spacing struct {
	Provider time.Duration
	Host     time.Duration
	// Overrides pins exact classes to a custom interval.
	Overrides map[string]time.Duration
}

// Gate hands out call slots per resource class. Each class owns a
// burst-1 token bucket; reservations are taken under the limiter's own
// lock so two callers never receive the same slot.
type Gate struct {
	clock    Clock
	spacing  Spacing
	logger   *slog.Logger
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGate builds a gate; a nil clock means the wall clock.
func NewGate(spacing Spacing, clock Clock, logger *slog.Logger) *Gate {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Gate{
		clock:    clock,
		spacing:  spacing,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Await blocks until the next call to class is permitted. Unrelated classes
// do not wait on each other.
func (g *Gate) Await(ctx context.Context, class string) error {
	if g == nil {
		return nil
	}

	limiter := g.limiter(class)
	now := g.clock.Now()

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return fmt.Errorf("pacing %s: reservation refused", class)
	}

	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	g.debug("awaiting slot", "class", class, "delay", delay)
	if err := g.clock.Sleep(ctx, delay); err != nil {
		reservation.CancelAt(g.clock.Now())
		return fmt.Errorf("pacing %s: %w", class, err)
	}
	return nil
}

// Interval reports the spacing applied to class.
func (g *Gate) Interval(class string) time.Duration {
	if d, ok := g.spacing.Overrides[class]; ok {
		return d
	}
	if class == ClassProvider {
		return g.spacing.Provider
	}
	return g.spacing.Host
}

func (g *Gate) limiter(class string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	if lim, ok := g.limiters[class]; ok {
		return lim
	}

	limit := rate.Inf
	if interval := g.Interval(class); interval > 0 {
		limit = rate.Every(interval)
	}
	lim := rate.NewLimiter(limit, 1)
	g.limiters[class] = lim
	return lim
}

func (g *Gate) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
