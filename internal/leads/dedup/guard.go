// Package dedup provides best-effort suppression of rapid repeat create
// submissions (double-clicks, client retry storms). It is process-local and
// does not guarantee exclusivity across multiple instances.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultWindow is how long a key suppresses identical submissions.
	DefaultWindow = 5 * time.Second
	// DefaultMaxAge is when the sweeper discards a key outright.
	DefaultMaxAge = 60 * time.Second
	// DefaultSweepInterval is how often the background sweep runs. Sweep
	// timing is best-effort; correctness only needs the window check.
	DefaultSweepInterval = 30 * time.Second
)

// Guard is a mutex-guarded map of recent submission keys.
type Guard struct {
	mu      sync.Mutex
	entries map[string]time.Time

	window        time.Duration
	maxAge        time.Duration
	sweepInterval time.Duration

	now func() time.Time
}

// Option customizes a Guard.
type Option func(*Guard)

// WithWindow overrides the suppression window.
func WithWindow(d time.Duration) Option {
	return func(g *Guard) { g.window = d }
}

// WithMaxAge overrides the sweep cutoff.
func WithMaxAge(d time.Duration) Option {
	return func(g *Guard) { g.maxAge = d }
}

// WithSweepInterval overrides the sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(g *Guard) { g.sweepInterval = d }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// New creates a Guard. Call Run to start the background sweeper.
func New(opts ...Option) *Guard {
	g := &Guard{
		entries:       make(map[string]time.Time),
		window:        DefaultWindow,
		maxAge:        DefaultMaxAge,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Key builds the suppression key from the identifying fields of a create
// request. A nil dateBooked contributes a stable empty component so that
// dateless submissions still collide with each other.
func Key(actorID uuid.UUID, name, phone string, dateBooked *time.Time) string {
	date := ""
	if dateBooked != nil {
		date = fmt.Sprintf("%d", dateBooked.UnixMilli())
	}
	return fmt.Sprintf("%s|%s|%s|%s", actorID, name, phone, date)
}

// Check records the key if it is new (or stale) and reports whether the
// submission should proceed. A false return means an identical submission
// arrived within the window and this one must be suppressed.
func (g *Guard) Check(key string) bool {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if inserted, ok := g.entries[key]; ok && now.Sub(inserted) < g.window {
		return false
	}
	g.entries[key] = now
	return true
}

// Run sweeps expired keys until ctx is cancelled.
func (g *Guard) Run(ctx context.Context) {
	ticker := time.NewTicker(g.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

func (g *Guard) sweep() {
	cutoff := g.now().Add(-g.maxAge)

	g.mu.Lock()
	defer g.mu.Unlock()

	for key, inserted := range g.entries {
		if inserted.Before(cutoff) {
			delete(g.entries, key)
		}
	}
}

// Len returns the number of tracked keys. Used by tests and diagnostics.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
