package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"module-monitor/core/kvstore"
)

// Config holds the per-site submission limit.
type Config struct {
	// Limit is the number of submissions allowed per window.
	Limit int `mapstructure:"limit" default:"4"`
	// Window is the fixed window length.
	Window time.Duration `mapstructure:"window" default:"1h"`
}

// Decision is the outcome of a Check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns whole seconds until the window resets, at least 1.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter enforces a fixed-window limit per site. Counters live in the shared
// store so the limit holds across every instance.
type Limiter struct {
	store  kvstore.Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter.
func New(store kvstore.Store, cfg Config, opts ...Option) *Limiter {
	l := &Limiter{store: store, limit: cfg.Limit, window: cfg.Window, now: time.Now}
	if l.window <= 0 {
		l.window = time.Hour
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the limiter's current time.
func (l *Limiter) Now() time.Time {
	return l.now().UTC()
}

// Check counts one attempt for siteID and reports whether it is allowed.
// Rejected attempts count too, so hammering does not open the window early.
func (l *Limiter) Check(ctx context.Context, siteID uint) (Decision, error) {
	start := l.Now().Truncate(l.window)
	key := fmt.Sprintf("ratelimit:site:%d:%d", siteID, start.Unix())

	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   int(count) <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   start.Add(l.window),
	}, nil
}
