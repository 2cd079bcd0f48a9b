// Package ratelimit schedules outbound feed requests so that no trailing
// window carries more than a fixed number of calls.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultWindow is the length of the trailing window.
const DefaultWindow = time.Minute

// ErrInvalidLimit is returned for a non-positive per-window limit.
var ErrInvalidLimit = errors.New("ratelimit: limit must be positive")

// Limiter is a leaky-bucket scheduler over a trailing window. It records the
// time each admitted call is scheduled to run, not the time it was asked.
type Limiter struct {
	mu     sync.Mutex
	calls  []time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithWindow overrides the trailing window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		l.window = d
	}
}

// New creates a limiter admitting limit calls per window.
func New(limit int, opts ...Option) (*Limiter, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	l := &Limiter{
		limit:  limit,
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Schedule reserves a slot and returns how long the caller must wait
// before issuing its request. Reserved slots are never released.
func (l *Limiter) Schedule() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for len(l.calls) > 0 && now.Sub(l.calls[0]) > l.window {
		l.calls = l.calls[1:]
	}

	at := now
	if len(l.calls) >= l.limit {
		at = l.calls[len(l.calls)-l.limit].Add(l.window)
	}
	// Slots are handed out in order even if the clock steps backwards.
	if n := len(l.calls); n > 0 && at.Before(l.calls[n-1]) {
		at = l.calls[n-1]
	}
	l.calls = append(l.calls, at)

	if d := at.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Wait reserves a slot and sleeps until it opens.
func (l *Limiter) Wait(ctx context.Context) error {
	d := l.Schedule()
	if d == 0 {
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

// Len returns the number of retained schedule entries.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// Limit returns the per-window call limit.
func (l *Limiter) Limit() int {
	return l.limit
}
