package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/skyblock-data/internal/api"
	"github.com/rickgao/skyblock-data/internal/metrics"
	"github.com/rickgao/skyblock-data/internal/model"
)

// ErrNoNewSnapshot is returned when the feed has not moved past the last
// accepted snapshot.
var ErrNoNewSnapshot = errors.New("no new snapshot")

// SnapshotDriftError reports a page whose timestamp differs from the one
// probed for the attempt.
type SnapshotDriftError struct {
	Page     int
	Expected time.Time
	Got      time.Time
}

func (e *SnapshotDriftError) Error() string {
	return fmt.Sprintf("page %d drifted: expected lastUpdated %d, got %d",
		e.Page, e.Expected.UnixMilli(), e.Got.UnixMilli())
}

// Retryable reports that the attempt may be restarted.
func (e *SnapshotDriftError) Retryable() bool { return true }

// IsRetryable reports whether err aborts an attempt without ending
// acquisition.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}

// PageSource fetches pages of active auctions.
type PageSource interface {
	GetAuctionsPage(ctx context.Context, page int) (*api.AuctionsPage, error)
}

// Clock abstracts time for the acquisition state machine.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
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

// AcquireConfig holds acquisition timing.
type AcquireConfig struct {
	MinDelay        time.Duration // Window opens this long after a feed update
	MaxDelay        time.Duration // Window closes this long after a feed update
	UpdateCycle     time.Duration // Feed update cadence
	RetryBackoff    time.Duration // Wait before restarting an aborted attempt
	PageConcurrency int           // Max concurrent page requests
}

// DefaultAcquireConfig returns the feed's usual timing.
func DefaultAcquireConfig() AcquireConfig {
	return AcquireConfig{
		MinDelay:        30 * time.Second,
		MaxDelay:        50 * time.Second,
		UpdateCycle:     time.Minute,
		RetryBackoff:    30 * time.Second,
		PageConcurrency: 16,
	}
}

// AcquirerOption configures an Acquirer.
type AcquirerOption func(*Acquirer)

// WithClock overrides the time source and sleeper.
func WithClock(c Clock) AcquirerOption {
	return func(a *Acquirer) {
		a.clock = c
	}
}

// WithMetrics records retries and accepted snapshots.
func WithMetrics(m *metrics.Metrics) AcquirerOption {
	return func(a *Acquirer) {
		a.metrics = m
	}
}

// Acquirer reads time-consistent snapshots of the paginated auction feed.
type Acquirer struct {
	cfg     AcquireConfig
	source  PageSource
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAcquirer creates an Acquirer.
func NewAcquirer(cfg AcquireConfig, source PageSource, logger *slog.Logger, opts ...AcquirerOption) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageConcurrency < 1 {
		cfg.PageConcurrency = 1
	}
	a := &Acquirer{
		cfg:    cfg,
		source: source,
		clock:  realClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire returns the next snapshot newer than last. Retryable failures
// restart the attempt after RetryBackoff with no cap; only context
// cancellation or a non-retryable error is returned.
func (a *Acquirer) Acquire(ctx context.Context, last time.Time) (*model.RawSnapshot, error) {
	for attempt := 1; ; attempt++ {
		snap, err := a.attempt(ctx, last)
		if err == nil || errors.Is(err, ErrNoNewSnapshot) || !IsRetryable(err) {
			return snap, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if a.metrics != nil {
			a.metrics.RecordRetry()
		}
		a.logger.Warn("snapshot attempt failed, retrying",
			"attempt", attempt,
			"backoff", a.cfg.RetryBackoff,
			"err", err,
		)
		if err := a.clock.Sleep(ctx, a.cfg.RetryBackoff); err != nil {
			return nil, err
		}
	}
}

// attempt runs probe, align, fetch and verify once.
func (a *Acquirer) attempt(ctx context.Context, last time.Time) (*model.RawSnapshot, error) {
	probe, expected, err := a.align(ctx, last)
	if err != nil {
		return nil, err
	}

	a.logger.Info("fetching auction pages",
		"pages", probe.TotalPages,
		"last_updated", expected.UnixMilli(),
	)

	pages, err := a.fetchAll(ctx, probe.TotalPages, expected)
	if err != nil {
		return nil, err
	}

	var n int
	for _, p := range pages {
		n += len(p.Auctions)
	}
	auctions := make([]json.RawMessage, 0, n)
	for _, p := range pages {
		auctions = append(auctions, p.Auctions...)
	}

	if a.metrics != nil {
		a.metrics.RecordSnapshot(expected, len(pages))
	}
	a.logger.Info("snapshot acquired",
		"auctions", len(auctions),
		"last_updated", expected.UnixMilli(),
	)

	return &model.RawSnapshot{
		LastUpdated:   expected,
		TotalPages:    probe.TotalPages,
		TotalAuctions: probe.TotalAuctions,
		Auctions:      auctions,
	}, nil
}

// align probes until the current time falls inside a fetch window and
// returns the probe that established the expected timestamp.
func (a *Acquirer) align(ctx context.Context, last time.Time) (*api.AuctionsPage, time.Time, error) {
	for {
		probe, err := a.source.GetAuctionsPage(ctx, 0)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("probe: %w", err)
		}
		expected := api.MillisToTime(probe.LastUpdated)
		if expected.Equal(last) {
			return nil, time.Time{}, ErrNoNewSnapshot
		}

		now := a.clock.Now()
		open := expected.Add(a.cfg.MinDelay)
		closes := expected.Add(a.cfg.MaxDelay)

		switch {
		case now.Before(open):
			wait := open.Sub(now)
			a.logger.Debug("waiting for fetch window", "wait", wait)
			if err := a.clock.Sleep(ctx, wait); err != nil {
				return nil, time.Time{}, err
			}
			return probe, expected, nil
		case now.After(closes):
			next := a.nextWindow(expected, now)
			a.logger.Info("missed fetch window, waiting for next update",
				"last_updated", expected.UnixMilli(),
				"wait", next.Sub(now),
			)
			if err := a.clock.Sleep(ctx, next.Sub(now)); err != nil {
				return nil, time.Time{}, err
			}
		default:
			return probe, expected, nil
		}
	}
}

// nextWindow advances the feed timestamp by whole update cycles and returns
// the first window opening after now.
func (a *Acquirer) nextWindow(expected, now time.Time) time.Time {
	cycle := a.cfg.UpdateCycle
	if cycle <= 0 {
		cycle = time.Minute
	}
	open := expected.Add(a.cfg.MinDelay)
	if elapsed := now.Sub(open); elapsed >= 0 {
		open = open.Add((elapsed/cycle + 1) * cycle)
	}
	return open
}

// fetchAll fetches every page concurrently. The first failure cancels the
// remaining requests.
func (a *Acquirer) fetchAll(ctx context.Context, total int, expected time.Time) ([]*api.AuctionsPage, error) {
	pages := make([]*api.AuctionsPage, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.PageConcurrency)

	for i := range total {
		g.Go(func() error {
			page, err := a.source.GetAuctionsPage(gctx, i)
			if err != nil {
				return err
			}
			got := api.MillisToTime(page.LastUpdated)
			if !got.Equal(expected) {
				return &SnapshotDriftError{Page: i, Expected: expected, Got: got}
			}
			pages[i] = page
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return pages, nil
}
