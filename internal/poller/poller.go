package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/skyblock-data/internal/api"
	"github.com/rickgao/skyblock-data/internal/metrics"
	"github.com/rickgao/skyblock-data/internal/model"
)

// Feed provides every endpoint the poller loops read.
type Feed interface {
	PageSource
	GetEndedAuctions(ctx context.Context) (*api.EndedAuctions, error)
	GetBazaar(ctx context.Context) (*api.BazaarResponse, error)
}

// ActiveHandler receives accepted active auction snapshots.
type ActiveHandler interface {
	HandleActive(ctx context.Context, snap *model.RawSnapshot) error
}

// ActiveHandlerFunc is a function adapter for ActiveHandler.
type ActiveHandlerFunc func(context.Context, *model.RawSnapshot) error

func (f ActiveHandlerFunc) HandleActive(ctx context.Context, s *model.RawSnapshot) error {
	return f(ctx, s)
}

// EndedHandler receives new ended auction reads.
type EndedHandler interface {
	HandleEnded(ctx context.Context, snap *model.RawSnapshot) error
}

// EndedHandlerFunc is a function adapter for EndedHandler.
type EndedHandlerFunc func(context.Context, *model.RawSnapshot) error

func (f EndedHandlerFunc) HandleEnded(ctx context.Context, s *model.RawSnapshot) error {
	return f(ctx, s)
}

// BazaarHandler receives new bazaar reads.
type BazaarHandler interface {
	HandleBazaar(ctx context.Context, snap model.BazaarSnapshot) error
}

// BazaarHandlerFunc is a function adapter for BazaarHandler.
type BazaarHandlerFunc func(context.Context, model.BazaarSnapshot) error

func (f BazaarHandlerFunc) HandleBazaar(ctx context.Context, s model.BazaarSnapshot) error {
	return f(ctx, s)
}

// Handlers groups the loop handlers. A nil handler disables its loop.
type Handlers struct {
	Active ActiveHandler
	Ended  EndedHandler
	Bazaar BazaarHandler
}

// Config holds poller configuration.
type Config struct {
	Acquire        AcquireConfig
	ActiveCooldown time.Duration // Pause after each active snapshot (default: 10s)
	EndedCooldown  time.Duration // Pause between ended reads (default: 30s)
	BazaarCooldown time.Duration // Pause between bazaar reads (default: 60s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Acquire:        DefaultAcquireConfig(),
		ActiveCooldown: 10 * time.Second,
		EndedCooldown:  30 * time.Second,
		BazaarCooldown: time.Minute,
	}
}

// Poller drives the feed loops.
type Poller struct {
	cfg      Config
	feed     Feed
	acquirer *Acquirer
	handlers Handlers
	clock    Clock
	metrics  *metrics.Metrics
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, feed Feed, handlers Handlers, logger *slog.Logger, opts ...AcquirerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	acq := NewAcquirer(cfg.Acquire, feed, logger, opts...)
	return &Poller{
		cfg:      cfg,
		feed:     feed,
		acquirer: acq,
		handlers: handlers,
		clock:    acq.clock,
		metrics:  acq.metrics,
		logger:   logger,
	}
}

// Start begins the polling loops.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	if p.handlers.Active != nil {
		p.wg.Add(1)
		go p.runActive()
	}
	if p.handlers.Ended != nil {
		p.wg.Add(1)
		go p.runEnded()
	}
	if p.handlers.Bazaar != nil {
		p.wg.Add(1)
		go p.runBazaar()
	}

	p.logger.Info("feed poller started",
		"active", p.handlers.Active != nil,
		"ended", p.handlers.Ended != nil,
		"bazaar", p.handlers.Bazaar != nil,
		"page_concurrency", p.cfg.Acquire.PageConcurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("feed poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runActive acquires snapshots in order. The next attempt starts only
// after the handler has returned.
func (p *Poller) runActive() {
	defer p.wg.Done()

	var last time.Time
	for p.ctx.Err() == nil {
		var err error
		last, err = p.pollActive(last)
		if err != nil && p.ctx.Err() == nil {
			p.logger.Error("active snapshot failed", "err", err)
		}
		if p.clock.Sleep(p.ctx, p.cfg.ActiveCooldown) != nil {
			return
		}
	}
}

// pollActive runs one acquisition and returns the new last accepted
// timestamp.
func (p *Poller) pollActive(last time.Time) (time.Time, error) {
	snap, err := p.acquirer.Acquire(p.ctx, last)
	if errors.Is(err, ErrNoNewSnapshot) {
		p.recordSkip()
		p.logger.Debug("active auctions unchanged", "last_updated", last.UnixMilli())
		return last, nil
	}
	if err != nil {
		return last, err
	}
	// The snapshot is accepted even if handling fails so it is not refetched.
	return snap.LastUpdated, p.handlers.Active.HandleActive(p.ctx, snap)
}

func (p *Poller) runEnded() {
	defer p.wg.Done()

	var last time.Time
	for p.ctx.Err() == nil {
		var err error
		last, err = p.pollEnded(last)
		if err != nil && p.ctx.Err() == nil {
			p.logger.Warn("ended auctions poll failed", "err", err)
		}
		if p.clock.Sleep(p.ctx, p.cfg.EndedCooldown) != nil {
			return
		}
	}
}

func (p *Poller) pollEnded(last time.Time) (time.Time, error) {
	resp, err := p.feed.GetEndedAuctions(p.ctx)
	if err != nil {
		return last, err
	}
	at := api.MillisToTime(resp.LastUpdated)
	if at.Equal(last) {
		p.recordSkip()
		return last, nil
	}

	snap := &model.RawSnapshot{
		LastUpdated:   at,
		TotalPages:    1,
		TotalAuctions: len(resp.Auctions),
		Auctions:      resp.Auctions,
	}
	return at, p.handlers.Ended.HandleEnded(p.ctx, snap)
}

func (p *Poller) runBazaar() {
	defer p.wg.Done()

	var last time.Time
	for p.ctx.Err() == nil {
		var err error
		last, err = p.pollBazaar(last)
		if err != nil && p.ctx.Err() == nil {
			p.logger.Warn("bazaar poll failed", "err", err)
		}
		if p.clock.Sleep(p.ctx, p.cfg.BazaarCooldown) != nil {
			return
		}
	}
}

func (p *Poller) pollBazaar(last time.Time) (time.Time, error) {
	resp, err := p.feed.GetBazaar(p.ctx)
	if err != nil {
		return last, err
	}
	snap := api.ToBazaarSnapshot(resp)
	if snap.LastUpdated.Equal(last) {
		p.recordSkip()
		return last, nil
	}
	return snap.LastUpdated, p.handlers.Bazaar.HandleBazaar(p.ctx, snap)
}

func (p *Poller) recordSkip() {
	if p.metrics != nil {
		p.metrics.RecordSkip()
	}
}
