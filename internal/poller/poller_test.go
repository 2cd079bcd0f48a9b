package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/skyblock-data/internal/metrics"
	"github.com/rickgao/skyblock-data/internal/model"
)

func TestPoller_PollActiveDedup(t *testing.T) {
	feed := newFakeFeed(3, 1000)
	clock := newFakeClock(time.UnixMilli(1000).Add(40 * time.Second))
	m := metrics.New()

	var handled atomic.Int32
	handlers := Handlers{
		Active: ActiveHandlerFunc(func(_ context.Context, s *model.RawSnapshot) error {
			handled.Add(1)
			if len(s.Auctions) != 3 {
				t.Errorf("len(Auctions) = %d, want 3", len(s.Auctions))
			}
			return nil
		}),
	}

	cfg := DefaultConfig()
	cfg.Acquire = testAcquireConfig()
	p := New(cfg, feed, handlers, nil, WithClock(clock), WithMetrics(m))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.ctx = ctx

	last, err := p.pollActive(time.Time{})
	if err != nil {
		t.Fatalf("pollActive failed: %v", err)
	}
	if _, err := p.pollActive(last); err != nil {
		t.Fatalf("second pollActive failed: %v", err)
	}

	if got := handled.Load(); got != 1 {
		t.Errorf("handled = %d, want 1", got)
	}
	s := m.Snapshot()
	if s.SnapshotsAccepted != 1 || s.SnapshotsSkipped != 1 {
		t.Errorf("accepted/skipped = %d/%d, want 1/1", s.SnapshotsAccepted, s.SnapshotsSkipped)
	}
}

func TestPoller_PollEndedAndBazaar(t *testing.T) {
	feed := newFakeFeed(1, 1000)
	feed.endedStamp = 5000
	feed.bazaarStamp = 7000

	var ended, bazaar atomic.Int32
	handlers := Handlers{
		Ended: EndedHandlerFunc(func(_ context.Context, s *model.RawSnapshot) error {
			ended.Add(1)
			if s.TotalPages != 1 || len(s.Auctions) != 1 {
				t.Errorf("ended snapshot = %+v", s)
			}
			return nil
		}),
		Bazaar: BazaarHandlerFunc(func(_ context.Context, s model.BazaarSnapshot) error {
			bazaar.Add(1)
			if len(s.Products) != 1 || s.Products[0].BuyPrice != 12.5 {
				t.Errorf("bazaar products = %+v", s.Products)
			}
			return nil
		}),
	}

	p := New(DefaultConfig(), feed, handlers, nil)
	p.ctx = context.Background()

	var last time.Time
	for range 3 {
		var err error
		if last, err = p.pollEnded(last); err != nil {
			t.Fatalf("pollEnded failed: %v", err)
		}
	}
	feed.set(func(f *fakeFeed) { f.endedStamp = 6000 })
	if _, err := p.pollEnded(last); err != nil {
		t.Fatalf("pollEnded failed: %v", err)
	}
	if got := ended.Load(); got != 2 {
		t.Errorf("ended handled = %d, want 2", got)
	}

	last = time.Time{}
	for range 2 {
		var err error
		if last, err = p.pollBazaar(last); err != nil {
			t.Fatalf("pollBazaar failed: %v", err)
		}
	}
	if got := bazaar.Load(); got != 1 {
		t.Errorf("bazaar handled = %d, want 1", got)
	}
}

func TestPoller_StartStop(t *testing.T) {
	feed := newFakeFeed(2, time.Now().UnixMilli())
	feed.endedStamp = 1

	active := make(chan struct{}, 1)
	ended := make(chan struct{}, 1)
	handlers := Handlers{
		Active: ActiveHandlerFunc(func(context.Context, *model.RawSnapshot) error {
			select {
			case active <- struct{}{}:
			default:
			}
			return nil
		}),
		Ended: EndedHandlerFunc(func(context.Context, *model.RawSnapshot) error {
			select {
			case ended <- struct{}{}:
			default:
			}
			return nil
		}),
	}

	cfg := Config{
		Acquire: AcquireConfig{
			MaxDelay:        time.Hour,
			UpdateCycle:     time.Minute,
			RetryBackoff:    10 * time.Millisecond,
			PageConcurrency: 2,
		},
		ActiveCooldown: 10 * time.Millisecond,
		EndedCooldown:  10 * time.Millisecond,
	}
	p := New(cfg, feed, handlers, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for name, ch := range map[string]chan struct{}{"active": active, "ended": ended} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Errorf("%s handler was never called", name)
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
