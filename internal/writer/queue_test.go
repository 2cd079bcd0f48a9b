package writer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rickgao/skyblock-data/internal/aggregate"
	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/metrics"
	"github.com/rickgao/skyblock-data/internal/model"
)

func flushEvent(kind aggregate.EventKind) aggregate.FlushEvent {
	return aggregate.FlushEvent{
		Kind:      kind,
		At:        time.Now(),
		Summaries: map[model.ItemKey]model.PriceSummary{{ItemID: "X"}: {Mean: 1, Count: 1}},
	}
}

func TestQueueWriter_AppliesAndDrains(t *testing.T) {
	gw := &fakeGateway{}
	w := NewQueueWriter(DefaultWriterConfig(), gw, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w.HandleFlush(flushEvent(aggregate.LowestBINFlushed))
	w.HandleFlush(flushEvent(aggregate.SalesFlushed))
	if err := w.SaveItemMetadata(context.Background(), []item.Item{{ID: "A"}, {ID: "B"}}); err != nil {
		t.Fatalf("SaveItemMetadata() error = %v", err)
	}
	if err := w.SaveBazaarProducts(context.Background(), time.Now(), []model.BazaarProduct{{ProductID: "W"}}); err != nil {
		t.Fatalf("SaveBazaarProducts() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	s, i, b := gw.counts()
	if s != 2 || i != 2 || b != 1 {
		t.Errorf("gateway writes = %d/%d/%d, want 2/2/1", s, i, b)
	}
	if gw.summaries[0] != model.SummaryLowestBIN || gw.summaries[1] != model.SummarySale {
		t.Errorf("summary order = %v", gw.summaries)
	}

	stats := w.Stats()
	if stats.Summaries != 2 || stats.Items != 1 || stats.Bazaar != 1 || stats.Errors != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestQueueWriter_Failures(t *testing.T) {
	gw := &fakeGateway{fail: errors.New("disk full")}
	m := metrics.New()
	w := NewQueueWriter(DefaultWriterConfig(), gw, m, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w.HandleFlush(flushEvent(aggregate.SalesFlushed))
	_ = w.SaveItemMetadata(context.Background(), []item.Item{{ID: "A"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := w.Stats().Errors; got != 2 {
		t.Errorf("Errors = %d, want 2", got)
	}
	if got := m.Snapshot().WriteFailures; got != 2 {
		t.Errorf("WriteFailures = %d, want 2", got)
	}
}

func TestQueueWriter_QueueFull(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{})}
	w := NewQueueWriter(WriterConfig{QueueSize: 1, MaxQueue: 1}, gw, nil, nil)

	// Not started: the single slot fills and later jobs are rejected.
	w.HandleFlush(flushEvent(aggregate.LowestBINFlushed))
	if err := w.SaveItemMetadata(context.Background(), []item.Item{{ID: "A"}}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("SaveItemMetadata() error = %v, want ErrQueueFull", err)
	}
	if err := w.SaveBazaarProducts(context.Background(), time.Now(), nil); !errors.Is(err, ErrQueueFull) {
		t.Errorf("SaveBazaarProducts() error = %v, want ErrQueueFull", err)
	}
	w.HandleFlush(flushEvent(aggregate.SalesFlushed))

	if got := w.Stats().Dropped; got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}
	if got := w.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}
}

func TestQueueWriter_StopTimeout(t *testing.T) {
	gw := &fakeGateway{block: make(chan struct{})}
	w := NewQueueWriter(DefaultWriterConfig(), gw, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	w.HandleFlush(flushEvent(aggregate.LowestBINFlushed))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := w.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want DeadlineExceeded", err)
	}
}
