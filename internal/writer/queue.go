package writer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/skyblock-data/internal/aggregate"
	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/metrics"
	"github.com/rickgao/skyblock-data/internal/model"
	"github.com/rickgao/skyblock-data/internal/router"
)

// ErrQueueFull is returned when the write queue is at capacity.
var ErrQueueFull = errors.New("write queue full")

// WriterConfig holds queue configuration.
type WriterConfig struct {
	QueueSize    int           // Initial queue capacity (default: 64)
	MaxQueue     int           // Max queued jobs, 0 for unbounded (default: 4096)
	WriteTimeout time.Duration // Per-job gateway deadline (default: 30s)
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		QueueSize:    64,
		MaxQueue:     4096,
		WriteTimeout: 30 * time.Second,
	}
}

// WriterMetrics tracks applied and failed jobs.
type WriterMetrics struct {
	Summaries int64
	Items     int64
	Bazaar    int64
	Errors    int64
	Dropped   int64
}

type jobKind int

const (
	jobSummary jobKind = iota
	jobItems
	jobBazaar
)

type job struct {
	kind     jobKind
	flush    aggregate.FlushEvent
	items    []item.Item
	at       time.Time
	products []model.BazaarProduct
}

// QueueWriter applies writes to a gateway on its own goroutine so flush
// subscribers and snapshot handlers never wait on storage.
type QueueWriter struct {
	cfg     WriterConfig
	gw      Gateway
	input   *router.GrowableBuffer[job]
	logger  *slog.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats WriterMetrics
}

// NewQueueWriter creates a writer over gw. m may be nil.
func NewQueueWriter(cfg WriterConfig, gw Gateway, m *metrics.Metrics, logger *slog.Logger) *QueueWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueWriter{
		cfg:     cfg,
		gw:      gw,
		input:   router.NewBoundedBuffer[job](cfg.QueueSize, cfg.MaxQueue),
		logger:  logger,
		metrics: m,
	}
}

// Start begins applying queued writes.
func (w *QueueWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.consumeLoop()

	w.logger.Info("queue writer started", "queue_size", w.cfg.QueueSize, "max_queue", w.cfg.MaxQueue)
	return nil
}

// Stop closes the queue and waits for queued writes to drain. Writes still
// pending when ctx expires are abandoned.
func (w *QueueWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping queue writer", "pending", w.input.Len())
	w.input.Close()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		w.logger.Info("queue writer stopped")
	case <-ctx.Done():
		w.logger.Warn("queue writer stop timed out", "pending", w.input.Len())
		err = ctx.Err()
	}

	if w.cancel != nil {
		w.cancel()
	}
	return err
}

// HandleFlush queues a buffer flush. It is an aggregate.Subscriber.
func (w *QueueWriter) HandleFlush(ev aggregate.FlushEvent) {
	if !w.enqueue(job{kind: jobSummary, flush: ev}) {
		w.logger.Warn("dropped price summary", "kind", ev.Kind, "keys", len(ev.Summaries))
	}
}

// SaveItemMetadata queues an item_info update.
func (w *QueueWriter) SaveItemMetadata(_ context.Context, items []item.Item) error {
	if !w.enqueue(job{kind: jobItems, items: items}) {
		return ErrQueueFull
	}
	return nil
}

// SaveBazaarProducts queues a bazaar read.
func (w *QueueWriter) SaveBazaarProducts(_ context.Context, at time.Time, products []model.BazaarProduct) error {
	if !w.enqueue(job{kind: jobBazaar, at: at, products: products}) {
		return ErrQueueFull
	}
	return nil
}

// Stats returns current metrics.
func (w *QueueWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Pending returns the number of queued jobs.
func (w *QueueWriter) Pending() int { return w.input.Len() }

func (w *QueueWriter) enqueue(j job) bool {
	if w.input.Send(j) {
		return true
	}
	w.mu.Lock()
	w.stats.Dropped++
	w.mu.Unlock()
	return false
}

// consumeLoop applies jobs until the queue is closed and drained.
func (w *QueueWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		j, ok := w.input.Receive()
		if !ok {
			return
		}
		w.apply(j)
	}
}

func (w *QueueWriter) apply(j job) {
	ctx := w.ctx
	if w.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.WriteTimeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	switch j.kind {
	case jobSummary:
		err = w.gw.SavePriceSummary(ctx, j.flush.Kind.Summary(), j.flush.At, j.flush.Summaries)
	case jobItems:
		err = w.gw.SaveItemMetadata(ctx, j.items)
	case jobBazaar:
		err = w.gw.SaveBazaarProducts(ctx, j.at, j.products)
	}

	w.mu.Lock()
	switch {
	case err != nil:
		w.stats.Errors++
	case j.kind == jobSummary:
		w.stats.Summaries++
	case j.kind == jobItems:
		w.stats.Items++
	case j.kind == jobBazaar:
		w.stats.Bazaar++
	}
	w.mu.Unlock()

	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordWriteFailure()
		}
		w.logger.Error("write failed", "job", j.kind.String(), "err", err)
		return
	}
	w.logger.Debug("write applied", "job", j.kind.String(), "duration", time.Since(start))
}

func (k jobKind) String() string {
	switch k {
	case jobSummary:
		return "price_summary"
	case jobItems:
		return "item_metadata"
	case jobBazaar:
		return "bazaar"
	}
	return "unknown"
}
