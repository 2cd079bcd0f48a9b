package router

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/skyblock-data/internal/aggregate"
	"github.com/rickgao/skyblock-data/internal/api"
	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/metrics"
	"github.com/rickgao/skyblock-data/internal/model"
)

// Option configures a Router.
type Option func(*Router)

// WithItemSink forwards each snapshot's items to sink.
func WithItemSink(sink ItemSink) Option {
	return func(r *Router) {
		r.items = sink
	}
}

// WithBazaarSink forwards bazaar reads to sink.
func WithBazaarSink(sink BazaarSink) Option {
	return func(r *Router) {
		r.bazaar = sink
	}
}

// WithMetrics records decode outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// Router decodes accepted snapshots and feeds the aggregation buffers.
// HandleActive and HandleEnded are each called from a single loop; the
// buffers they feed are not shared between them.
type Router struct {
	cfg    RouterConfig
	logger *slog.Logger

	activePool *Pool[model.ActiveListing]
	endedPool  *Pool[model.EndedListing]

	lowest  *aggregate.LowestBIN
	sales   *aggregate.Sales
	items   ItemSink
	bazaar  BazaarSink
	metrics *metrics.Metrics

	mu          sync.RWMutex
	latest      *model.Snapshot[model.ActiveListing]
	latestEnded *model.Snapshot[model.EndedListing]
	stats       RouterStats
}

// New creates a Router. Either buffer may be nil to skip that aggregation.
func New(cfg RouterConfig, lowest *aggregate.LowestBIN, sales *aggregate.Sales, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		cfg:        cfg,
		logger:     logger,
		activePool: NewPool[model.ActiveListing](cfg.Workers, api.ToActiveListing),
		endedPool:  NewPool[model.EndedListing](cfg.Workers, api.ToEndedListing),
		lowest:     lowest,
		sales:      sales,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleActive decodes an active auctions snapshot, keeps it as the latest,
// and folds it into the lowest buy-now buffer.
func (r *Router) HandleActive(ctx context.Context, snap *model.RawSnapshot) error {
	batch, err := r.activePool.DecodeAll(ctx, snap.Auctions, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	listings, filtered := keepASCII(batch.Values, func(a model.ActiveListing) item.Item { return a.Item })
	r.record(len(listings), batch.Malformed, filtered, batch.FirstErr)

	decoded := &model.Snapshot[model.ActiveListing]{LastUpdated: snap.LastUpdated, Listings: listings}

	r.mu.Lock()
	persisting := countPersisting(r.latest, listings)
	r.latest = decoded
	r.stats.ActiveSnapshots++
	r.stats.Persisting = persisting
	r.stats.LastActive = snap.LastUpdated
	r.mu.Unlock()

	r.logger.Info("active snapshot decoded",
		"last_updated", snap.LastUpdated.UnixMilli(),
		"listings", len(listings),
		"malformed", batch.Malformed,
		"filtered", filtered,
		"persisting", persisting,
	)

	if r.lowest != nil {
		if ev, flushed := r.lowest.Observe(listings, snap.LastUpdated); flushed {
			r.logFlush(ev)
		} else {
			buf := r.lowest.Buffer()
			r.logger.Debug("lowest BIN buffer updated", "calls", buf.Calls(), "threshold", buf.Threshold())
		}
	}

	if r.items != nil && len(listings) > 0 {
		items := make([]item.Item, len(listings))
		for i, l := range listings {
			items[i] = l.Item
		}
		if err := r.items.SaveItemMetadata(ctx, items); err != nil {
			r.logger.Warn("failed to save item metadata", "err", err)
		}
	}

	return nil
}

// HandleEnded decodes a read of recently ended auctions and folds it into
// the sale price buffer.
func (r *Router) HandleEnded(ctx context.Context, snap *model.RawSnapshot) error {
	batch, err := r.endedPool.DecodeAll(ctx, snap.Auctions, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	listings, filtered := keepASCII(batch.Values, func(e model.EndedListing) item.Item { return e.Item })
	r.record(len(listings), batch.Malformed, filtered, batch.FirstErr)

	r.mu.Lock()
	r.latestEnded = &model.Snapshot[model.EndedListing]{LastUpdated: snap.LastUpdated, Listings: listings}
	r.stats.EndedSnapshots++
	r.stats.LastEnded = snap.LastUpdated
	r.mu.Unlock()

	r.logger.Info("ended auctions decoded",
		"last_updated", snap.LastUpdated.UnixMilli(),
		"sales", len(listings),
		"malformed", batch.Malformed,
	)

	if r.sales != nil {
		if ev, flushed := r.sales.Observe(listings, snap.LastUpdated); flushed {
			r.logFlush(ev)
		}
	}
	return nil
}

// HandleBazaar forwards a bazaar read to the bazaar sink.
func (r *Router) HandleBazaar(ctx context.Context, snap model.BazaarSnapshot) error {
	r.mu.Lock()
	r.stats.BazaarSnapshots++
	r.mu.Unlock()

	r.logger.Debug("bazaar read", "products", len(snap.Products), "last_updated", snap.LastUpdated.UnixMilli())
	if r.bazaar == nil {
		return nil
	}
	return r.bazaar.SaveBazaarProducts(ctx, snap.LastUpdated, snap.Products)
}

// Latest returns the most recent decoded active snapshot.
func (r *Router) Latest() (*model.Snapshot[model.ActiveListing], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.latest != nil
}

// LatestEnded returns the most recent decoded ended auctions read.
func (r *Router) LatestEnded() (*model.Snapshot[model.EndedListing], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestEnded, r.latestEnded != nil
}

// CheapestBIN returns up to n buy-now listings of itemID from the latest
// snapshot, cheapest first.
func (r *Router) CheapestBIN(itemID string, n int) ([]model.ActiveListing, error) {
	matches, err := r.match(func(a model.ActiveListing) bool {
		return a.BuyNow && a.Item.ID == itemID
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Price < matches[j].Price })
	return head(matches, n), nil
}

// EndingSoon returns up to n bid auctions of itemID from the latest
// snapshot, soonest ending first.
func (r *Router) EndingSoon(itemID string, n int) ([]model.ActiveListing, error) {
	matches, err := r.match(func(a model.ActiveListing) bool {
		return !a.BuyNow && a.Item.ID == itemID
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].End.Before(matches[j].End) })
	return head(matches, n), nil
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

func (r *Router) match(keep func(model.ActiveListing) bool) ([]model.ActiveListing, error) {
	snap, ok := r.Latest()
	if !ok {
		return nil, ErrNoSnapshot
	}
	var out []model.ActiveListing
	for _, a := range snap.Listings {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// record counts one decoded read. Malformed records are dropped, not fatal.
func (r *Router) record(kept, malformed, filtered int, firstErr error) {
	r.mu.Lock()
	r.stats.Decoded += int64(kept)
	r.stats.Malformed += int64(malformed)
	r.stats.Filtered += int64(filtered)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordListings(kept, malformed, filtered)
	}
	if firstErr != nil {
		r.logger.Debug("dropped malformed listings", "count", malformed, "first_err", firstErr)
	}
}

func (r *Router) logFlush(ev aggregate.FlushEvent) {
	if r.metrics != nil {
		r.metrics.RecordFlush()
	}
	r.logger.Info("buffer flushed",
		"kind", ev.Kind,
		"keys", len(ev.Summaries),
		"snapshots", ev.Snapshots,
		"at", ev.At.UnixMilli(),
	)
}

// keepASCII drops listings whose item base name is not plain ASCII.
func keepASCII[T any](in []T, itemOf func(T) item.Item) ([]T, int) {
	out := in[:0]
	for _, v := range in {
		if itemOf(v).HasASCIIBaseName() {
			out = append(out, v)
		}
	}
	return out, len(in) - len(out)
}

func countPersisting(prev *model.Snapshot[model.ActiveListing], cur []model.ActiveListing) int {
	if prev == nil {
		return 0
	}
	ids := make(map[uuid.UUID]struct{}, len(prev.Listings))
	for _, a := range prev.Listings {
		ids[a.ID] = struct{}{}
	}
	var n int
	for _, a := range cur {
		if _, ok := ids[a.ID]; ok {
			n++
		}
	}
	return n
}

func head[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
