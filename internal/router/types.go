package router

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/model"
)

// ErrNoSnapshot is returned by queries before any snapshot was accepted.
var ErrNoSnapshot = errors.New("no active auctions cached")

// RouterConfig holds configuration for the snapshot router.
type RouterConfig struct {
	BatchSize int // Records per decode batch (default: 500)
	Workers   int // Concurrent decode batches (default: 4)
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		BatchSize: 500,
		Workers:   4,
	}
}

// ItemSink stores item id to name and rarity links.
type ItemSink interface {
	SaveItemMetadata(ctx context.Context, items []item.Item) error
}

// BazaarSink stores bazaar reads.
type BazaarSink interface {
	SaveBazaarProducts(ctx context.Context, at time.Time, products []model.BazaarProduct) error
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	ActiveSnapshots int64
	EndedSnapshots  int64
	BazaarSnapshots int64
	Decoded         int64
	Malformed       int64
	Filtered        int64
	Persisting      int // Listings of the latest snapshot also in the one before
	LastActive      time.Time
	LastEnded       time.Time
}
