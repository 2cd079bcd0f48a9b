package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/skyblock-data/internal/item"
)

// -----------------------------------------------------------------------------
// Listings
// -----------------------------------------------------------------------------

// Listing holds the fields shared by active and ended auctions.
type Listing struct {
	ID       uuid.UUID // Auction id
	SellerID uuid.UUID // Auctioneer player id
	BuyNow   bool      // Fixed-price (BIN) listing
	Start    time.Time // Listing creation, zero if the feed omitted it
	End      time.Time // Scheduled end, or completion time for ended listings
	Price    float64   // Current bid, starting bid, or sale price
	Item     item.Item
}

// UnitPrice is the price of a single item in the stack.
func (l Listing) UnitPrice() float64 {
	if l.Item.StackSize < 1 {
		return l.Price
	}
	return l.Price / float64(l.Item.StackSize)
}

// Key identifies the aggregation bucket the listing belongs to.
func (l Listing) Key() ItemKey {
	return ItemKey{ItemID: l.Item.ID, Rarity: l.Item.Rarity}
}

// ActiveListing is a listing from the live auction pages.
type ActiveListing struct {
	Listing
	StartingPrice float64
	HighestBid    float64
}

// EndedListing is a completed sale.
type EndedListing struct {
	Listing
	BuyerID uuid.UUID
}

// -----------------------------------------------------------------------------
// Snapshots
// -----------------------------------------------------------------------------

// RawSnapshot is an atomic, undecoded read of every auction page. All
// records share LastUpdated.
type RawSnapshot struct {
	LastUpdated   time.Time
	TotalPages    int
	TotalAuctions int
	Auctions      []json.RawMessage
}

// Snapshot is a decoded feed read.
type Snapshot[T any] struct {
	LastUpdated time.Time
	Listings    []T
}

// BazaarProduct is the quick status of one bazaar product.
type BazaarProduct struct {
	ProductID  string
	BuyPrice   float64
	SellPrice  float64
	BuyVolume  int64
	SellVolume int64
}

// BazaarSnapshot is one read of the bazaar endpoint.
type BazaarSnapshot struct {
	LastUpdated time.Time
	Products    []BazaarProduct
}

// -----------------------------------------------------------------------------
// Aggregates
// -----------------------------------------------------------------------------

// ItemKey is the aggregation key.
type ItemKey struct {
	ItemID string
	Rarity item.Rarity
}

func (k ItemKey) String() string {
	return k.ItemID + ":" + k.Rarity.String()
}

// SummaryKind names a price summary series.
type SummaryKind string

const (
	SummaryLowestBIN SummaryKind = "lowest_bin"
	SummarySale      SummaryKind = "sale"
)

// Table returns the history table backing the series.
func (k SummaryKind) Table() string {
	switch k {
	case SummaryLowestBIN:
		return "lbin_history"
	case SummarySale:
		return "avg_sale_history"
	}
	return ""
}

// PriceSummary is the reduction of one key's samples over a flush period.
type PriceSummary struct {
	Mean  float64
	Count int
}

// PricePoint is one stored summary value.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// ItemInfo links an item id to its name and tracks how often each rarity
// has been observed for it.
type ItemInfo struct {
	ItemID   string
	BaseName string
	Counts   map[item.Rarity]int
}

// GuessRarity picks the rarity to show for an item when none is given:
// the most common rarity for pets, the lowest observed rarity otherwise.
func (i *ItemInfo) GuessRarity() item.Rarity {
	isPet := item.Item{ID: i.ItemID}.IsPet()
	best, bestCount := item.Unknown, 0
	for _, r := range item.Rarities() {
		n := i.Counts[r]
		if n == 0 {
			continue
		}
		if !isPet {
			return r
		}
		if n > bestCount {
			best, bestCount = r, n
		}
	}
	return best
}
