package aggregate

import (
	"time"

	"github.com/rickgao/skyblock-data/internal/model"
)

// DefaultMinListed is how long a buy-now listing must have been up to count.
const DefaultMinListed = time.Minute

// LowestBIN tracks the cheapest qualifying buy-now unit price per key in
// each snapshot.
type LowestBIN struct {
	buf         *Buffer
	minListed   time.Duration
	occurrences map[model.ItemKey]int
}

// NewLowestBIN creates a lowest buy-now tracker. A zero minListed uses
// DefaultMinListed.
func NewLowestBIN(threshold int, minListed time.Duration, bus *Bus) (*LowestBIN, error) {
	buf, err := NewBuffer(LowestBINFlushed, threshold, bus)
	if err != nil {
		return nil, err
	}
	if minListed <= 0 {
		minListed = DefaultMinListed
	}
	return &LowestBIN{
		buf:         buf,
		minListed:   minListed,
		occurrences: make(map[model.ItemKey]int),
	}, nil
}

// Observe folds one snapshot taken at at into the buffer. Listings posted
// less than minListed before at are ignored; a listing with no start time
// counts as old enough.
func (l *LowestBIN) Observe(listings []model.ActiveListing, at time.Time) (FlushEvent, bool) {
	lowest := make(map[model.ItemKey]float64)
	for _, a := range listings {
		key := a.Key()
		l.occurrences[key]++

		if !a.BuyNow || !l.qualifies(a.Listing, at) {
			continue
		}
		price := a.UnitPrice()
		if cur, ok := lowest[key]; !ok || price < cur {
			lowest[key] = price
		}
	}

	for key, price := range lowest {
		l.buf.Add(key, price)
	}

	ev, flushed := l.buf.commit(at, l.occurrences)
	if flushed {
		l.occurrences = make(map[model.ItemKey]int)
	}
	return ev, flushed
}

func (l *LowestBIN) qualifies(a model.Listing, at time.Time) bool {
	return a.Start.IsZero() || at.Sub(a.Start) >= l.minListed
}

// Buffer exposes the underlying sample buffer.
func (l *LowestBIN) Buffer() *Buffer { return l.buf }

// Sales tracks the unit price of every completed sale.
type Sales struct {
	buf *Buffer
}

// NewSales creates a sale price tracker.
func NewSales(threshold int, bus *Bus) (*Sales, error) {
	buf, err := NewBuffer(SalesFlushed, threshold, bus)
	if err != nil {
		return nil, err
	}
	return &Sales{buf: buf}, nil
}

// Observe appends every sale's unit price and commits.
func (s *Sales) Observe(ended []model.EndedListing, at time.Time) (FlushEvent, bool) {
	for _, e := range ended {
		s.buf.Add(e.Key(), e.UnitPrice())
	}
	return s.buf.Commit(at)
}

// Buffer exposes the underlying sample buffer.
func (s *Sales) Buffer() *Buffer { return s.buf }
