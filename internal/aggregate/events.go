package aggregate

import (
	"fmt"
	"sync"
	"time"

	"github.com/rickgao/skyblock-data/internal/model"
)

// EventKind enumerates the events a Bus carries.
type EventKind int

const (
	LowestBINFlushed EventKind = iota + 1
	SalesFlushed
)

// EventKinds returns every kind in declaration order.
func EventKinds() []EventKind {
	return []EventKind{LowestBINFlushed, SalesFlushed}
}

func (k EventKind) String() string {
	switch k {
	case LowestBINFlushed:
		return "lowest_bin_flushed"
	case SalesFlushed:
		return "sales_flushed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Valid reports whether k is a declared kind.
func (k EventKind) Valid() bool {
	return k == LowestBINFlushed || k == SalesFlushed
}

// Summary returns the stored series the event feeds.
func (k EventKind) Summary() model.SummaryKind {
	if k == SalesFlushed {
		return model.SummarySale
	}
	return model.SummaryLowestBIN
}

// FlushEvent carries one buffer reduction.
type FlushEvent struct {
	Kind      EventKind
	At        time.Time // Timestamp of the snapshot that triggered the flush
	Snapshots int       // Snapshots folded into this reduction
	Summaries map[model.ItemKey]model.PriceSummary

	// Occurrences counts listings seen per key over the period. Only set
	// for LowestBINFlushed.
	Occurrences map[model.ItemKey]int
}

// Subscriber handles a published event. It runs on the publishing goroutine
// and must not block for I/O.
type Subscriber func(FlushEvent)

// Bus dispatches events to subscribers registered per kind, synchronously
// and in registration order.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventKind][]Subscriber
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventKind][]Subscriber)}
}

// Subscribe registers fn for kind.
func (b *Bus) Subscribe(kind EventKind, fn Subscriber) error {
	if !kind.Valid() {
		return fmt.Errorf("subscribe: unknown event kind %d", int(kind))
	}
	if fn == nil {
		return fmt.Errorf("subscribe %s: nil subscriber", kind)
	}
	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], fn)
	b.mu.Unlock()
	return nil
}

// Publish delivers ev to each subscriber of ev.Kind in order.
func (b *Bus) Publish(ev FlushEvent) {
	b.mu.RLock()
	subs := b.subs[ev.Kind]
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Subscribers returns the number of subscribers for kind.
func (b *Bus) Subscribers(kind EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
