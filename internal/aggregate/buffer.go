package aggregate

import (
	"errors"
	"time"

	"github.com/rickgao/skyblock-data/internal/model"
)

// ErrInvalidThreshold is returned for a non-positive flush threshold.
var ErrInvalidThreshold = errors.New("aggregate: threshold must be positive")

// Buffer accumulates price samples per key and flushes after Threshold
// commits. It is owned by a single goroutine.
type Buffer struct {
	kind      EventKind
	threshold int
	bus       *Bus

	samples map[model.ItemKey][]float64
	calls   int
}

// NewBuffer creates a Buffer that publishes kind events on bus. A nil bus
// discards events.
func NewBuffer(kind EventKind, threshold int, bus *Bus) (*Buffer, error) {
	if threshold < 1 {
		return nil, ErrInvalidThreshold
	}
	return &Buffer{
		kind:      kind,
		threshold: threshold,
		bus:       bus,
		samples:   make(map[model.ItemKey][]float64),
	}, nil
}

// Add appends one sample for key.
func (b *Buffer) Add(key model.ItemKey, price float64) {
	b.samples[key] = append(b.samples[key], price)
}

// Commit closes out one snapshot. When the commit count reaches the
// threshold, the samples are reduced, published and cleared, and the
// event is returned.
func (b *Buffer) Commit(at time.Time) (FlushEvent, bool) {
	return b.commit(at, nil)
}

func (b *Buffer) commit(at time.Time, occurrences map[model.ItemKey]int) (FlushEvent, bool) {
	b.calls++
	if b.calls < b.threshold {
		return FlushEvent{}, false
	}

	ev := FlushEvent{
		Kind:        b.kind,
		At:          at,
		Snapshots:   b.calls,
		Summaries:   Reduce(b.samples),
		Occurrences: occurrences,
	}
	b.samples = make(map[model.ItemKey][]float64)
	b.calls = 0

	if b.bus != nil {
		b.bus.Publish(ev)
	}
	return ev, true
}

// Pending returns the number of buffered samples.
func (b *Buffer) Pending() int {
	var n int
	for _, s := range b.samples {
		n += len(s)
	}
	return n
}

// Keys returns the number of keys with samples.
func (b *Buffer) Keys() int { return len(b.samples) }

// Calls returns commits since the last flush.
func (b *Buffer) Calls() int { return b.calls }

// Threshold returns the commit count that triggers a flush.
func (b *Buffer) Threshold() int { return b.threshold }

// Reduce maps each key's samples to their mean and count. Keys with no
// samples are omitted.
func Reduce(samples map[model.ItemKey][]float64) map[model.ItemKey]model.PriceSummary {
	out := make(map[model.ItemKey]model.PriceSummary, len(samples))
	for key, prices := range samples {
		if len(prices) == 0 {
			continue
		}
		var sum float64
		for _, p := range prices {
			sum += p
		}
		out[key] = model.PriceSummary{Mean: sum / float64(len(prices)), Count: len(prices)}
	}
	return out
}
