package router

import (
	"context"
	"encoding/json"
	"runtime"
)

// DecodeFunc turns one raw feed record into a value.
type DecodeFunc[T any] func(json.RawMessage) (T, error)

// Batch is the decoded result of one submitted chunk.
type Batch[T any] struct {
	Values    []T
	Malformed int
	FirstErr  error // First decode failure, for logging
}

// Future resolves to the Batch of one submission.
type Future[T any] struct {
	done  chan struct{}
	batch Batch[T]
}

// Wait blocks until the batch is decoded or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (Batch[T], error) {
	select {
	case <-f.done:
		return f.batch, nil
	case <-ctx.Done():
		return Batch[T]{}, ctx.Err()
	}
}

// Pool decodes record batches on a bounded set of goroutines. Decoding is
// pure, so workers share nothing but their input.
type Pool[T any] struct {
	decode DecodeFunc[T]
	sem    chan struct{}
}

// NewPool creates a pool running at most workers batches at once.
func NewPool[T any](workers int, decode DecodeFunc[T]) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T]{
		decode: decode,
		sem:    make(chan struct{}, workers),
	}
}

// Submit schedules batch and returns its future. It does not block.
func (p *Pool[T]) Submit(batch []json.RawMessage) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		f.batch = p.run(batch)
	}()
	return f
}

func (p *Pool[T]) run(records []json.RawMessage) Batch[T] {
	b := Batch[T]{Values: make([]T, 0, len(records))}
	for _, raw := range records {
		v, err := p.decode(raw)
		if err != nil {
			b.Malformed++
			if b.FirstErr == nil {
				b.FirstErr = err
			}
			continue
		}
		b.Values = append(b.Values, v)
	}
	return b
}

// DecodeAll splits records into chunks of batchSize, submits them with a
// yield between submissions, and joins the results in submission order.
func (p *Pool[T]) DecodeAll(ctx context.Context, records []json.RawMessage, batchSize int) (Batch[T], error) {
	if batchSize < 1 {
		batchSize = len(records)
	}

	var futures []*Future[T]
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		futures = append(futures, p.Submit(records[start:end]))
		runtime.Gosched()
	}

	out := Batch[T]{Values: make([]T, 0, len(records))}
	for _, f := range futures {
		b, err := f.Wait(ctx)
		if err != nil {
			return Batch[T]{}, err
		}
		out.Values = append(out.Values, b.Values...)
		out.Malformed += b.Malformed
		if out.FirstErr == nil {
			out.FirstErr = b.FirstErr
		}
	}
	return out, nil
}
