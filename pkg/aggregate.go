package xxhverify

import (
	"context"
	"fmt"
)

// Result is one computed (path, digest) pair
type Result struct {
	Path   string
	Digest Digest
}

// Aggregator carries results from many producing units to one consumer
// through a channel of fixed capacity. Producers block when it is full.
type Aggregator struct {
	results chan Result
}

// NewAggregator creates an aggregator buffering at most capacity results
func NewAggregator(capacity int) *Aggregator {
	if capacity < 1 {
		capacity = 1
	}
	return &Aggregator{results: make(chan Result, capacity)}
}

// Capacity returns the channel's fixed capacity
func (a *Aggregator) Capacity() int {
	return cap(a.results)
}

// Pending returns the number of results buffered and not yet collected
func (a *Aggregator) Pending() int {
	return len(a.results)
}

// Send delivers r, blocking while the channel is full. If ctx is done first
// the result is dropped and ErrAggregatorClosed is returned.
func (a *Aggregator) Send(ctx context.Context, r Result) error {
	select {
	case a.results <- r:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrAggregatorClosed, r.Path, ctx.Err())
	}
}

// Collect receives exactly n results into a map keyed by path and returns.
// It never waits for an (n+1)th result.
func (a *Aggregator) Collect(ctx context.Context, n int) (map[string]Digest, error) {
	defer VerboseEnter()()
	collected := make(map[string]Digest, n)
	for received := 0; received < n; received++ {
		select {
		case r := <-a.results:
			collected[r.Path] = r.Digest
		case <-ctx.Done():
			return collected, fmt.Errorf("collecting results (%d of %d received): %w", received, n, ctx.Err())
		}
	}
	return collected, nil
}
