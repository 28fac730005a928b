package xxhverify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Unit is one piece of admitted work. i is the unit's index in the work list.
type Unit func(ctx context.Context, i int) error

// Scheduler admits at most Limit units at a time. Units are all dispatched
// up front; each one blocks on an admission token before it touches the
// filesystem and releases the token when it returns.
type Scheduler struct {
	limit  int64
	tokens *semaphore.Weighted

	admitted atomic.Int64 // units currently holding a token
	peak     atomic.Int64 // highest value admitted has reached
	started  atomic.Int64 // units that have been dispatched
	finished atomic.Int64 // units that have released their token
}

// NewScheduler creates a scheduler with a pool of limit admission tokens
func NewScheduler(limit int) *Scheduler {
	if limit < 1 {
		limit = 1
	}
	return &Scheduler{
		limit:  int64(limit),
		tokens: semaphore.NewWeighted(int64(limit)),
	}
}

// Limit returns the size of the token pool
func (s *Scheduler) Limit() int {
	return int(s.limit)
}

// Admitted returns the number of units currently holding a token
func (s *Scheduler) Admitted() int {
	return int(s.admitted.Load())
}

// Peak returns the maximum number of units that held a token at once
func (s *Scheduler) Peak() int {
	return int(s.peak.Load())
}

// Stats returns dispatched and finished unit counts since creation
func (s *Scheduler) Stats() (started, finished int64) {
	return s.started.Load(), s.finished.Load()
}

// Run dispatches n units and supervises them. The first unit to return an
// error cancels the context shared by the others; Run then waits for every
// unit to return, so all file handles are closed, and returns that first
// error. Units still waiting for a token when the run is cancelled return
// without doing any work.
func (s *Scheduler) Run(ctx context.Context, n int, unit Unit) error {
	defer VerboseEnter()()
	if n == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	// The first unit error is the run's error. Units that return only
	// because of the resulting cancellation must not replace it.
	var firstErr error
	var failOnce sync.Once
	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := 0; i < n; i++ {
		s.started.Add(1)
		g.Go(func() error {
			if err := s.admit(runCtx); err != nil {
				return err
			}
			defer s.release()
			if err := runCtx.Err(); err != nil {
				return err
			}
			err := unit(runCtx, i)
			if err != nil {
				// Cancel before the token is released so no waiting unit starts
				fail(err)
			}
			return err
		})
	}

	if IsDebugEnabled(DebugSchedule) {
		VerboseLog(3, "Run: dispatched %d units, limit %d", n, s.limit)
	}

	err := g.Wait()
	if firstErr != nil {
		err = firstErr
	}
	if IsDebugEnabled(DebugSchedule) {
		VerboseLog(3, "Run: all units returned, peak admitted %d, err=%v", s.Peak(), err)
	}
	return err
}

// admit blocks until a token is free or ctx is done
func (s *Scheduler) admit(ctx context.Context) error {
	if err := s.tokens.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for admission: %w", err)
	}
	cur := s.admitted.Add(1)
	for {
		p := s.peak.Load()
		if cur <= p || s.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	return nil
}

// release returns a token to the pool
func (s *Scheduler) release() {
	s.admitted.Add(-1)
	s.finished.Add(1)
	s.tokens.Release(1)
}
