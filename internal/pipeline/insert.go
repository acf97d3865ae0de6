package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// inFlightInserts bounds the number of outstanding insert calls with a
// weighted semaphore: before scheduling a new one, schedule blocks until
// some outstanding insert has finished, rather than queuing unboundedly
// in memory.
type inFlightInserts struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func newInFlightInserts(maxInFlight int) *inFlightInserts {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &inFlightInserts{sem: semaphore.NewWeighted(int64(maxInFlight))}
}

// schedule blocks until a slot is free (whichever in-flight insert
// finishes first releases it; the oldest one is not waited on
// specifically), then runs fn on its own goroutine. Cancellation while
// waiting for a slot returns ctx.Err() without running fn.
func (f *inFlightInserts) schedule(ctx context.Context, fn func()) error {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	f.wg.Add(1)
	go func() {
		defer f.sem.Release(1)
		defer f.wg.Done()
		fn()
	}()
	return nil
}

// wait blocks until every scheduled insert has completed.
func (f *inFlightInserts) wait() {
	f.wg.Wait()
}
