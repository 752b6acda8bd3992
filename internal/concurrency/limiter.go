// Package concurrency provides bounded-concurrency gates for the
// indexer's file I/O and database I/O, each enforcing a queue wait
// timeout on top of x/sync/semaphore's weighted semaphore (spec §4.3:
// fileIOLimiter, dbIOLimiter). This generalizes the teacher's hand-rolled
// channel-based semaphore (internal/backends/limiter.go) into a single
// reusable limiter type backed by a real concurrency library.
package concurrency

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds concurrent access to a resource and fails fast once a
// caller has waited longer than its queue timeout, rather than queueing
// indefinitely.
type Limiter struct {
	name           string
	sem            *semaphore.Weighted
	queueTimeout   time.Duration
}

// NewLimiter creates a Limiter admitting at most maxConcurrency callers at
// once, each willing to wait up to queueTimeout for a slot.
func NewLimiter(name string, maxConcurrency int, queueTimeout time.Duration) *Limiter {
	return &Limiter{
		name:         name,
		sem:          semaphore.NewWeighted(int64(maxConcurrency)),
		queueTimeout: queueTimeout,
	}
}

// ErrQueueTimeout is returned by Acquire when a caller waited longer than
// the configured queue timeout for a slot.
type ErrQueueTimeout struct {
	Limiter  string
	WaitedMs int64
}

func (e *ErrQueueTimeout) Error() string {
	return fmt.Sprintf("sdlctl: timed out after %dms waiting for %s capacity", e.WaitedMs, e.Limiter)
}

// Acquire blocks until a slot is free, the queue timeout elapses, or ctx is
// canceled — whichever happens first.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx := ctx
	var cancel context.CancelFunc
	if l.queueTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, l.queueTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() == nil {
			return &ErrQueueTimeout{Limiter: l.name, WaitedMs: time.Since(start).Milliseconds()}
		}
		return ctx.Err()
	}
	return nil
}

// Release returns a slot to the limiter.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Do runs fn after acquiring a slot, always releasing afterward.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}
