// Package limiter provides the shared concurrency and rate limiting
// primitives used by the phase scheduler. Both limiters are process-wide:
// one instance is shared by every in-flight request.
package limiter

import (
	"context"
)

// DefaultMaxConcurrent 默认最大并发数
const DefaultMaxConcurrent = 5

// Concurrency bounds the number of simultaneously in-flight worker
// invocations. Acquire never fails on its own; it only waits. Callers
// layer cancellation on top via the context.
//
// Blocked acquirers are woken in FIFO order (channel semantics).
type Concurrency struct {
	permits chan struct{}
}

// NewConcurrency creates a limiter admitting at most max concurrent holders.
func NewConcurrency(max int) *Concurrency {
	if max <= 0 {
		max = DefaultMaxConcurrent
	}
	return &Concurrency{
		permits: make(chan struct{}, max),
	}
}

// Acquire blocks until a permit is available or the context is done.
func (l *Concurrency) Acquire(ctx context.Context) error {
	select {
	case l.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit. Releasing more permits than were acquired is a
// programmer error and panics.
func (l *Concurrency) Release() {
	select {
	case <-l.permits:
	default:
		panic("limiter: release without matching acquire")
	}
}

// InFlight returns the number of currently held permits.
func (l *Concurrency) InFlight() int {
	return len(l.permits)
}

// Cap returns the maximum number of concurrent holders.
func (l *Concurrency) Cap() int {
	return cap(l.permits)
}
