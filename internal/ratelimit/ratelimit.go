// Package ratelimit provides the per-adapter sliding-window limiter that
// gates outgoing provider calls. The limiter is advisory: it never rejects
// a call, it only reports how long a cooperative caller should wait.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window counter over the timestamps of recent
// requests. One instance exists per adapter, parameterized to that
// provider's published or assumed limit. Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	timestamps  []time.Time
	now         func() time.Time
}

// New creates a limiter allowing maxRequests per window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// CanProceed reports whether a request issued now stays within the limit.
func (l *Limiter) CanProceed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()
	return len(l.timestamps) < l.maxRequests
}

// Record notes that a request is being issued now. Callers invoke it
// immediately before the outgoing call.
func (l *Limiter) Record() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()
	l.timestamps = append(l.timestamps, l.now())
}

// WaitTime returns how long a caller should delay before issuing the next
// request, or 0 if it may proceed immediately.
func (l *Limiter) WaitTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()
	if len(l.timestamps) < l.maxRequests {
		return 0
	}

	wait := l.window - l.now().Sub(l.timestamps[0])
	if wait < 0 {
		wait = 0
	}
	return wait
}

// Wait sleeps for WaitTime, honoring context cancellation, then records the
// request. Adapters call it once before every network call.
func (l *Limiter) Wait(ctx context.Context) error {
	if d := l.WaitTime(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	l.Record()
	return nil
}

// prune drops timestamps older than the window. Must be called with the
// lock held.
func (l *Limiter) prune() {
	cutoff := l.now().Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}
