package pipeline

// limiter.go bounds concurrent record submissions to the remote API.
//
// A bulk upload dispatches every record of the chosen sheet without waiting
// for the previous one, so a large sheet could otherwise open hundreds of
// simultaneous requests against the collaborator. The limiter uses a
// semaphore to cap in-flight submissions at a configurable maximum; callers
// block until a slot frees up or their context is cancelled.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxConcurrentSubmits caps in-flight record submissions.
const DefaultMaxConcurrentSubmits = 5

// DefaultSubmitWait is how long a record waits for a slot before failing.
const DefaultSubmitWait = 30 * time.Second

// SubmitLimiter controls concurrent record submissions using a semaphore.
type SubmitLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewSubmitLimiter creates a limiter allowing at most maxConcurrent
// simultaneous submissions.
func NewSubmitLimiter(maxConcurrent int, maxWait time.Duration) *SubmitLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSubmits
	}
	if maxWait <= 0 {
		maxWait = DefaultSubmitWait
	}

	return &SubmitLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire blocks until a submission slot is available.
// The caller must Release when the submission completes (use defer).
func (l *SubmitLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return waitCtx.Err()
	}
}

// Release frees a submission slot.
func (l *SubmitLimiter) Release() {
	l.mu.Lock()
	if l.active > 0 {
		l.active--
	}
	l.mu.Unlock()

	select {
	case <-l.semaphore:
	default:
	}
}

// Active returns the number of in-flight submissions.
func (l *SubmitLimiter) Active() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}
