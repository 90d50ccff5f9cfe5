// Package admission bounds how many scrape operations run simultaneously
// across the whole process. Each admitted operation holds a page against the
// shared browser, so unbounded concurrency degrades or crashes it.
package admission

import (
	"context"
	"fmt"
)

// Limiter is a fixed-size admission gate. Waiters are admitted in arrival
// order as slots free up; it never reorders or prioritizes.
type Limiter struct {
	slots chan struct{}
}

// New creates a Limiter admitting at most max concurrent operations.
func New(max int) *Limiter {
	if max <= 0 {
		max = 1
	}
	return &Limiter{slots: make(chan struct{}, max)}
}

// Acquire blocks until a slot is free or the context finishes.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("admission wait canceled: %w", ctx.Err())
	}
}

// Release frees a slot. Callers must pair every successful Acquire with
// exactly one Release on every exit path.
func (l *Limiter) Release() {
	select {
	case <-l.slots:
	default:
	}
}

// InUse reports how many slots are currently held.
func (l *Limiter) InUse() int {
	return len(l.slots)
}
