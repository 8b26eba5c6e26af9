package core

// limiter.go bounds the number of load sessions running at once.
//
// Every session holds a dedicated pooled connection for its lifetime, so the
// limit also caps how many connections loads can pin. When all slots are
// taken, new sessions wait up to maxWait before failing with
// ErrTooManySessions.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManySessions is returned when all session slots stay occupied for the
// whole wait period.
var ErrTooManySessions = errors.New("too many concurrent loads, please try again later")

// DefaultMaxConcurrentSessions keeps loads strictly one at a time.
const DefaultMaxConcurrentSessions = 1

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// SessionLimiter is a counting semaphore for load sessions.
type SessionLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewSessionLimiter creates a limiter allowing at most maxConcurrent sessions.
func NewSessionLimiter(maxConcurrent int, maxWait time.Duration) *SessionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSessions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &SessionLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire blocks until a slot is free, the wait period expires, or ctx ends.
// The caller must call Release once the session is closed.
func (l *SessionLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return ErrTooManySessions
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking. Returns false if none is free.
func (l *SessionLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *SessionLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of sessions currently holding a slot.
func (l *SessionLimiter) Active() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the configured slot count.
func (l *SessionLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no session holds a slot or ctx ends.
// Used during shutdown so in-flight loads can commit or roll back.
func (l *SessionLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
