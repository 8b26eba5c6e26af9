package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSessionLimiter_AcquireRelease(t *testing.T) {
	limiter := NewSessionLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.Active(); got != 0 {
		t.Errorf("initial Active = %d, want 0", got)
	}
	if got := limiter.MaxConcurrent(); got != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", got)
	}

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if got := limiter.Active(); got != 2 {
		t.Errorf("after two Acquires, Active = %d, want 2", got)
	}
	if limiter.TryAcquire() {
		t.Error("TryAcquire succeeded with no free slot")
	}

	limiter.Release()
	if got := limiter.Active(); got != 1 {
		t.Errorf("after Release, Active = %d, want 1", got)
	}
	if !limiter.TryAcquire() {
		t.Error("TryAcquire failed with a free slot")
	}

	limiter.Release()
	limiter.Release()
	if got := limiter.Active(); got != 0 {
		t.Errorf("after all Releases, Active = %d, want 0", got)
	}
}

func TestSessionLimiter_Defaults(t *testing.T) {
	limiter := NewSessionLimiter(0, 0)
	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentSessions {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentSessions)
	}
	if limiter.maxWait != DefaultMaxWaitTime {
		t.Errorf("maxWait = %v, want %v", limiter.maxWait, DefaultMaxWaitTime)
	}
}

func TestSessionLimiter_Timeout(t *testing.T) {
	limiter := NewSessionLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	start := time.Now()
	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("Acquire error = %v, want ErrTooManySessions", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Acquire returned after %v, expected to wait", elapsed)
	}
}

func TestSessionLimiter_ContextCancel(t *testing.T) {
	limiter := NewSessionLimiter(1, time.Minute)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire error = %v, want context.DeadlineExceeded", err)
	}
}

func TestSessionLimiter_WaiterGetsReleasedSlot(t *testing.T) {
	limiter := NewSessionLimiter(1, time.Second)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var waitErr error
	go func() {
		defer wg.Done()
		waitErr = limiter.Acquire(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	limiter.Release()
	wg.Wait()

	if waitErr != nil {
		t.Fatalf("waiting Acquire failed: %v", waitErr)
	}
	if got := limiter.Active(); got != 1 {
		t.Errorf("Active = %d, want 1", got)
	}
	limiter.Release()
}

func TestSessionLimiter_WaitForDrain(t *testing.T) {
	limiter := NewSessionLimiter(1, time.Second)

	if err := limiter.WaitForDrain(context.Background()); err != nil {
		t.Fatalf("WaitForDrain on idle limiter: %v", err)
	}

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForDrain error = %v, want context.DeadlineExceeded", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		limiter.Release()
	}()
	if err := limiter.WaitForDrain(context.Background()); err != nil {
		t.Errorf("WaitForDrain error = %v, want nil", err)
	}
}
