package execution

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterTryAcquireRespectsCapacity(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	got := 0
	for i := 0; i < 5; i++ {
		if rl.TryAcquire() {
			got++
		}
	}
	if got != 3 {
		t.Fatalf("expected exactly capacity (3) immediate acquires, got %d", got)
	}
}

func TestRateLimiterAcquireBlocksUntilRefill(t *testing.T) {
	rl := NewRateLimiter(1000, 1)
	if !rl.TryAcquire() {
		t.Fatalf("expected first acquire to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := rl.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("expected Acquire to unblock quickly at 1000/s refill")
	}
}
