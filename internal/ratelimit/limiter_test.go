package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter("tradier", 60)

	if limiter.Name() != "tradier" {
		t.Errorf("expected name 'tradier', got %q", limiter.Name())
	}

	// burst should admit the first few requests immediately
	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Errorf("request %d should have been allowed", i)
		}
	}
}

func TestLimiterWait(t *testing.T) {
	limiter := NewLimiter("tradier", 120)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("first wait took %v, expected near-immediate", elapsed)
	}
}

func TestLimiterWaitCancelled(t *testing.T) {
	limiter := NewLimiter("tradier", 1) // 1 per minute, drains fast
	for limiter.Allow() {
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("expected context error waiting on a drained limiter")
	}
}

func TestBackoffDoublesAndResets(t *testing.T) {
	limiter := NewLimiter("tradier", 60)

	limiter.SignalRateLimited()
	limiter.SignalRateLimited()
	if got := limiter.pendingBackoff(); got != 400*time.Millisecond {
		t.Errorf("expected 400ms after two 429s, got %v", got)
	}

	limiter.ResetBackoff()
	if got := limiter.pendingBackoff(); got != initialBackoff {
		t.Errorf("expected backoff reset to %v, got %v", initialBackoff, got)
	}
}

func TestBackoffCeiling(t *testing.T) {
	limiter := NewLimiter("tradier", 60)
	for i := 0; i < 20; i++ {
		limiter.SignalRateLimited()
	}
	if got := limiter.pendingBackoff(); got != 2*time.Minute {
		t.Errorf("expected backoff capped at 2m, got %v", got)
	}
}

func TestBudgetSpendAndExhaust(t *testing.T) {
	budget := NewBudget("tradier", 3)

	for i := 0; i < 3; i++ {
		if err := budget.Spend(); err != nil {
			t.Fatalf("spend %d failed: %v", i, err)
		}
	}
	if budget.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", budget.Remaining())
	}

	err := budget.Spend()
	var exhausted *ErrBudgetExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	if exhausted.Provider != "tradier" {
		t.Errorf("expected provider in error, got %q", exhausted.Provider)
	}
}

func TestBudgetRollsOverAtMidnight(t *testing.T) {
	budget := NewBudget("tradier", 1)
	day := time.Date(2026, 2, 18, 23, 59, 0, 0, time.UTC)
	budget.now = func() time.Time { return day }

	if err := budget.Spend(); err != nil {
		t.Fatalf("spend failed: %v", err)
	}
	if err := budget.Spend(); err == nil {
		t.Fatal("expected exhaustion before midnight")
	}

	day = day.Add(2 * time.Minute) // crosses into the next UTC day
	if err := budget.Spend(); err != nil {
		t.Errorf("expected fresh budget after rollover, got %v", err)
	}
	if budget.Remaining() != 0 {
		t.Errorf("expected 0 remaining after rollover spend, got %d", budget.Remaining())
	}
}

func TestRegistryAcquire(t *testing.T) {
	reg := NewRegistry()
	reg.Register("tradier", 120, 2)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := reg.Acquire(ctx, "tradier"); err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
	}

	var exhausted *ErrBudgetExhausted
	if err := reg.Acquire(ctx, "tradier"); !errors.As(err, &exhausted) {
		t.Fatalf("expected budget exhaustion, got %v", err)
	}

	// unregistered providers are unlimited
	if err := reg.Acquire(ctx, "yahoo"); err != nil {
		t.Errorf("unregistered provider should pass through, got %v", err)
	}
}
