package app

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_Wait(t *testing.T) {
	b := newBackoff(20 * time.Millisecond)
	if b.Current() != 20*time.Millisecond {
		t.Fatalf("Current() = %v, want 20ms", b.Current())
	}

	start := time.Now()
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait() returned after %v, want >= 20ms", elapsed)
	}

	// Fixed: the delay does not grow.
	if b.Current() != 20*time.Millisecond {
		t.Errorf("Current() = %v after Wait, want 20ms", b.Current())
	}
}

func TestBackoff_WaitCancelled(t *testing.T) {
	b := newBackoff(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}

func TestBackoff_NegativeIsZero(t *testing.T) {
	b := newBackoff(-time.Second)
	if b.Current() != 0 {
		t.Errorf("Current() = %v, want 0", b.Current())
	}
	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
