package app

import (
	"context"
	"time"
)

// DefaultRetryDelay is the pause before a retried attempt.
const DefaultRetryDelay = 100 * time.Millisecond

// backoff is a fixed retry delay. Attempts are capped by the scheduler, so
// the delay never grows.
type backoff struct {
	delay time.Duration
}

func newBackoff(delay time.Duration) *backoff {
	if delay < 0 {
		delay = 0
	}
	return &backoff{delay: delay}
}

// Wait blocks for the delay or until ctx is done.
func (b *backoff) Wait(ctx context.Context) error {
	if b.delay == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Current returns the delay.
func (b *backoff) Current() time.Duration {
	return b.delay
}
