// Package ratelimit inserts minimum spacing between sequential ledger calls.
// The remote API allows roughly 100 requests a minute; since the batch is
// strictly sequential the only job here is delay, not admission control.
package ratelimit

import (
	"context"
	"time"
)

// Op names a rate-limited ledger operation.
type Op string

const (
	OpList    Op = "list"
	OpCreate  Op = "create"
	OpApprove Op = "approve"
	OpPay     Op = "pay"
)

// Limiter enforces per-operation minimum spacing from the previous call.
// Not safe for concurrent use; the batch runs on one goroutine.
type Limiter struct {
	spacing  map[Op]time.Duration
	lastCall time.Time
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// New creates a Limiter with the given per-operation spacing. Operations
// missing from the map get no delay.
func New(spacing map[Op]time.Duration) *Limiter {
	return &Limiter{
		spacing: spacing,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// SetClock replaces the limiter's clock and sleep, for tests.
func (l *Limiter) SetClock(now func() time.Time, sleep func(context.Context, time.Duration) error) {
	l.now = now
	l.sleep = sleep
}

// Wait suspends the caller until the operation's minimum spacing from the
// previous rate-limited call has elapsed.
func (l *Limiter) Wait(ctx context.Context, op Op) error {
	spacing := l.spacing[op]
	if !l.lastCall.IsZero() {
		elapsed := l.now().Sub(l.lastCall)
		if remaining := spacing - elapsed; remaining > 0 {
			if err := l.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}
	l.lastCall = l.now()
	return nil
}

// WaitExtra inserts a one-off additional delay, used between the parts of a
// split payout.
func (l *Limiter) WaitExtra(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return l.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
