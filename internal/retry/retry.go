// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package retry provides a bounded retry policy applied around external
// collaborator calls. The policy is a value object so retry behavior is
// unit-testable with an injected sleeper.
package retry

import (
	"context"
	"time"
)

// Sleeper abstracts the delay between attempts for tests.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy bounds retries for one collaborator call.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry; doubles each attempt.
	BaseDelay time.Duration

	// MaxDelay caps the per-attempt delay.
	MaxDelay time.Duration

	// sleep waits between attempts; defaults to a context-aware timer.
	sleep Sleeper
}

// Default is the policy used for collaborator calls unless overridden.
var Default = Policy{MaxAttempts: 3, BaseDelay: 50 * time.Millisecond, MaxDelay: 500 * time.Millisecond}

// WithSleeper returns a copy of the policy using the given sleeper.
func (p Policy) WithSleeper(s Sleeper) Policy {
	p.sleep = s
	return p
}

// Delay returns the backoff delay before retry attempt n (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn up to MaxAttempts times, backing off between attempts. The last
// error is returned when all attempts fail; a context cancellation stops
// retrying immediately.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < attempts {
			if err := sleep(ctx, p.Delay(attempt)); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
