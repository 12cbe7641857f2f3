// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package admission

import (
	"context"
	"fmt"
	"time"
)

// RateDecision is the outcome of one fixed-window check, carried back to the
// transport layer for response headers whether or not the request passed.
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the current window closes.
	Reset time.Time
	// RetryAfter is the wait until the window closes, zero when allowed.
	RetryAfter time.Duration
}

// RateLimiter enforces a per-principal, per-client fixed window.
type RateLimiter struct {
	counters *failoverStore
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter builds a limiter over the given counters.
func NewRateLimiter(counters *failoverStore, window time.Duration) *RateLimiter {
	return &RateLimiter{counters: counters, window: window, now: time.Now}
}

// Check records one request against the principal's window and decides it.
// The count is taken before the comparison, so a rejected request still
// consumed its slot; fixed windows make that cheap to reason about.
func (l *RateLimiter) Check(ctx context.Context, principalID, clientKey string, limit int) RateDecision {
	now := l.now()
	windowStart := now.Truncate(l.window)
	reset := windowStart.Add(l.window)
	key := fmt.Sprintf("rate:%s:%s:%d", principalID, clientKey, windowStart.Unix())

	// TTL outlives the window slightly so a straggling read still sees it.
	n := l.counters.Increment(ctx, key, l.window+time.Second)

	d := RateDecision{Limit: limit, Reset: reset}
	if n > int64(limit) {
		d.RetryAfter = reset.Sub(now)
		if d.RetryAfter < time.Second {
			d.RetryAfter = time.Second
		}
		return d
	}
	d.Allowed = true
	d.Remaining = limit - int(n)
	return d
}
