// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package counter provides the shared atomic counter store used for rate and
// quota accounting. Two implementations exist: a Redis-backed store shared
// across instances, and a process-local approximate store used as an explicit
// fallback when the shared store is unreachable.
package counter

import (
	"context"
	"time"
)

// Store is the atomic increment-with-expiry capability consumed by the
// admission controller. Increment-and-compare against a store must be a
// single atomic operation to avoid over-admission under concurrent callers.
type Store interface {
	// Increment atomically increments key and returns the new count. The
	// expiry is applied when the key is first created in its window.
	Increment(ctx context.Context, key string, expiry time.Duration) (int64, error)

	// Decrement atomically decrements key, flooring at zero. Used to return
	// a quota unit when an increment overshot the limit.
	Decrement(ctx context.Context, key string) error

	// Get returns the current count for key, zero when absent or expired.
	Get(ctx context.Context, key string) (int64, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
