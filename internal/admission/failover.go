// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package admission

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/veritaslabs/claimgate/internal/counter"
)

// failoverStore fronts the shared counter store with a process-local
// fallback. While the shared store is unreachable every count is approximate
// and scoped to this process; limiting is never switched off.
type failoverStore struct {
	shared counter.Store
	local  counter.Store

	mu       sync.Mutex
	degraded bool
}

func newFailoverStore(shared counter.Store) *failoverStore {
	return &failoverStore{
		shared: shared,
		local:  counter.NewLocalStore(time.Minute),
	}
}

// Degraded reports whether the last shared-store call failed.
func (f *failoverStore) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

func (f *failoverStore) setDegraded(v bool) {
	f.mu.Lock()
	changed := f.degraded != v
	f.degraded = v
	f.mu.Unlock()
	if !changed {
		return
	}
	if v {
		log.Warn("Admission counters degraded to local approximate counting")
	} else {
		log.Info("Admission counters recovered shared store")
	}
}

// Increment bumps key, falling back to the local store on shared failure.
func (f *failoverStore) Increment(ctx context.Context, key string, ttl time.Duration) int64 {
	if f.shared != nil {
		n, err := f.shared.Increment(ctx, key, ttl)
		if err == nil {
			f.setDegraded(false)
			return n
		}
		f.setDegraded(true)
		log.Debugf("Shared counter increment failed for %s: %v", key, err)
	}
	n, err := f.local.Increment(ctx, key, ttl)
	if err != nil {
		// The local store cannot fail in practice. Fail open for one request
		// rather than refusing traffic on an accounting error.
		log.Errorf("Local counter increment failed for %s: %v", key, err)
		return 1
	}
	return n
}

// Decrement undoes an increment on whichever store last counted the key.
func (f *failoverStore) Decrement(ctx context.Context, key string) {
	store := f.local
	if f.shared != nil && !f.Degraded() {
		store = f.shared
	}
	if err := store.Decrement(ctx, key); err != nil {
		log.Debugf("Counter decrement failed for %s: %v", key, err)
	}
}

// Get reads a count for reporting, preferring the shared store.
func (f *failoverStore) Get(ctx context.Context, key string) int64 {
	if f.shared != nil {
		if n, err := f.shared.Get(ctx, key); err == nil {
			return n
		}
	}
	n, _ := f.local.Get(ctx, key)
	return n
}

// Ping probes the shared store. Nil shared reports healthy local operation.
func (f *failoverStore) Ping(ctx context.Context) error {
	if f.shared == nil {
		return nil
	}
	return f.shared.Ping(ctx)
}
