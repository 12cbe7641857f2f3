// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package counter

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalStore implements Store with a process-local TTL cache. Counts are
// approximate across a fleet: each replica admits up to the full limit, so
// cross-instance accuracy is reduced. It exists so limiting keeps working
// when the shared store is unreachable, never to replace it.
type LocalStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewLocalStore creates a local counter store; expired windows are swept
// every cleanupInterval.
func NewLocalStore(cleanupInterval time.Duration) *LocalStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	return &LocalStore{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (s *LocalStore) Increment(_ context.Context, key string, expiry time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Add is a no-op when the key already exists in its window.
	_ = s.cache.Add(key, int64(0), expiry)
	val, err := s.cache.IncrementInt64(key, 1)
	if err != nil {
		// The entry expired between Add and Increment; restart the window.
		s.cache.Set(key, int64(1), expiry)
		return 1, nil
	}
	return val, nil
}

func (s *LocalStore) Decrement(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, err := s.cache.DecrementInt64(key, 1)
	if err != nil {
		return nil
	}
	if val < 0 {
		if _, expiry, ok := s.cache.GetWithExpiration(key); ok {
			s.cache.Set(key, int64(0), time.Until(expiry))
		}
	}
	return nil
}

func (s *LocalStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if val, ok := s.cache.Get(key); ok {
		if count, isInt := val.(int64); isInt {
			return count, nil
		}
	}
	return 0, nil
}

// Ping always succeeds: the local store lives in process memory.
func (s *LocalStore) Ping(_ context.Context) error {
	return nil
}
