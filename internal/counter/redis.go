// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a shared Redis instance so rate and quota
// accounting stays accurate across server replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment runs INCR and a create-only EXPIRE in one pipeline so the window
// boundary is set exactly once per key.
func (s *RedisStore) Increment(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("counter: redis increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Decrement floors at zero; a negative counter would report phantom headroom.
func (s *RedisStore) Decrement(ctx context.Context, key string) error {
	val, err := s.client.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("counter: redis decrement %s: %w", key, err)
	}
	if val < 0 {
		_ = s.client.Set(ctx, key, 0, redis.KeepTTL).Err()
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counter: redis get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
