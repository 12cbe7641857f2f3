// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache implements the namespaced result cache. Every lookup is an
// optimization: a miss, an error, or an unavailable backend all degrade to
// recomputation, never to a wrong answer.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// KV is the minimal key-value surface the result cache needs. Entries carry
// their own expiry envelope on top of the backend TTL, so a backend that
// returns a stale value is still caught on read.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key under the given prefix and reports how
	// many were dropped.
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	// CountPrefix reports how many keys live under the given prefix.
	CountPrefix(ctx context.Context, prefix string) (int64, error)
	Ping(ctx context.Context) error
}

// RedisKV backs the cache with a shared Redis instance.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps an existing client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisKV) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	var dropped int64
	iter := r.client.Scan(ctx, 0, prefix+"*", 200).Iterator()
	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			n, err := r.client.Del(ctx, batch...).Result()
			dropped += n
			if err != nil {
				return dropped, err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return dropped, err
	}
	if len(batch) > 0 {
		n, err := r.client.Del(ctx, batch...).Result()
		dropped += n
		if err != nil {
			return dropped, err
		}
	}
	return dropped, nil
}

func (r *RedisKV) CountPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	iter := r.client.Scan(ctx, 0, prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return count, err
	}
	return count, nil
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
