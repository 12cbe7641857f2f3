// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritaslabs/claimgate/internal/claim"
)

// fakeKV is an in-memory KV for tests. It honors TTLs only through the
// envelope check, which is the behavior under test.
type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
	failSet bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return "", false, assert.AnError
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return assert.AnError
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeKV) CountPrefix(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}

func (f *fakeKV) Ping(context.Context) error { return nil }

func testTTLs() TTLs {
	return TTLs{Verification: 5 * time.Minute, Embedding: time.Hour, APIKey: 5 * time.Minute}
}

func sampleResult() *claim.Result {
	conf := 0.92
	return &claim.Result{
		Status:     claim.StatusVerified,
		Confidence: &conf,
		Citations: []claim.Citation{
			{DocID: "doc-1", CID: "bafy1", Title: "Primary", Snippet: "...", Similarity: 0.92},
		},
		ComputedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestResultRoundTrip(t *testing.T) {
	c := New(newFakeKV(), testTTLs())
	ctx := context.Background()

	_, ok := c.GetResult(ctx, "fp1")
	assert.False(t, ok)

	want := sampleResult()
	c.SetResult(ctx, "fp1", want)

	got, ok := c.GetResult(ctx, "fp1")
	require.True(t, ok)
	assert.Equal(t, want.Status, got.Status)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, *want.Confidence, *got.Confidence, 1e-9)
	assert.Equal(t, want.Citations, got.Citations)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestStaleEntryEvictedOnRead(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, testTTLs())
	ctx := context.Background()

	c.SetResult(ctx, "fp1", sampleResult())

	// Move the clock past the envelope expiry. The backend still holds the
	// entry, so only the read-side check can catch it.
	c.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	_, ok := c.GetResult(ctx, "fp1")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evicted)

	kv.mu.Lock()
	_, stillThere := kv.data[NamespaceVerification+"fp1"]
	kv.mu.Unlock()
	assert.False(t, stillThere, "stale entry should be deleted")
}

func TestNamespacesAreIsolated(t *testing.T) {
	c := New(newFakeKV(), testTTLs())
	ctx := context.Background()

	c.SetResult(ctx, "shared", sampleResult())
	c.SetEmbedding(ctx, "shared", []float32{0.1, 0.2})
	c.SetCredential(ctx, "shared", "acme")

	dropped, err := c.InvalidateNamespace(ctx, NamespaceEmbedding)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dropped)

	_, ok := c.GetEmbedding(ctx, "shared")
	assert.False(t, ok)
	_, ok = c.GetResult(ctx, "shared")
	assert.True(t, ok)
	id, ok := c.GetCredential(ctx, "shared")
	assert.True(t, ok)
	assert.Equal(t, "acme", id)
}

func TestBackendErrorsDegradeToMiss(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, testTTLs())
	ctx := context.Background()

	kv.failSet = true
	c.SetResult(ctx, "fp1", sampleResult())

	kv.failSet = false
	kv.failGet = true
	_, ok := c.GetResult(ctx, "fp1")
	assert.False(t, ok)
	assert.Equal(t, int64(2), c.Stats().Errors)
}

func TestCorruptEntryDroppedOnRead(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, testTTLs())
	ctx := context.Background()

	kv.data[NamespaceVerification+"fp1"] = "{not json"
	_, ok := c.GetResult(ctx, "fp1")
	assert.False(t, ok)
	assert.Empty(t, kv.data)
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := New(nil, testTTLs())
	ctx := context.Background()

	assert.False(t, c.Enabled())
	c.SetResult(ctx, "fp1", sampleResult())
	_, ok := c.GetResult(ctx, "fp1")
	assert.False(t, ok)
	assert.NoError(t, c.Ping(ctx))
	assert.True(t, c.Stats().Disabled)
}

func TestUsageCountsPerNamespace(t *testing.T) {
	c := New(newFakeKV(), testTTLs())
	ctx := context.Background()

	c.SetResult(ctx, "fp1", sampleResult())
	c.SetResult(ctx, "fp2", sampleResult())
	c.SetEmbedding(ctx, "fp1", []float32{0.1})
	c.SetCredential(ctx, "digest", "acme")

	u := c.Usage(ctx)
	assert.True(t, u.Connected)
	assert.Equal(t, int64(4), u.TotalEntries)
	assert.Equal(t, int64(2), u.Namespaces["verification"])
	assert.Equal(t, int64(1), u.Namespaces["embeddings"])
	assert.Equal(t, int64(1), u.Namespaces["apikey"])

	disabled := New(nil, testTTLs()).Usage(ctx)
	assert.False(t, disabled.Connected)
	assert.Zero(t, disabled.TotalEntries)
}

func TestInvalidateAll(t *testing.T) {
	c := New(newFakeKV(), testTTLs())
	ctx := context.Background()

	c.SetResult(ctx, "fp1", sampleResult())
	c.SetEmbedding(ctx, "fp1", []float32{0.1})
	c.SetCredential(ctx, "digest", "acme")

	dropped, err := c.InvalidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), dropped)
	assert.Zero(t, c.Usage(ctx).TotalEntries)
}

func TestHitRate(t *testing.T) {
	assert.Zero(t, Stats{}.HitRate())
	assert.InDelta(t, 0.75, Stats{Hits: 3, Misses: 1}.HitRate(), 1e-9)
}
