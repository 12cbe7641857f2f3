// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/veritaslabs/claimgate/internal/claim"
)

// Cache namespaces. Each key is "<namespace><suffix>", so a whole class of
// entries can be invalidated without touching the others.
const (
	NamespaceVerification = "verification:"
	NamespaceEmbedding    = "embeddings:"
	NamespaceAPIKey       = "apikey:"
)

// TTLs configures per-namespace retention.
type TTLs struct {
	Verification time.Duration
	Embedding    time.Duration
	APIKey       time.Duration
}

// envelope wraps every stored value with its own expiry. The backend TTL is
// the primary eviction mechanism; the envelope is the read-side check that
// catches entries a backend failed to expire.
type envelope struct {
	Payload   json.RawMessage `json:"payload"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Stats is a point-in-time snapshot of cache traffic since process start.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Sets     int64 `json:"sets"`
	Errors   int64 `json:"errors"`
	Evicted  int64 `json:"evicted_stale"`
	Disabled bool  `json:"disabled"`
}

// HitRate is hits over lookups, zero when nothing was looked up.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ResultCache is the namespaced cache shared by admission, retrieval, and
// the verification pipeline. A nil KV disables it: every read misses and
// every write is dropped.
type ResultCache struct {
	kv   KV
	ttls TTLs
	now  func() time.Time

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	errors  atomic.Int64
	evicted atomic.Int64
}

// New builds a ResultCache over kv. Pass nil kv to run with caching disabled.
func New(kv KV, ttls TTLs) *ResultCache {
	return &ResultCache{kv: kv, ttls: ttls, now: time.Now}
}

// Enabled reports whether a backend is attached.
func (c *ResultCache) Enabled() bool {
	return c.kv != nil
}

// get loads and unwraps one envelope. Stale entries are deleted and reported
// as misses. Backend errors are logged and reported as misses.
func (c *ResultCache) get(ctx context.Context, key string, out any) bool {
	if c.kv == nil {
		c.misses.Add(1)
		return false
	}
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.errors.Add(1)
		c.misses.Add(1)
		log.Debugf("Cache read failed for %s: %v", key, err)
		return false
	}
	if !ok {
		c.misses.Add(1)
		return false
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.errors.Add(1)
		c.misses.Add(1)
		_ = c.kv.Delete(ctx, key)
		return false
	}
	if !c.now().Before(env.ExpiresAt) {
		c.evicted.Add(1)
		c.misses.Add(1)
		_ = c.kv.Delete(ctx, key)
		return false
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		c.errors.Add(1)
		c.misses.Add(1)
		_ = c.kv.Delete(ctx, key)
		return false
	}
	c.hits.Add(1)
	return true
}

// set stores one envelope. Write failures are logged, never surfaced.
func (c *ResultCache) set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.kv == nil || ttl <= 0 {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.errors.Add(1)
		return
	}
	raw, err := json.Marshal(envelope{Payload: payload, ExpiresAt: c.now().Add(ttl)})
	if err != nil {
		c.errors.Add(1)
		return
	}
	if err := c.kv.Set(ctx, key, string(raw), ttl); err != nil {
		c.errors.Add(1)
		log.Debugf("Cache write failed for %s: %v", key, err)
		return
	}
	c.sets.Add(1)
}

// GetResult looks up a completed verification by claim fingerprint.
func (c *ResultCache) GetResult(ctx context.Context, fingerprint string) (*claim.Result, bool) {
	var res claim.Result
	if !c.get(ctx, NamespaceVerification+fingerprint, &res) {
		return nil, false
	}
	return &res, true
}

// SetResult stores a completed verification under the claim fingerprint.
func (c *ResultCache) SetResult(ctx context.Context, fingerprint string, res *claim.Result) {
	c.set(ctx, NamespaceVerification+fingerprint, res, c.ttls.Verification)
}

// GetEmbedding looks up a cached embedding vector by claim fingerprint.
func (c *ResultCache) GetEmbedding(ctx context.Context, fingerprint string) ([]float32, bool) {
	var vec []float32
	if !c.get(ctx, NamespaceEmbedding+fingerprint, &vec) {
		return nil, false
	}
	return vec, true
}

// SetEmbedding stores an embedding vector under the claim fingerprint.
func (c *ResultCache) SetEmbedding(ctx context.Context, fingerprint string, vec []float32) {
	c.set(ctx, NamespaceEmbedding+fingerprint, vec, c.ttls.Embedding)
}

// GetCredential looks up a verified principal id by token digest. Only
// successful verifications are ever stored here.
func (c *ResultCache) GetCredential(ctx context.Context, tokenDigest string) (string, bool) {
	var id string
	if !c.get(ctx, NamespaceAPIKey+tokenDigest, &id) {
		return "", false
	}
	return id, true
}

// SetCredential records a successful credential verification.
func (c *ResultCache) SetCredential(ctx context.Context, tokenDigest, principalID string) {
	c.set(ctx, NamespaceAPIKey+tokenDigest, principalID, c.ttls.APIKey)
}

// InvalidateResult drops one verification entry.
func (c *ResultCache) InvalidateResult(ctx context.Context, fingerprint string) error {
	if c.kv == nil {
		return nil
	}
	return c.kv.Delete(ctx, NamespaceVerification+fingerprint)
}

// InvalidateCredential drops one cached credential verification.
func (c *ResultCache) InvalidateCredential(ctx context.Context, tokenDigest string) error {
	if c.kv == nil {
		return nil
	}
	return c.kv.Delete(ctx, NamespaceAPIKey+tokenDigest)
}

// InvalidateNamespace drops every entry under one namespace and reports how
// many were removed.
func (c *ResultCache) InvalidateNamespace(ctx context.Context, namespace string) (int64, error) {
	if c.kv == nil {
		return 0, nil
	}
	return c.kv.DeletePrefix(ctx, namespace)
}

// InvalidateAll drops every entry in every namespace.
func (c *ResultCache) InvalidateAll(ctx context.Context) (int64, error) {
	var dropped int64
	for _, ns := range []string{NamespaceVerification, NamespaceEmbedding, NamespaceAPIKey} {
		n, err := c.InvalidateNamespace(ctx, ns)
		dropped += n
		if err != nil {
			return dropped, err
		}
	}
	return dropped, nil
}

// Ping probes the backend. A disabled cache reports healthy.
func (c *ResultCache) Ping(ctx context.Context) error {
	if c.kv == nil {
		return nil
	}
	return c.kv.Ping(ctx)
}

// Stats snapshots traffic counters.
func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Sets:     c.sets.Load(),
		Errors:   c.errors.Load(),
		Evicted:  c.evicted.Load(),
		Disabled: c.kv == nil,
	}
}

// Usage is the operator-facing cache snapshot: backend connectivity, stored
// entry counts per namespace, and the traffic counters since process start.
type Usage struct {
	Connected    bool             `json:"connected"`
	TotalEntries int64            `json:"total_entries"`
	Namespaces   map[string]int64 `json:"namespaces"`
	Traffic      Stats            `json:"traffic"`
}

// Usage counts entries per namespace. Count failures leave the namespace at
// zero and mark the cache disconnected.
func (c *ResultCache) Usage(ctx context.Context) Usage {
	u := Usage{
		Connected:  c.kv != nil,
		Namespaces: map[string]int64{"verification": 0, "embeddings": 0, "apikey": 0},
		Traffic:    c.Stats(),
	}
	if c.kv == nil {
		return u
	}
	if err := c.kv.Ping(ctx); err != nil {
		u.Connected = false
		return u
	}
	for name, prefix := range map[string]string{
		"verification": NamespaceVerification,
		"embeddings":   NamespaceEmbedding,
		"apikey":       NamespaceAPIKey,
	} {
		n, err := c.kv.CountPrefix(ctx, prefix)
		if err != nil {
			u.Connected = false
			continue
		}
		u.Namespaces[name] = n
		u.TotalEntries += n
	}
	return u
}
