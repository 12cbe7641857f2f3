// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package admission

import (
	"context"
	"time"

	"github.com/veritaslabs/claimgate/internal/apperr"
	"github.com/veritaslabs/claimgate/internal/cache"
	"github.com/veritaslabs/claimgate/internal/config"
	"github.com/veritaslabs/claimgate/internal/counter"
)

// Admission is a successful pass through the gate: who the caller is and the
// accounting state the transport layer reports back in headers.
type Admission struct {
	Principal config.Principal
	Rate      RateDecision
	Quota     QuotaDecision
}

// Controller runs the full admission sequence: authenticate, rate limit,
// quota. Checks run in that order and the first rejection wins, so an
// over-quota caller with a bad key still learns about the key first.
type Controller struct {
	auth     *Authenticator
	limiter  *RateLimiter
	quota    *QuotaManager
	counters *failoverStore
}

// NewController wires the gate. shared may be nil to run on local counters
// only, which is approximate but never off.
func NewController(principals *config.Principals, rc *cache.ResultCache, shared counter.Store, cfg config.LimitsConfig) *Controller {
	counters := newFailoverStore(shared)
	window := time.Duration(cfg.WindowSeconds) * time.Second
	return &Controller{
		auth:     NewAuthenticator(principals, rc),
		limiter:  NewRateLimiter(counters, window),
		quota:    NewQuotaManager(counters),
		counters: counters,
	}
}

// Admit decides one request. On rejection the returned Admission still
// carries whatever accounting state was computed before the rejection, so
// 429 responses can include limit headers.
func (c *Controller) Admit(ctx context.Context, token, clientKey string) (*Admission, error) {
	principal, err := c.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	adm := &Admission{Principal: principal}

	adm.Rate = c.limiter.Check(ctx, principal.ID, clientKey, principal.RateLimit)
	if !adm.Rate.Allowed {
		return adm, apperr.RateLimited(int64(adm.Rate.RetryAfter.Seconds()))
	}

	adm.Quota = c.quota.Consume(ctx, principal.ID, principal.DailyQuota, principal.MonthlyQuota)
	if !adm.Quota.Allowed {
		return adm, apperr.QuotaExceeded(adm.Quota.ExceededKind, adm.Quota.ResetAt)
	}

	return adm, nil
}

// Refund hands back the quota consumed by an admitted request that failed
// before reaching the pipeline.
func (c *Controller) Refund(ctx context.Context, principalID string) {
	c.quota.Refund(ctx, principalID)
}

// Usage reads a principal's standing quota counts.
func (c *Controller) Usage(ctx context.Context, principalID string) (daily, monthly int64) {
	return c.quota.Usage(ctx, principalID)
}

// Degraded reports whether admission is running on local approximate counts.
func (c *Controller) Degraded() bool {
	return c.counters.Degraded()
}

// Ping probes the shared counter store for health reporting.
func (c *Controller) Ping(ctx context.Context) error {
	return c.counters.Ping(ctx)
}
