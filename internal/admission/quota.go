// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package admission

import (
	"context"
	"fmt"
	"time"
)

// Quota period retention. Keys expire well after their period closes so a
// late read near a boundary still finds the count.
const (
	dailyKeyTTL   = 48 * time.Hour
	monthlyKeyTTL = 35 * 24 * time.Hour
)

// QuotaDecision is the outcome of one quota check. Usage reflects the count
// after this request was taken, or the standing count when rejected.
type QuotaDecision struct {
	Allowed bool
	// ExceededKind is "daily" or "monthly" when rejected.
	ExceededKind string
	// ResetAt is the calendar boundary at which the exhausted period
	// reopens. Zero when allowed.
	ResetAt      time.Time
	DailyUsed    int64
	DailyLimit   int
	MonthlyUsed  int64
	MonthlyLimit int
}

// QuotaManager tracks per-principal daily and monthly allowances over the
// shared counter store. Periods are calendar-aligned in UTC.
type QuotaManager struct {
	counters *failoverStore
	now      func() time.Time
}

// NewQuotaManager builds a manager over the given counters.
func NewQuotaManager(counters *failoverStore) *QuotaManager {
	return &QuotaManager{counters: counters, now: time.Now}
}

// nextDay is the upcoming UTC midnight after t.
func nextDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// nextMonth is the first instant of the UTC month after t.
func nextMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

func dailyKey(principalID string, t time.Time) string {
	return fmt.Sprintf("quota:%s:day:%s", principalID, t.UTC().Format("2006-01-02"))
}

func monthlyKey(principalID string, t time.Time) string {
	return fmt.Sprintf("quota:%s:month:%s", principalID, t.UTC().Format("2006-01"))
}

// Consume takes one unit from both allowances atomically enough for
// admission: an increment that lands over the ceiling is handed back, so a
// rejected request does not burn quota.
func (q *QuotaManager) Consume(ctx context.Context, principalID string, dailyLimit, monthlyLimit int) QuotaDecision {
	now := q.now()
	dKey := dailyKey(principalID, now)
	mKey := monthlyKey(principalID, now)

	d := QuotaDecision{DailyLimit: dailyLimit, MonthlyLimit: monthlyLimit}

	d.DailyUsed = q.counters.Increment(ctx, dKey, dailyKeyTTL)
	if d.DailyUsed > int64(dailyLimit) {
		q.counters.Decrement(ctx, dKey)
		d.DailyUsed--
		d.MonthlyUsed = q.counters.Get(ctx, mKey)
		d.ExceededKind = "daily"
		d.ResetAt = nextDay(now)
		return d
	}

	d.MonthlyUsed = q.counters.Increment(ctx, mKey, monthlyKeyTTL)
	if d.MonthlyUsed > int64(monthlyLimit) {
		q.counters.Decrement(ctx, mKey)
		q.counters.Decrement(ctx, dKey)
		d.MonthlyUsed--
		d.DailyUsed--
		d.ExceededKind = "monthly"
		d.ResetAt = nextMonth(now)
		return d
	}

	d.Allowed = true
	return d
}

// Refund hands back one unit from both allowances, used when an admitted
// request fails before any verification work happened.
func (q *QuotaManager) Refund(ctx context.Context, principalID string) {
	now := q.now()
	q.counters.Decrement(ctx, dailyKey(principalID, now))
	q.counters.Decrement(ctx, monthlyKey(principalID, now))
}

// Usage reads standing counts without consuming anything.
func (q *QuotaManager) Usage(ctx context.Context, principalID string) (daily, monthly int64) {
	now := q.now()
	return q.counters.Get(ctx, dailyKey(principalID, now)),
		q.counters.Get(ctx, monthlyKey(principalID, now))
}
