// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package persistence records completed verifications for analytics. Writes
// are best-effort from the pipeline's point of view: a failed insert is
// logged and the response still goes out.
package persistence

import (
	"context"
	"time"
)

// Record is one completed verification request.
type Record struct {
	ID               string    `json:"id"`
	ClaimText        string    `json:"claim_text"`
	Confidence       *float64  `json:"confidence"`
	Status           string    `json:"status"`
	DocIDs           []string  `json:"doc_ids"`
	Source           string    `json:"source"`
	ExtensionVersion string    `json:"extension_version"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// StatusCount is one row of the per-status breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Summary aggregates verification traffic since a point in time.
type Summary struct {
	Since           time.Time     `json:"since"`
	Total           int64         `json:"total"`
	ByStatus        []StatusCount `json:"by_status"`
	AvgProcessingMS float64       `json:"avg_processing_time_ms"`
	AvgConfidence   *float64      `json:"avg_confidence"`
}

// Store persists and reports verification records.
type Store interface {
	SaveVerification(ctx context.Context, rec *Record) error
	RecentVerifications(ctx context.Context, limit int) ([]Record, error)
	AnalyticsSummary(ctx context.Context, since time.Time) (*Summary, error)
	Ping(ctx context.Context) error
	Close()
}
