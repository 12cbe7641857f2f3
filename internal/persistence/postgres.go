// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritaslabs/claimgate/internal/apperr"
)

// PostgresStore persists records in the verification_requests table. It
// shares its pool with the retrieval searcher.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Pool exposes the underlying pool for the retrieval searcher.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS verification_requests (
    id UUID PRIMARY KEY,
    claim_text TEXT NOT NULL,
    confidence DOUBLE PRECISION,
    status TEXT NOT NULL,
    doc_ids TEXT[] NOT NULL DEFAULT '{}',
    source TEXT,
    extension_version TEXT,
    processing_time_ms BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_verification_requests_created_at
    ON verification_requests (created_at DESC)`)
	if err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveVerification(ctx context.Context, rec *Record) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO verification_requests
    (id, claim_text, confidence, status, doc_ids, source, extension_version, processing_time_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.ClaimText, rec.Confidence, rec.Status, rec.DocIDs,
		rec.Source, rec.ExtensionVersion, rec.ProcessingTimeMS, rec.CreatedAt)
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

func (s *PostgresStore) RecentVerifications(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, claim_text, confidence, status, doc_ids, source, extension_version, processing_time_ms, created_at
FROM verification_requests
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.ClaimText, &r.Confidence, &r.Status, &r.DocIDs,
			&r.Source, &r.ExtensionVersion, &r.ProcessingTimeMS, &r.CreatedAt); err != nil {
			return nil, apperr.Database(err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database(err)
	}
	return recs, nil
}

func (s *PostgresStore) AnalyticsSummary(ctx context.Context, since time.Time) (*Summary, error) {
	sum := &Summary{Since: since}

	err := s.pool.QueryRow(ctx, `
SELECT count(*), coalesce(avg(processing_time_ms), 0), avg(confidence)
FROM verification_requests
WHERE created_at >= $1`, since).Scan(&sum.Total, &sum.AvgProcessingMS, &sum.AvgConfidence)
	if err != nil {
		return nil, apperr.Database(err)
	}

	rows, err := s.pool.Query(ctx, `
SELECT status, count(*)
FROM verification_requests
WHERE created_at >= $1
GROUP BY status
ORDER BY count(*) DESC`, since)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, apperr.Database(err)
		}
		sum.ByStatus = append(sum.ByStatus, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database(err)
	}
	return sum, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
