// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/veritaslabs/claimgate/internal/apperr"
)

// SQLiteStore is the single-node persistence backend. Doc ids are stored as
// a JSON array since SQLite has no array type.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database file and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// SQLite serializes writers; one connection avoids lock contention.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newSQLiteStoreWithDB is the seam for sqlmock-backed tests.
func newSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS verification_requests (
    id TEXT PRIMARY KEY,
    claim_text TEXT NOT NULL,
    confidence REAL,
    status TEXT NOT NULL,
    doc_ids TEXT NOT NULL DEFAULT '[]',
    source TEXT,
    extension_version TEXT,
    processing_time_ms INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verification_requests_created_at
    ON verification_requests (created_at DESC)`)
	if err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveVerification(ctx context.Context, rec *Record) error {
	docIDs, err := json.Marshal(rec.DocIDs)
	if err != nil {
		return apperr.Database(err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO verification_requests
    (id, claim_text, confidence, status, doc_ids, source, extension_version, processing_time_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ClaimText, rec.Confidence, rec.Status, string(docIDs),
		rec.Source, rec.ExtensionVersion, rec.ProcessingTimeMS, rec.CreatedAt)
	if err != nil {
		return apperr.Database(err)
	}
	return nil
}

func (s *SQLiteStore) RecentVerifications(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, claim_text, confidence, status, doc_ids, source, extension_version, processing_time_ms, created_at
FROM verification_requests
ORDER BY created_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		var docIDs string
		if err := rows.Scan(&r.ID, &r.ClaimText, &r.Confidence, &r.Status, &docIDs,
			&r.Source, &r.ExtensionVersion, &r.ProcessingTimeMS, &r.CreatedAt); err != nil {
			return nil, apperr.Database(err)
		}
		if err := json.Unmarshal([]byte(docIDs), &r.DocIDs); err != nil {
			r.DocIDs = nil
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Database(err)
	}
	return recs, nil
}

func (s *SQLiteStore) AnalyticsSummary(ctx context.Context, since time.Time) (*Summary, error) {
	sum := &Summary{Since: since}

	err := s.db.QueryRowContext(ctx, `
SELECT count(*), coalesce(avg(processing_time_ms), 0), avg(confidence)
FROM verification_requests
WHERE created_at >= ?`, since).Scan(&sum.Total, &sum.AvgProcessingMS, &sum.AvgConfidence)
	if err != nil {
		return nil, apperr.Database(err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT status, count(*)
FROM verification_requests
WHERE created_at >= ?
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

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}
