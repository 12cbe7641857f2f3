// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veritaslabs/claimgate/internal/claim"
)

// Searcher finds indexed chunks near a query vector.
type Searcher interface {
	Search(ctx context.Context, vec []float32, limit int, threshold float64) ([]claim.Match, error)
	Ping(ctx context.Context) error
}

// PostgresSearcher runs cosine similarity search against the pgvector index.
type PostgresSearcher struct {
	pool *pgxpool.Pool
}

// NewPostgresSearcher wraps an existing pool. The pool is shared with the
// persistence layer; search issues read-only queries.
func NewPostgresSearcher(pool *pgxpool.Pool) *PostgresSearcher {
	return &PostgresSearcher{pool: pool}
}

const searchQuery = `
SELECT sd.doc_id, sd.cid, sd.title, dc.content, dc.chunk_index,
       1 - (dc.embedding <=> $1::vector) AS similarity
FROM document_chunks dc
JOIN source_documents sd ON dc.document_id = sd.id
WHERE 1 - (dc.embedding <=> $1::vector) >= $2
ORDER BY dc.embedding <=> $1::vector
LIMIT $3`

// vectorLiteral renders vec in pgvector's input format.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec) * 10)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func (s *PostgresSearcher) Search(ctx context.Context, vec []float32, limit int, threshold float64) ([]claim.Match, error) {
	rows, err := s.pool.Query(ctx, searchQuery, vectorLiteral(vec), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var matches []claim.Match
	for rows.Next() {
		var m claim.Match
		if err := rows.Scan(&m.DocID, &m.CID, &m.Title, &m.Content, &m.ChunkIndex, &m.Similarity); err != nil {
			return nil, fmt.Errorf("similarity search scan: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return matches, nil
}

func (s *PostgresSearcher) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
