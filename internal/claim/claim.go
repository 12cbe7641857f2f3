// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package claim defines the domain types shared across the verification
// pipeline: claims, fingerprints, candidate matches, citations, and results.
package claim

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/veritaslabs/claimgate/internal/apperr"
)

const (
	// MinClaimLength is the minimum accepted claim text length in bytes.
	MinClaimLength = 10

	// MaxClaimLength is the maximum accepted claim text length in bytes.
	MaxClaimLength = 10000
)

// Status is the verification outcome category.
type Status string

const (
	StatusVerified   Status = "VERIFIED"
	StatusUnverified Status = "UNVERIFIED"
	StatusUnknown    Status = "UNKNOWN"
	StatusError      Status = "ERROR"
)

// Request is a validated verification request.
type Request struct {
	ClaimText        string `json:"claim_text"`
	Source           string `json:"source,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
	ExtensionVersion string `json:"extension_version,omitempty"`
}

// Match is one ranked candidate returned by the retrieval collaborator.
type Match struct {
	DocID      string  `json:"doc_id"`
	CID        string  `json:"cid"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
}

// Citation is a ranked reference supporting a verification outcome.
// Within one result citations are sorted by similarity descending with
// duplicate document identifiers removed; ties break by DocID ascending.
type Citation struct {
	DocID      string  `json:"doc_id"`
	CID        string  `json:"cid"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Similarity float64 `json:"similarity"`
}

// Result is a computed verification outcome. Confidence fully determines
// Status for non-error results; an ERROR result carries no confidence.
type Result struct {
	Status     Status     `json:"status"`
	Confidence *float64   `json:"confidence,omitempty"`
	Citations  []Citation `json:"citations"`
	ComputedAt time.Time  `json:"computed_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Validate checks the request body constraints before any downstream work.
func (r *Request) Validate() error {
	text := strings.TrimSpace(r.ClaimText)
	if text == "" {
		return apperr.Validation("claim_text is required")
	}
	if len(text) < MinClaimLength {
		return apperr.Validation("claim_text must be at least 10 characters")
	}
	if len(text) > MaxClaimLength {
		return apperr.Validation("claim_text must be at most 10000 characters")
	}
	if r.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, r.Timestamp); err != nil {
			return apperr.Validation("timestamp must be RFC3339")
		}
	}
	return nil
}

// Normalize lowercases, trims, and collapses internal whitespace so that
// trivially different spellings of the same claim share a fingerprint.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Fingerprint returns the fixed-length digest of the normalized claim text.
// It is derived per request and never persisted independently of a result.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}
