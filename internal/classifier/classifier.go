// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package classifier maps a retrieval confidence score and ranked candidate
// matches to a verification status and an ordered citation list. It is pure
// and deterministic: the same inputs always produce the same output, with no
// collaborators and no side effects.
package classifier

import (
	"sort"

	"github.com/veritaslabs/claimgate/internal/claim"
)

const (
	// VerifiedThreshold is the inclusive lower bound for VERIFIED.
	VerifiedThreshold = 0.8

	// UnverifiedThreshold is the inclusive lower bound for UNVERIFIED.
	UnverifiedThreshold = 0.5

	// DefaultMaxCitations caps the citation list per result.
	DefaultMaxCitations = 5
)

// Classifier holds the configurable citation cap. Thresholds are fixed.
type Classifier struct {
	maxCitations int
}

// New creates a classifier with the given citation cap; values <= 0 fall back
// to DefaultMaxCitations.
func New(maxCitations int) *Classifier {
	if maxCitations <= 0 {
		maxCitations = DefaultMaxCitations
	}
	return &Classifier{maxCitations: maxCitations}
}

// StatusFor maps a confidence score to its status band.
func StatusFor(confidence float64) claim.Status {
	switch {
	case confidence >= VerifiedThreshold:
		return claim.StatusVerified
	case confidence >= UnverifiedThreshold:
		return claim.StatusUnverified
	default:
		return claim.StatusUnknown
	}
}

// Classify produces the status for confidence and assembles citations from
// matches: sorted by similarity descending, ties broken by document id
// ascending, duplicate document ids removed, capped at the configured limit.
func (c *Classifier) Classify(confidence float64, matches []claim.Match) (claim.Status, []claim.Citation) {
	return StatusFor(confidence), c.Citations(matches)
}

// Citations assembles the ordered, deduplicated citation list from matches.
func (c *Classifier) Citations(matches []claim.Match) []claim.Citation {
	ranked := make([]claim.Match, len(matches))
	copy(ranked, matches)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		return ranked[i].DocID < ranked[j].DocID
	})

	citations := make([]claim.Citation, 0, c.maxCitations)
	seen := make(map[string]struct{}, len(ranked))
	for _, m := range ranked {
		if _, dup := seen[m.DocID]; dup {
			continue
		}
		seen[m.DocID] = struct{}{}
		citations = append(citations, claim.Citation{
			DocID:      m.DocID,
			CID:        m.CID,
			Title:      m.Title,
			Snippet:    m.Content,
			Similarity: m.Similarity,
		})
		if len(citations) >= c.maxCitations {
			break
		}
	}
	return citations
}
