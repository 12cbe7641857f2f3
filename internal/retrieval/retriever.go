// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package retrieval

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/veritaslabs/claimgate/internal/apperr"
	"github.com/veritaslabs/claimgate/internal/cache"
	"github.com/veritaslabs/claimgate/internal/claim"
	"github.com/veritaslabs/claimgate/internal/retry"
)

// Retriever runs the embed-then-search stage of the pipeline. Embeddings are
// cached by claim fingerprint; search results are not, the verification
// cache above this layer covers them.
type Retriever struct {
	embedder  Embedder
	searcher  Searcher
	cache     *cache.ResultCache
	policy    retry.Policy
	limit     int
	threshold float64
}

// NewRetriever wires the stage. limit and threshold bound the similarity
// search.
func NewRetriever(embedder Embedder, searcher Searcher, rc *cache.ResultCache, policy retry.Policy, limit int, threshold float64) *Retriever {
	return &Retriever{
		embedder:  embedder,
		searcher:  searcher,
		cache:     rc,
		policy:    policy,
		limit:     limit,
		threshold: threshold,
	}
}

// Retrieve finds evidence for the claim. Failures come back as taxonomy
// errors naming the collaborator that failed.
func (r *Retriever) Retrieve(ctx context.Context, fingerprint, text string) ([]claim.Match, error) {
	vec, ok := r.cache.GetEmbedding(ctx, fingerprint)
	if !ok {
		err := r.policy.Do(ctx, func(ctx context.Context) error {
			var err error
			vec, err = r.embedder.Embed(ctx, text)
			return err
		})
		if err != nil {
			return nil, apperr.External("embedding", err)
		}
		r.cache.SetEmbedding(ctx, fingerprint, vec)
	} else {
		log.Debugf("Embedding cache hit for %s", fingerprint)
	}

	var matches []claim.Match
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		matches, err = r.searcher.Search(ctx, vec, r.limit, r.threshold)
		return err
	})
	if err != nil {
		return nil, apperr.External("search", err)
	}
	return matches, nil
}

// Ping probes the search backend for health reporting.
func (r *Retriever) Ping(ctx context.Context) error {
	return r.searcher.Ping(ctx)
}
