// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package orchestrator drives one claim through the verification pipeline:
// result cache, evidence retrieval, confidence classification, then cache
// and analytics writes. Identical claims arriving concurrently share one
// pipeline execution.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/veritaslabs/claimgate/internal/cache"
	"github.com/veritaslabs/claimgate/internal/claim"
	"github.com/veritaslabs/claimgate/internal/classifier"
	"github.com/veritaslabs/claimgate/internal/fallback"
	"github.com/veritaslabs/claimgate/internal/metrics"
	"github.com/veritaslabs/claimgate/internal/persistence"
)

// Retriever is the evidence stage.
type Retriever interface {
	Retrieve(ctx context.Context, fingerprint, text string) ([]claim.Match, error)
}

// FallbackClassifier judges low-confidence claims with a language model.
type FallbackClassifier interface {
	Classify(ctx context.Context, claimText string, matches []claim.Match) (fallback.Verdict, error)
}

// SnippetStore hydrates citation snippets whose indexed content is missing.
type SnippetStore interface {
	Snippet(ctx context.Context, cid string) (string, error)
}

// Options carries the optional collaborators and tuning knobs.
type Options struct {
	// Fallback is consulted when the top similarity is below SimilarityFloor.
	// Nil disables the fallback stage.
	Fallback        FallbackClassifier
	SimilarityFloor float64

	// Store receives analytics records. Nil disables persistence.
	Store persistence.Store

	// Snippets fills empty citation snippets. Nil leaves them empty.
	Snippets SnippetStore

	// Timeout bounds one pipeline execution end to end.
	Timeout time.Duration

	// ResultTTL stamps ExpiresAt on results and bounds the cache entry.
	ResultTTL time.Duration
}

// flight is one in-progress pipeline execution shared by every caller that
// asked for the same fingerprint while it ran.
type flight struct {
	done   chan struct{}
	result *claim.Result
	err    error
}

// Orchestrator owns the pipeline and the in-flight table.
type Orchestrator struct {
	cache      *cache.ResultCache
	retriever  Retriever
	classifier *classifier.Classifier
	metrics    *metrics.Metrics
	opts       Options

	mu       sync.Mutex
	inflight map[string]*flight
}

// New wires the pipeline.
func New(rc *cache.ResultCache, retriever Retriever, cls *classifier.Classifier, m *metrics.Metrics, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Millisecond
	}
	return &Orchestrator{
		cache:      rc,
		retriever:  retriever,
		classifier: cls,
		metrics:    m,
		opts:       opts,
		inflight:   make(map[string]*flight),
	}
}

// Verify resolves one claim. The returned bool reports whether the result
// came from the cache. The caller's context only governs how long the caller
// waits: once a pipeline execution starts it runs to completion on its own
// deadline, so every coalesced waiter and the cache still get the result if
// one caller disconnects.
func (o *Orchestrator) Verify(ctx context.Context, req *claim.Request) (*claim.Result, bool, error) {
	fingerprint := claim.Fingerprint(req.ClaimText)

	if res, ok := o.cache.GetResult(ctx, fingerprint); ok {
		o.metrics.CacheHits.Inc()
		return res, true, nil
	}
	o.metrics.CacheMisses.Inc()

	o.mu.Lock()
	f, running := o.inflight[fingerprint]
	if !running {
		f = &flight{done: make(chan struct{})}
		o.inflight[fingerprint] = f
	}
	o.mu.Unlock()

	if running {
		o.metrics.Coalesced.Inc()
	} else {
		go o.run(context.WithoutCancel(ctx), fingerprint, req, f)
	}

	select {
	case <-f.done:
		return f.result, false, f.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// run executes the pipeline once and publishes the outcome to the flight.
func (o *Orchestrator) run(ctx context.Context, fingerprint string, req *claim.Request, f *flight) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	start := time.Now()
	res, err := o.execute(ctx, fingerprint, req)
	elapsed := time.Since(start)
	o.metrics.PipelineDuration.Observe(elapsed.Seconds())

	f.result, f.err = res, err

	status := claim.StatusError
	if err == nil {
		status = res.Status
		// Only settled outcomes are cached; errors must retry next time. The
		// write happens before the flight is retired so a caller arriving in
		// between finds one or the other, and runs on its own deadline so an
		// execution that spent its whole budget still lands in the cache.
		wctx, wcancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		o.cache.SetResult(wctx, fingerprint, res)
		wcancel()
	}

	o.mu.Lock()
	delete(o.inflight, fingerprint)
	o.mu.Unlock()
	close(f.done)

	o.metrics.Verifications.WithLabelValues(string(status)).Inc()

	o.persist(ctx, req, res, status, elapsed)
}

// execute is the pipeline body: retrieve, classify, maybe escalate.
func (o *Orchestrator) execute(ctx context.Context, fingerprint string, req *claim.Request) (*claim.Result, error) {
	matches, err := o.retriever.Retrieve(ctx, fingerprint, req.ClaimText)
	if err != nil {
		return nil, err
	}

	res := &claim.Result{ComputedAt: time.Now().UTC()}
	if o.opts.ResultTTL > 0 {
		res.ExpiresAt = res.ComputedAt.Add(o.opts.ResultTTL)
	}

	var confidence *float64
	if len(matches) > 0 {
		top := matches[0].Similarity
		for _, m := range matches[1:] {
			if m.Similarity > top {
				top = m.Similarity
			}
		}
		confidence = &top
	}

	if confidence == nil {
		res.Status = claim.StatusUnknown
	} else {
		res.Status, res.Citations = o.classifier.Classify(*confidence, matches)
		res.Confidence = confidence
	}

	if o.opts.Fallback != nil && (confidence == nil || *confidence < o.opts.SimilarityFloor) {
		o.escalate(ctx, req.ClaimText, matches, res)
	}

	o.hydrateSnippets(ctx, res.Citations)
	return res, nil
}

// escalate consults the fallback model. Its confidence estimate replaces the
// similarity score and maps to a status through the same bands, so the model
// cannot claim a status its confidence does not support. A fallback failure
// leaves the similarity verdict standing.
func (o *Orchestrator) escalate(ctx context.Context, claimText string, matches []claim.Match, res *claim.Result) {
	o.metrics.FallbackCalls.Inc()
	verdict, err := o.opts.Fallback.Classify(ctx, claimText, matches)
	if err != nil {
		log.Warnf("Fallback classification failed, keeping similarity verdict: %v", err)
		return
	}
	res.Status = classifier.StatusFor(verdict.Confidence)
	conf := verdict.Confidence
	res.Confidence = &conf
}

// hydrateSnippets fills empty snippets from the content store, best effort.
func (o *Orchestrator) hydrateSnippets(ctx context.Context, citations []claim.Citation) {
	if o.opts.Snippets == nil {
		return
	}
	for i := range citations {
		if citations[i].Snippet != "" || citations[i].CID == "" {
			continue
		}
		snippet, err := o.opts.Snippets.Snippet(ctx, citations[i].CID)
		if err != nil {
			log.Debugf("Snippet hydration failed for %s: %v", citations[i].CID, err)
			continue
		}
		citations[i].Snippet = snippet
	}
}

// persist writes the analytics record, best effort. It runs on its own
// deadline so a pipeline that spent its whole budget still gets recorded.
func (o *Orchestrator) persist(ctx context.Context, req *claim.Request, res *claim.Result, status claim.Status, elapsed time.Duration) {
	if o.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	rec := &persistence.Record{
		ID:               uuid.NewString(),
		ClaimText:        req.ClaimText,
		Status:           string(status),
		Source:           req.Source,
		ExtensionVersion: req.ExtensionVersion,
		ProcessingTimeMS: elapsed.Milliseconds(),
		CreatedAt:        time.Now().UTC(),
	}
	if res != nil {
		rec.Confidence = res.Confidence
		for _, c := range res.Citations {
			rec.DocIDs = append(rec.DocIDs, c.DocID)
		}
	}
	if err := o.opts.Store.SaveVerification(ctx, rec); err != nil {
		log.Warnf("Analytics write failed: %v", err)
	}
}
