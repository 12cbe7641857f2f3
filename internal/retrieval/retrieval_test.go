// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package retrieval

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritaslabs/claimgate/internal/apperr"
	"github.com/veritaslabs/claimgate/internal/cache"
	"github.com/veritaslabs/claimgate/internal/claim"
	"github.com/veritaslabs/claimgate/internal/retry"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: make(map[string]string)} }

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memKV) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memKV) CountPrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}

func (m *memKV) Ping(context.Context) error { return nil }

type stubEmbedder struct {
	calls    int
	failures int
	vec      []float32
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("connection reset")
	}
	return s.vec, nil
}

func (s *stubEmbedder) Ping(context.Context) error { return nil }

type stubSearcher struct {
	calls   int
	matches []claim.Match
	err     error
}

func (s *stubSearcher) Search(context.Context, []float32, int, float64) ([]claim.Match, error) {
	s.calls++
	return s.matches, s.err
}

func (s *stubSearcher) Ping(context.Context) error { return nil }

func instantPolicy() retry.Policy {
	return retry.Default.WithSleeper(func(context.Context, time.Duration) error { return nil })
}

func testCache() *cache.ResultCache {
	return cache.New(newMemKV(), cache.TTLs{Verification: 5 * time.Minute, Embedding: time.Hour, APIKey: 5 * time.Minute})
}

func TestHTTPEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "all-MiniLM-L6-v2", time.Second)
	vec, err := e.Embed(context.Background(), "the sky is blue")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestHTTPEmbedderErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewHTTPEmbedder(srv.URL, "", time.Second).Embed(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("empty vector", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"embeddings":[]}`))
		}))
		defer srv.Close()

		_, err := NewHTTPEmbedder(srv.URL, "", time.Second).Embed(context.Background(), "x")
		assert.Error(t, err)
	})
}

func TestHTTPEmbedderPing(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer srv.Close()

		assert.NoError(t, NewHTTPEmbedder(srv.URL, "", time.Second).Ping(context.Background()))
	})

	t.Run("sidecar down", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "loading", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		err := NewHTTPEmbedder(srv.URL, "", time.Second).Ping(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", vectorLiteral(nil))
	assert.Equal(t, "[0.5,-1,0.25]", vectorLiteral([]float32{0.5, -1, 0.25}))
}

func TestRetrieveCachesEmbedding(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{0.1, 0.2}}
	searcher := &stubSearcher{matches: []claim.Match{{DocID: "doc-1", Similarity: 0.9}}}
	r := NewRetriever(embedder, searcher, testCache(), instantPolicy(), 10, 0.3)
	ctx := context.Background()

	matches, err := r.Retrieve(ctx, "fp1", "the sky is blue")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, 1, embedder.calls)

	// Second retrieval reuses the cached vector.
	_, err = r.Retrieve(ctx, "fp1", "the sky is blue")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
	assert.Equal(t, 2, searcher.calls)
}

func TestRetrieveRetriesTransientEmbedFailure(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{0.1}, failures: 2}
	searcher := &stubSearcher{}
	r := NewRetriever(embedder, searcher, testCache(), instantPolicy(), 10, 0.3)

	_, err := r.Retrieve(context.Background(), "fp1", "claim text here")
	require.NoError(t, err)
	assert.Equal(t, 3, embedder.calls)
}

func TestRetrieveFailureCodes(t *testing.T) {
	t.Run("embedder down", func(t *testing.T) {
		embedder := &stubEmbedder{failures: 100}
		r := NewRetriever(embedder, &stubSearcher{}, testCache(), instantPolicy(), 10, 0.3)

		_, err := r.Retrieve(context.Background(), "fp1", "claim text here")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeExternalService, apperr.As(err).Code)
	})

	t.Run("search down", func(t *testing.T) {
		searcher := &stubSearcher{err: errors.New("no route to host")}
		r := NewRetriever(&stubEmbedder{vec: []float32{0.1}}, searcher, testCache(), instantPolicy(), 10, 0.3)

		_, err := r.Retrieve(context.Background(), "fp1", "claim text here")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeExternalService, apperr.As(err).Code)
	})
}
