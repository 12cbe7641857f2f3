// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
embedding:
  base-url: http://localhost:8000
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "all-MiniLM-L6-v2", cfg.Embedding.Model)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 0.3, cfg.Pipeline.SearchThreshold)
	assert.Equal(t, 10, cfg.Pipeline.SearchLimit)
	assert.Equal(t, 5, cfg.Pipeline.MaxCitations)
	assert.Equal(t, 300, cfg.Cache.VerificationTTLSeconds)
	assert.Equal(t, 60, cfg.Limits.WindowSeconds)
	assert.Equal(t, 300*time.Millisecond, cfg.PipelineTimeout())
	assert.Equal(t, time.Minute, cfg.RateWindow())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigPrincipalDefaults(t *testing.T) {
	path := writeConfig(t, `
embedding:
  base-url: http://localhost:8000
limits:
  default-rate: 5
  default-daily-quota: 100
api-keys:
  - id: acme
    key-hash: $2a$10$abcdefghijklmnopqrstuv
  - id: ops
    key-hash: $2a$10$abcdefghijklmnopqrstuv
    tier: admin
    rate-limit: 50
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.APIKeys, 2)

	assert.Equal(t, TierStandard, cfg.APIKeys[0].Tier)
	assert.Equal(t, 5, cfg.APIKeys[0].RateLimit)
	assert.Equal(t, 100, cfg.APIKeys[0].DailyQuota)
	assert.Equal(t, 20000, cfg.APIKeys[0].MonthlyQuota)

	assert.Equal(t, TierAdmin, cfg.APIKeys[1].Tier)
	assert.Equal(t, 50, cfg.APIKeys[1].RateLimit)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"postgres without dsn", "database:\n  driver: postgres\nembedding:\n  base-url: http://x\n"},
		{"unknown driver", "database:\n  driver: mongo\nembedding:\n  base-url: http://x\n"},
		{"http embedder without url", "embedding:\n  provider: http\n"},
		{"openai embedder without key", "embedding:\n  provider: openai\n"},
		{"fallback without key", "embedding:\n  base-url: http://x\nfallback:\n  enabled: true\n"},
		{"duplicate principal", "embedding:\n  base-url: http://x\napi-keys:\n  - id: a\n    key-hash: h\n  - id: a\n    key-hash: h\n"},
		{"principal without hash", "embedding:\n  base-url: http://x\napi-keys:\n  - id: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestPrincipalExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := Principal{ID: "a", KeyHash: "h"}
	assert.False(t, p.Expired(now))

	p.ExpiresAt = "2026-06-01T00:00:00Z"
	assert.False(t, p.Expired(now))

	p.ExpiresAt = "2026-01-01T00:00:00Z"
	assert.True(t, p.Expired(now))

	p.ExpiresAt = "not-a-timestamp"
	assert.True(t, p.Expired(now))
}

func TestPrincipalsReplaceAndLookup(t *testing.T) {
	cfg := &Config{APIKeys: []Principal{{ID: "a", KeyHash: "h1"}}}
	set := NewPrincipals(cfg)

	got, ok := set.ByID("a")
	require.True(t, ok)
	assert.Equal(t, "h1", got.KeyHash)

	set.replace([]Principal{{ID: "b", KeyHash: "h2"}})
	_, ok = set.ByID("a")
	assert.False(t, ok)
	got, ok = set.ByID("b")
	require.True(t, ok)
	assert.Equal(t, "h2", got.KeyHash)
}
