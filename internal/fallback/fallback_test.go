// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fallback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiktoken-go/tokenizer"

	"github.com/veritaslabs/claimgate/internal/claim"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Verdict
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"status": "VERIFIED", "confidence": 0.91}`,
			want: Verdict{Status: claim.StatusVerified, Confidence: 0.91},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"status\": \"unknown\", \"confidence\": 0.2}\n```",
			want: Verdict{Status: claim.StatusUnknown, Confidence: 0.2},
		},
		{
			name: "prose around json",
			raw:  `Here is my assessment: {"status": "UNVERIFIED", "confidence": 0.6} Hope that helps.`,
			want: Verdict{Status: claim.StatusUnverified, Confidence: 0.6},
		},
		{
			name: "confidence clamped",
			raw:  `{"status": "VERIFIED", "confidence": 1.7}`,
			want: Verdict{Status: claim.StatusVerified, Confidence: 1},
		},
		{
			name:    "unknown status",
			raw:     `{"status": "MAYBE", "confidence": 0.5}`,
			wantErr: true,
		},
		{
			name:    "no json at all",
			raw:     "I cannot judge this claim.",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerdict(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Status, got.Status)
			assert.InDelta(t, tt.want.Confidence, got.Confidence, 1e-9)
		})
	}
}

func TestBuildPromptRespectsTokenBudget(t *testing.T) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	require.NoError(t, err)

	c := &Classifier{maxTokens: 50, codec: codec}
	matches := []claim.Match{
		{Title: "First", Content: strings.Repeat("evidence passage ", 10)},
		{Title: "Second", Content: strings.Repeat("another passage ", 200)},
		{Title: "Third", Content: "should never appear"},
	}

	prompt := c.buildPrompt("the sky is blue", matches)
	assert.Contains(t, prompt, "Claim: the sky is blue")
	assert.Contains(t, prompt, "First")
	assert.NotContains(t, prompt, "should never appear")

	evidence := prompt[strings.Index(prompt, "Evidence:"):]
	ids, _, err := codec.Encode(evidence)
	require.NoError(t, err)
	// The claim header is outside the budget; evidence stays near it.
	assert.LessOrEqual(t, len(ids), 60)
}

func TestTruncate(t *testing.T) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	require.NoError(t, err)
	c := &Classifier{codec: codec}

	short := "short text"
	assert.Equal(t, short, c.truncate(short, 100))

	long := strings.Repeat("evidence ", 100)
	cut := c.truncate(long, 10)
	ids, _, err := codec.Encode(cut)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(ids), 10)
}
