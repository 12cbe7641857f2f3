// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fallback asks a language model to judge a claim when similarity
// search alone is not confident. The model's verdict is advisory: it can
// only ever lower or confirm what the threshold classifier produced, and a
// fallback failure leaves the original verdict standing.
package fallback

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tiktoken-go/tokenizer"

	"github.com/veritaslabs/claimgate/internal/claim"
)

const systemPrompt = `You are a fact-checking assistant. Given a claim and retrieved evidence passages, respond with a single JSON object:
{"status": "VERIFIED" | "UNVERIFIED" | "UNKNOWN", "confidence": <0.0-1.0>}
VERIFIED means the evidence directly supports the claim. UNVERIFIED means the evidence is related but does not confirm it. UNKNOWN means the evidence is insufficient to judge. Respond with JSON only.`

// Verdict is the model's judgment of one claim.
type Verdict struct {
	Status     claim.Status
	Confidence float64
}

// Classifier calls a chat model with the claim and its evidence.
type Classifier struct {
	client    *openai.Client
	model     string
	maxTokens int
	codec     tokenizer.Codec
}

// New builds a fallback classifier. maxPromptTokens bounds the evidence
// section of the prompt.
func New(apiKey, model string, maxPromptTokens int) (*Classifier, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("fallback tokenizer: %w", err)
	}
	return &Classifier{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: maxPromptTokens,
		codec:     codec,
	}, nil
}

// truncate cuts text to at most limit tokens.
func (c *Classifier) truncate(text string, limit int) string {
	ids, _, err := c.codec.Encode(text)
	if err != nil || len(ids) <= limit {
		return text
	}
	cut, err := c.codec.Decode(ids[:limit])
	if err != nil {
		return text
	}
	return cut
}

// buildPrompt assembles the user message: the claim, then evidence passages
// until the token budget runs out.
func (c *Classifier) buildPrompt(claimText string, matches []claim.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n\nEvidence:\n", claimText)
	budget := c.maxTokens
	for i, m := range matches {
		passage := fmt.Sprintf("%d. [%s] %s\n", i+1, m.Title, m.Content)
		ids, _, err := c.codec.Encode(passage)
		if err == nil && len(ids) > budget {
			b.WriteString(c.truncate(passage, budget))
			break
		}
		b.WriteString(passage)
		if err == nil {
			budget -= len(ids)
		}
		if budget <= 0 {
			break
		}
	}
	return b.String()
}

// Classify asks the model for a verdict.
func (c *Classifier) Classify(ctx context.Context, claimText string, matches []claim.Match) (Verdict, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: c.buildPrompt(claimText, matches)},
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("fallback completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("fallback completion returned no choices")
	}
	return parseVerdict(resp.Choices[0].Message.Content)
}

// parseVerdict extracts the verdict from model output, tolerating fenced or
// prefixed JSON.
func parseVerdict(raw string) (Verdict, error) {
	body := gjson.Parse(extractJSON(raw))
	status := claim.Status(strings.ToUpper(body.Get("status").String()))
	switch status {
	case claim.StatusVerified, claim.StatusUnverified, claim.StatusUnknown:
	default:
		return Verdict{}, fmt.Errorf("fallback returned unrecognized status %q", body.Get("status").String())
	}
	conf := body.Get("confidence").Float()
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return Verdict{Status: status, Confidence: conf}, nil
}

// extractJSON strips everything outside the first balanced-looking object.
func extractJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		log.Debugf("Fallback output had no JSON object: %q", raw)
		return raw
	}
	return raw[start : end+1]
}
