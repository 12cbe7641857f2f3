// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package admission decides whether a request may enter the verification
// pipeline. Authentication, rate limiting, and quota accounting each reject
// with their own taxonomy code so clients can tell a bad key from an
// exhausted allowance.
package admission

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/veritaslabs/claimgate/internal/apperr"
	"github.com/veritaslabs/claimgate/internal/cache"
	"github.com/veritaslabs/claimgate/internal/config"
)

// Token format: fixed prefix plus 32 opaque characters.
const (
	tokenPrefix = "vk_"
	tokenLength = len(tokenPrefix) + 32
)

// Authenticator resolves bearer tokens to principals. Verified tokens are
// cached under their digest so the bcrypt comparison runs once per TTL, not
// once per request. Failures are never cached.
type Authenticator struct {
	principals *config.Principals
	cache      *cache.ResultCache
	now        func() time.Time
}

// NewAuthenticator builds an Authenticator over the live principal set.
func NewAuthenticator(principals *config.Principals, rc *cache.ResultCache) *Authenticator {
	return &Authenticator{principals: principals, cache: rc, now: time.Now}
}

// tokenDigest keys the credential cache. The raw token never leaves this
// package.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidFormat reports whether token is well-formed without touching any
// store. Malformed tokens are rejected before bcrypt work is spent on them.
func ValidFormat(token string) bool {
	if len(token) != tokenLength || !strings.HasPrefix(token, tokenPrefix) {
		return false
	}
	for _, r := range token[len(tokenPrefix):] {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Authenticate resolves token to a principal or returns a taxonomy error.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (config.Principal, error) {
	if token == "" {
		return config.Principal{}, apperr.MissingAPIKey()
	}
	if !ValidFormat(token) {
		return config.Principal{}, apperr.InvalidKeyFormat()
	}

	digest := tokenDigest(token)
	if id, ok := a.cache.GetCredential(ctx, digest); ok {
		if p, found := a.principals.ByID(id); found && !p.Expired(a.now()) {
			return p, nil
		}
		// The principal was rotated out or expired after being cached.
		_ = a.cache.InvalidateCredential(ctx, digest)
	}

	for _, p := range a.principals.All() {
		if bcrypt.CompareHashAndPassword([]byte(p.KeyHash), []byte(token)) != nil {
			continue
		}
		if p.Expired(a.now()) {
			log.Warnf("Rejected expired API key for principal %s", p.ID)
			return config.Principal{}, apperr.InvalidAPIKey()
		}
		a.cache.SetCredential(ctx, digest, p.ID)
		return p, nil
	}
	return config.Principal{}, apperr.InvalidAPIKey()
}
