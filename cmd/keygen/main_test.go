// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		token, err := generateToken()
		require.NoError(t, err)
		assert.Len(t, token, len(tokenPrefix)+tokenBodyLen)
		assert.True(t, strings.HasPrefix(token, tokenPrefix))
		for _, r := range token[len(tokenPrefix):] {
			assert.Contains(t, tokenAlphabet, string(r))
		}
		_, dup := seen[token]
		assert.False(t, dup, "tokens must not repeat")
		seen[token] = struct{}{}
	}
}

func TestGeneratedTokenVerifiesAgainstHash(t *testing.T) {
	token, err := generateToken()
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte(token)))
}
