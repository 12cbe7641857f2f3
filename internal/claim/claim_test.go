// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package claim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantErr  bool
	}{
		{name: "minimum length accepted", text: strings.Repeat("a", 10)},
		{name: "maximum length accepted", text: strings.Repeat("a", 10000)},
		{name: "one below minimum rejected", text: strings.Repeat("a", 9), wantErr: true},
		{name: "one above maximum rejected", text: strings.Repeat("a", 10001), wantErr: true},
		{name: "empty rejected", text: "", wantErr: true},
		{name: "whitespace only rejected", text: "        ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{ClaimText: tt.text}
			err := req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequestValidateTimestamp(t *testing.T) {
	req := &Request{ClaimText: strings.Repeat("a", 20), Timestamp: "not-a-time"}
	assert.Error(t, req.Validate())

	req.Timestamp = "2026-01-15T10:30:00Z"
	assert.NoError(t, req.Validate())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "the moon is made of cheese", Normalize("  The  Moon\tis   made of CHEESE \n"))
	assert.Equal(t, "", Normalize("   "))
}

func TestFingerprintStableUnderNormalization(t *testing.T) {
	a := Fingerprint("The Earth orbits the Sun")
	b := Fingerprint("  the   earth ORBITS the sun ")
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	c := Fingerprint("the earth orbits the moon")
	assert.NotEqual(t, a, c)
}
