// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classifier

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/veritaslabs/claimgate/internal/claim"
)

// Property-based tests for the confidence classifier.

func TestProperty_StatusBands(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("status is fully determined by confidence band", prop.ForAll(
		func(confidence float64) bool {
			status := StatusFor(confidence)
			switch {
			case confidence >= 0.8:
				return status == claim.StatusVerified
			case confidence >= 0.5:
				return status == claim.StatusUnverified
			default:
				return status == claim.StatusUnknown
			}
		},
		gen.Float64Range(0.0, 1.0),
	))

	properties.TestingRun(t)
}

func TestProperty_CitationInvariants(t *testing.T) {
	properties := gopter.NewProperties(nil)

	matchGen := gen.SliceOf(gopter.CombineGens(
		gen.IntRange(0, 9),
		gen.Float64Range(0.0, 1.0),
	).Map(func(values []interface{}) claim.Match {
		return claim.Match{
			DocID:      fmt.Sprintf("doc-%d", values[0].(int)),
			Similarity: values[1].(float64),
		}
	}))

	properties.Property("citations are non-increasing with unique doc ids", prop.ForAll(
		func(matches []claim.Match) bool {
			citations := New(5).Citations(matches)

			if len(citations) > 5 {
				return false
			}
			seen := make(map[string]struct{})
			for i, cit := range citations {
				if _, dup := seen[cit.DocID]; dup {
					return false
				}
				seen[cit.DocID] = struct{}{}
				if i > 0 && citations[i-1].Similarity < cit.Similarity {
					return false
				}
			}
			return true
		},
		matchGen,
	))

	properties.TestingRun(t)
}
