// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veritaslabs/claimgate/internal/apperr"
	"github.com/veritaslabs/claimgate/internal/cache"
	"github.com/veritaslabs/claimgate/internal/claim"
	"github.com/veritaslabs/claimgate/internal/health"
	"github.com/veritaslabs/claimgate/internal/persistence"
)

func (s *Server) handleHealth(c *gin.Context) {
	report := s.health.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (s *Server) handleRecentVerifications(c *gin.Context) {
	if s.store == nil {
		s.writeError(c, apperr.NotFound("analytics"))
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			s.writeError(c, apperr.Validation("limit must be an integer between 1 and 200"))
			return
		}
		limit = n
	}

	recs, err := s.store.RecentVerifications(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if recs == nil {
		recs = []persistence.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"verifications": recs, "count": len(recs)})
}

func (s *Server) handleAnalyticsSummary(c *gin.Context) {
	if s.store == nil {
		s.writeError(c, apperr.NotFound("analytics"))
		return
	}
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 24*30 {
			s.writeError(c, apperr.Validation("hours must be an integer between 1 and 720"))
			return
		}
		hours = n
	}

	sum, err := s.store.AnalyticsSummary(c.Request.Context(), time.Now().UTC().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Usage(c.Request.Context()))
}

// cacheInvalidateRequest selects what to drop: one claim's result, every
// entry in one namespace, or everything.
type cacheInvalidateRequest struct {
	ClaimText string `json:"claim_text"`
	Namespace string `json:"namespace"`
}

func (s *Server) handleCacheInvalidate(c *gin.Context) {
	var req cacheInvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperr.Validation("request body must be valid JSON"))
		return
	}

	switch {
	case req.ClaimText != "":
		fingerprint := claim.Fingerprint(req.ClaimText)
		if err := s.cache.InvalidateResult(c.Request.Context(), fingerprint); err != nil {
			s.writeError(c, apperr.External("cache", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"invalidated": 1, "fingerprint": fingerprint})

	case req.Namespace == "all":
		dropped, err := s.cache.InvalidateAll(c.Request.Context())
		if err != nil {
			s.writeError(c, apperr.External("cache", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"invalidated": dropped, "namespace": "all"})

	case req.Namespace != "":
		ns, ok := namespacePrefix(req.Namespace)
		if !ok {
			s.writeError(c, apperr.Validation("namespace must be one of verification, embeddings, apikey, all"))
			return
		}
		dropped, err := s.cache.InvalidateNamespace(c.Request.Context(), ns)
		if err != nil {
			s.writeError(c, apperr.External("cache", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"invalidated": dropped, "namespace": req.Namespace})

	default:
		s.writeError(c, apperr.Validation("either claim_text or namespace is required"))
	}
}

func namespacePrefix(name string) (string, bool) {
	switch name {
	case "verification":
		return cache.NamespaceVerification, true
	case "embeddings":
		return cache.NamespaceEmbedding, true
	case "apikey":
		return cache.NamespaceAPIKey, true
	default:
		return "", false
	}
}
