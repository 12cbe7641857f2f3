// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/veritaslabs/claimgate/internal/apperr"
	"github.com/veritaslabs/claimgate/internal/claim"
)

// verifyResponse is the success payload for POST /verify.
type verifyResponse struct {
	Status           claim.Status     `json:"status"`
	Confidence       *float64         `json:"confidence"`
	Citations        []claim.Citation `json:"citations"`
	Cached           bool             `json:"cached"`
	ProcessingTimeMS int64            `json:"processing_time_ms"`
	RequestID        string           `json:"request_id"`
}

// verifyErrorResponse is the terminal failure payload for POST /verify: the
// pipeline could not produce a verification fact.
type verifyErrorResponse struct {
	Status           claim.Status `json:"status"`
	Error            errorBody    `json:"error"`
	ProcessingTimeMS int64        `json:"processing_time_ms"`
	RequestID        string       `json:"request_id"`
}

func (s *Server) handleVerify(c *gin.Context) {
	// A request rejected here was admitted and charged but did no paid work,
	// so its quota unit is handed back.
	var req claim.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.refundAdmission(c)
		s.writeError(c, apperr.Validation("request body must be valid JSON"))
		return
	}
	if err := req.Validate(); err != nil {
		s.refundAdmission(c)
		s.writeError(c, err)
		return
	}

	start := time.Now()
	res, cached, err := s.verifier.Verify(c.Request.Context(), &req)
	if err != nil {
		status, body := s.errorPayload(c, err)
		c.AbortWithStatusJSON(status, verifyErrorResponse{
			Status:           claim.StatusError,
			Error:            body,
			ProcessingTimeMS: time.Since(start).Milliseconds(),
			RequestID:        body.RequestID,
		})
		return
	}

	citations := res.Citations
	if citations == nil {
		citations = []claim.Citation{}
	}
	c.JSON(http.StatusOK, verifyResponse{
		Status:           res.Status,
		Confidence:       res.Confidence,
		Citations:        citations,
		Cached:           cached,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		RequestID:        requestID(c),
	})
}
