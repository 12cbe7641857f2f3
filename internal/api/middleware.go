// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/veritaslabs/claimgate/internal/admission"
	"github.com/veritaslabs/claimgate/internal/apperr"
	"github.com/veritaslabs/claimgate/internal/config"
)

const (
	ctxKeyRequestID = "request_id"
	ctxKeyAdmission = "admission"

	headerRequestID = "X-Request-ID"
	headerAPIKey    = "X-API-Key"
)

// requestID returns the id assigned to this request.
func requestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

// requestIDMiddleware assigns every request an id, honoring one supplied by
// the caller, and echoes it on the response.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger logs one line per request with timing and outcome.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithField("request_id", requestID(c)).Infof("%s %s -> %d in %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

// bearerToken extracts the API key from the Authorization header, or from
// the X-API-Key header for callers that cannot set Authorization.
func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.GetHeader(headerAPIKey)
}

// setRateHeaders reports the window state on every admitted or rate-limited
// response.
func setRateHeaders(c *gin.Context, d admission.RateDecision) {
	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", d.Limit))
	c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
	c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", d.Reset.Unix()))
	if !d.Allowed {
		c.Header("Retry-After", fmt.Sprintf("%d", int(d.RetryAfter.Seconds())))
	}
}

// setQuotaHeaders reports standing quota usage.
func setQuotaHeaders(c *gin.Context, d admission.QuotaDecision) {
	c.Header("X-Quota-Daily-Used", fmt.Sprintf("%d", d.DailyUsed))
	c.Header("X-Quota-Daily-Limit", fmt.Sprintf("%d", d.DailyLimit))
	c.Header("X-Quota-Monthly-Used", fmt.Sprintf("%d", d.MonthlyUsed))
	c.Header("X-Quota-Monthly-Limit", fmt.Sprintf("%d", d.MonthlyLimit))
}

// admissionMiddleware runs the gate on every protected route and records the
// rejection reason when it refuses.
func (s *Server) admissionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		adm, err := s.gate.Admit(c.Request.Context(), token, c.ClientIP())
		if adm != nil {
			if adm.Rate.Limit > 0 {
				setRateHeaders(c, adm.Rate)
			}
			if adm.Quota.DailyLimit > 0 {
				setQuotaHeaders(c, adm.Quota)
			}
		}
		if err != nil {
			s.metrics.Rejections.WithLabelValues(rejectionReason(err)).Inc()
			s.writeError(c, err)
			return
		}
		c.Set(ctxKeyAdmission, adm)
		c.Next()
	}
}

// admitted returns the admission recorded by the middleware.
func admitted(c *gin.Context) *admission.Admission {
	v, ok := c.Get(ctxKeyAdmission)
	if !ok {
		return nil
	}
	adm, _ := v.(*admission.Admission)
	return adm
}

// refundAdmission hands back the quota a request consumed at the gate when it
// failed before any verification work was performed.
func (s *Server) refundAdmission(c *gin.Context) {
	if adm := admitted(c); adm != nil {
		s.gate.Refund(c.Request.Context(), adm.Principal.ID)
	}
}

func rejectionReason(err error) string {
	switch apperr.As(err).Code {
	case apperr.CodeRateLimitExceeded:
		return "rate"
	case apperr.CodeQuotaExceeded:
		return "quota"
	case apperr.CodeMissingAPIKey, apperr.CodeInvalidKeyFormat, apperr.CodeInvalidAPIKey:
		return "auth"
	default:
		return "other"
	}
}

// requireAdmin guards the admin surface.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		adm := admitted(c)
		if adm == nil || adm.Principal.Tier != config.TierAdmin {
			s.writeError(c, apperr.Forbidden("admin access required"))
			return
		}
		c.Next()
	}
}
