// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api is the HTTP surface of the service: the verification endpoint,
// health, metrics, and the admin surface for analytics and cache control.
package api

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/veritaslabs/claimgate/internal/apperr"
)

// errorBody is the error envelope every failed request gets.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// errorPayload maps any error onto the taxonomy, logs it, and returns the
// status and envelope body. Wrapped causes are only exposed outside
// production.
func (s *Server) errorPayload(c *gin.Context, err error) (int, errorBody) {
	appErr := apperr.As(err)
	body := errorBody{
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: requestID(c),
	}
	if !s.production && appErr.Err != nil {
		body.Detail = appErr.Detail()
	}

	entry := log.WithField("request_id", body.RequestID)
	if appErr.Operational {
		entry.Infof("Request rejected: %s", appErr.Error())
	} else {
		entry.Errorf("Request failed: %s", appErr.Error())
	}
	return appErr.Status, body
}

// writeError renders the standard error envelope.
func (s *Server) writeError(c *gin.Context, err error) {
	status, body := s.errorPayload(c, err)
	c.AbortWithStatusJSON(status, errorResponse{Error: body})
}
