// Copyright 2026 The ClaimGate Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package apperr defines the error taxonomy shared by the admission gate and
// the verification pipeline. Every error carries an HTTP status, a stable
// machine-readable code, and an operational flag distinguishing expected
// request failures from infrastructure faults.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Stable error codes returned in API responses.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeMissingAPIKey      = "MISSING_API_KEY"
	CodeInvalidKeyFormat   = "INVALID_API_KEY_FORMAT"
	CodeInvalidAPIKey      = "INVALID_API_KEY"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeQuotaExceeded      = "QUOTA_EXCEEDED"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeDatabase           = "DATABASE_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeAuthService        = "AUTH_SERVICE_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is the typed application error used across service boundaries.
type Error struct {
	// Status is the HTTP status code this error maps to.
	Status int

	// Code is the stable machine-readable error code.
	Code string

	// Message is safe to return to callers in any environment.
	Message string

	// Operational marks errors that are part of normal request handling
	// (validation, auth, limits) as opposed to infrastructure faults.
	Operational bool

	// Err is the wrapped cause, if any. Never exposed in production responses.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a 400 validation error.
func Validation(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: message, Operational: true}
}

// MissingAPIKey builds a 401 for an absent credential.
func MissingAPIKey() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeMissingAPIKey, Message: "API key is required", Operational: true}
}

// InvalidKeyFormat builds a 401 for a malformed credential, before any lookup.
func InvalidKeyFormat() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeInvalidKeyFormat, Message: "API key format is invalid", Operational: true}
}

// InvalidAPIKey builds a 401 for an unknown or expired credential.
func InvalidAPIKey() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeInvalidAPIKey, Message: "API key is not recognized", Operational: true}
}

// Forbidden builds a 403 for an authenticated caller lacking permission.
func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeForbidden, Message: message, Operational: true}
}

// RateLimited builds a 429 carrying the retry-after hint in seconds.
func RateLimited(retryAfterSeconds int64) *Error {
	return &Error{
		Status:      http.StatusTooManyRequests,
		Code:        CodeRateLimitExceeded,
		Message:     fmt.Sprintf("rate limit exceeded, retry in %ds", retryAfterSeconds),
		Operational: true,
	}
}

// QuotaExceeded builds a 429 for an exhausted daily or monthly quota,
// telling the caller when the period reopens.
func QuotaExceeded(kind string, resetAt time.Time) *Error {
	return &Error{
		Status:      http.StatusTooManyRequests,
		Code:        CodeQuotaExceeded,
		Message:     fmt.Sprintf("%s quota exceeded, resets at %s", kind, resetAt.UTC().Format(time.RFC3339)),
		Operational: true,
	}
}

// External wraps a collaborator failure as a 502.
func External(service string, err error) *Error {
	return &Error{
		Status:      http.StatusBadGateway,
		Code:        CodeExternalService,
		Message:     fmt.Sprintf("%s service unavailable", service),
		Operational: true,
		Err:         err,
	}
}

// Database wraps a persistence failure as a non-operational 500.
func Database(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeDatabase, Message: "database error", Err: err}
}

// NotFound builds a 404.
func NotFound(what string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: what + " not found", Operational: true}
}

// Internal wraps an unexpected failure as a generic 500.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal server error", Err: err}
}

// As extracts an *Error from err, or wraps err as Internal when it is not one.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Detail returns the full error chain for development responses and logs.
func (e *Error) Detail() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}
