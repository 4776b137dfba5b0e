// Package errors provides the standardized error type shared by the HTTP API
// and the workflow job worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeCRMConnectionMissing    ErrorCode = "CRM_CONNECTION_MISSING"
	ErrCodeCRMQueryFailed          ErrorCode = "CRM_QUERY_FAILED"
	ErrCodeCRMAuthenticationFailed ErrorCode = "CRM_AUTHENTICATION_FAILED"
	ErrCodeCRMContextInvalid       ErrorCode = "CRM_CONTEXT_INVALID"
	ErrCodeInvalidRequestBody      ErrorCode = "INVALID_REQUEST_BODY"
	ErrCodeRateLimitExceeded       ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
	ErrCodeMethodNotAllowed        ErrorCode = "METHOD_NOT_ALLOWED"
	ErrCodeNotFound                ErrorCode = "NOT_FOUND"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError is the job-failure representation sent to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewCRMConnectionMissingError is returned when no CRM connection was attached
// to the request.
func NewCRMConnectionMissingError() *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMConnectionMissing,
		Message:   "No CRM connection available for request",
		Details:   "neither a client context header nor an integration user is configured",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCRMQueryFailedError wraps a failed CRM query. Queries are never retried.
func NewCRMQueryFailedError(object string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMQueryFailed,
		Message:   "CRM query failed",
		Details:   fmt.Sprintf("object: %s, error: %s", object, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCRMAuthenticationFailedError wraps a token or 401/403 failure.
func NewCRMAuthenticationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMAuthenticationFailed,
		Message:   "CRM authentication failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCRMContextInvalidError reports an undecodable client context header.
func NewCRMContextInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMContextInvalid,
		Message:   "Invalid CRM client context",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestBodyError reports a body that is not a well-formed request.
func NewInvalidRequestBodyError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequestBody,
		Message:   "Invalid request body",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitExceededError reports a client over its request budget.
func NewRateLimitExceededError(client string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimitExceeded,
		Message:   "Rate limit exceeded",
		Details:   fmt.Sprintf("client: %s", client),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps any unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Conversion
// ==========================

// Normalize returns err as a *StandardError, wrapping it as INTERNAL_ERROR when
// it is not one already.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// ToHTTPStatus maps an error code to the HTTP status the API answers with.
// Every CRM failure is a generic server error.
func ToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequestBody:
		return http.StatusBadRequest
	case ErrCodeCRMContextInvalid:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns the number of job retries for a code. CRM failures are
// not retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRateLimitExceeded:
		return 3
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError for the workflow engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "CRM_"):
		return "CRM"
	case strings.HasPrefix(codeStr, "RATE_LIMIT"):
		return "RATE_LIMIT"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "NOT_ALLOWED"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
