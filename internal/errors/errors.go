// Package errors defines the service error taxonomy and its mapping to
// HTTP status codes. Lower layers wrap raw failures into a taxonomy entry
// instead of leaking transport errors to callers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies a taxonomy entry.
type Code string

const (
	CodeValidationDenied Code = "VALIDATION_DENIED"
	CodeClassifierError  Code = "CLASSIFIER_ERROR"
	CodeLedgerReadError  Code = "LEDGER_READ_ERROR"
	CodeLedgerWriteError Code = "LEDGER_WRITE_ERROR"
	CodeDuplicate        Code = "DUPLICATE_SUBMISSION"
	CodeInvalidRequest   Code = "INVALID_REQUEST"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeRateLimited      Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// DenialReason is the eligibility pre-check outcome when a submission is
// refused before any classifier or ledger write is attempted.
type DenialReason string

const (
	DenialCapReached         DenialReason = "CAP_REACHED"
	DenialNoBudgetAllocated  DenialReason = "NO_BUDGET_ALLOCATED"
	DenialBudgetExhausted    DenialReason = "BUDGET_EXHAUSTED"
	DenialInsufficientBudget DenialReason = "INSUFFICIENT_BUDGET"
)

// WriteKind refines a ledger write failure. The pipeline issues each write
// exactly once; the kind only informs the caller's own retry policy
// (Timeout and Gas are plausibly retryable, Revert is not).
type WriteKind string

const (
	WriteGas     WriteKind = "GAS"
	WriteNonce   WriteKind = "NONCE"
	WriteTimeout WriteKind = "TIMEOUT"
	WriteRevert  WriteKind = "REVERT"
	WriteUnknown WriteKind = "UNKNOWN"
)

// ServiceError is the error type surfaced across layer boundaries.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair for diagnostics.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetServiceError returns the ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}

// ValidationDenied reports an eligibility pre-check refusal. A reached
// submission cap is the requester's conflict (409); budget denials are
// client-correctable requests against an exhausted pool (400).
func ValidationDenied(reason DenialReason, message string) *ServiceError {
	status := http.StatusBadRequest
	if reason == DenialCapReached {
		status = http.StatusConflict
	}
	return &ServiceError{
		Code:       CodeValidationDenied,
		Message:    message,
		HTTPStatus: status,
		Details:    map[string]interface{}{"reason": string(reason)},
	}
}

// DenialReasonOf extracts the denial reason from a ValidationDenied error,
// or "" when err is not one.
func DenialReasonOf(err error) DenialReason {
	svcErr := GetServiceError(err)
	if svcErr == nil || svcErr.Code != CodeValidationDenied {
		return ""
	}
	if reason, ok := svcErr.Details["reason"].(string); ok {
		return DenialReason(reason)
	}
	return ""
}

// Classifier reports a failure obtaining a validity judgment. This is a
// server-side fault, never the requester's.
func Classifier(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       CodeClassifierError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// LedgerRead reports a failed ledger query.
func LedgerRead(op string, err error) *ServiceError {
	return &ServiceError{
		Code:       CodeLedgerReadError,
		Message:    fmt.Sprintf("ledger read %s failed", op),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]interface{}{"operation": op},
		Err:        err,
	}
}

// LedgerWrite reports a failed or rejected ledger write, refined by kind.
func LedgerWrite(kind WriteKind, message string, err error) *ServiceError {
	return &ServiceError{
		Code:       CodeLedgerWriteError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]interface{}{"kind": string(kind)},
		Err:        err,
	}
}

// WriteKindOf extracts the write failure kind from a LedgerWrite error,
// or "" when err is not one.
func WriteKindOf(err error) WriteKind {
	svcErr := GetServiceError(err)
	if svcErr == nil || svcErr.Code != CodeLedgerWriteError {
		return ""
	}
	if kind, ok := svcErr.Details["kind"].(string); ok {
		return WriteKind(kind)
	}
	return ""
}

// Duplicate reports a repeated device submission within the same cycle.
func Duplicate(deviceID string) *ServiceError {
	return &ServiceError{
		Code:       CodeDuplicate,
		Message:    "a submission from this device was already processed in the current cycle",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]interface{}{"device_id": deviceID},
	}
}

// InvalidRequest reports a malformed inbound request.
func InvalidRequest(message string) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return &ServiceError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden reports insufficient privileges for the requested operation.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "insufficient privileges"
	}
	return &ServiceError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// InvalidToken reports a JWT that failed validation.
func InvalidToken(err error) *ServiceError {
	return &ServiceError{
		Code:       CodeUnauthorized,
		Message:    "invalid token",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

// RateLimitExceeded reports a throttled caller.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return &ServiceError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("rate limit of %d requests per %s exceeded", limit, window),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Internal reports an unexpected server-side failure.
func Internal(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
