// Package errors defines stable error codes and the retryable/non-retryable
// taxonomy used across the engine.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// StorageUnavailable indicates a storage read or write failed; the
	// whole diff→repair→cascade sequence is safe to retry with the same inputs
	StorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	// InvalidTransition indicates an illegal ledger state transition; never retryable
	InvalidTransition ErrorCode = "INVALID_TRANSITION"
	// EntityNotFound indicates a referenced entity does not exist
	EntityNotFound ErrorCode = "ENTITY_NOT_FOUND"
	// LedgerEntryNotFound indicates a referenced ledger entry does not exist
	LedgerEntryNotFound ErrorCode = "LEDGER_ENTRY_NOT_FOUND"
	// UnitQuarantined indicates an input unit was excluded from the run
	UnitQuarantined ErrorCode = "UNIT_QUARANTINED"
	// BudgetExceeded indicates a cascade or provider budget was hit
	BudgetExceeded ErrorCode = "BUDGET_EXCEEDED"
	// ProviderUnavailable indicates the embedding or LLM provider failed
	ProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	// ConfigInvalid indicates configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// retryableCodes are failure modes where re-running with the same inputs can
// succeed. Everything else is a terminal condition for the attempted
// operation.
var retryableCodes = map[ErrorCode]bool{
	StorageUnavailable:  true,
	ProviderUnavailable: true,
}

// Error is a typed error carrying a stable code and an optional cause.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error with the given code, message, and underlying cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Retryable reports whether the error's code marks it safe to retry.
func (e *Error) Retryable() bool {
	return retryableCodes[e.Code]
}

// CodeOf extracts the stable code from err, unwrapping as needed.
// Untyped errors map to InternalError.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// IsRetryable reports whether err (or any error it wraps) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}
