// Package errors provides standardized operational errors for the dispatcher.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Infrastructure failures. Everything else the dispatcher encounters is a
// soft outcome, not an error.
const (
	ErrCodeStoreUnavailable     ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeDirectoryUnavailable ErrorCode = "DIRECTORY_UNAVAILABLE"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeStatePersistFailed   ErrorCode = "STATE_PERSIST_FAILED"
	ErrCodeStatePersistConflict ErrorCode = "STATE_PERSIST_CONFLICT"

	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
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

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

func newError(code ErrorCode, message string, retryable bool, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewStoreUnavailableError wraps a document store transport failure.
func NewStoreUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeStoreUnavailable, fmt.Sprintf("Document store %s failed", operation), true, err)
}

// NewDirectoryUnavailableError wraps a user directory transport failure.
func NewDirectoryUnavailableError(err error) *StandardError {
	return newError(ErrCodeDirectoryUnavailable, "User directory lookup failed", true, err)
}

// NewNotificationSendFailedError creates a retryable delivery error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, "Notification delivery failed", true, err)
	e.Details = fmt.Sprintf("type: %s, error: %s", notificationType, e.Details)
	return e
}

// NewStatePersistFailedError is raised after a successful send whose state
// could not be written. The next trigger will send again.
func NewStatePersistFailedError(err error) *StandardError {
	return newError(ErrCodeStatePersistFailed, "Notification state persistence failed", true, err)
}

// NewStatePersistConflictError is raised when another invocation changed
// the notification state between read and write.
func NewStatePersistConflictError(err error) *StandardError {
	return newError(ErrCodeStatePersistConflict, "Notification state changed concurrently", false, err)
}

func NewInvalidConfigurationError(details string) *StandardError {
	e := newError(ErrCodeInvalidConfiguration, "Invalid configuration", false, nil)
	e.Details = details
	return e
}

// ==========================
// 3. Helpers
// ==========================

// WithMetadata attaches audit context and returns e for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError normalizes any error into a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", false, err)
}

func IsRetryable(err error) bool {
	if stdErr := AsStandardError(err); stdErr != nil {
		return stdErr.Retryable
	}
	return false
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "STORE") || strings.HasPrefix(codeStr, "STATE"):
		return "STORE"
	case strings.HasPrefix(codeStr, "DIRECTORY"):
		return "DIRECTORY"
	case strings.HasPrefix(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	default:
		return "UNKNOWN"
	}
}
