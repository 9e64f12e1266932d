package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = stderrors.New("connection refused")

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
		category  string
	}{
		{"store", NewStoreUnavailableError("get", errBoom), ErrCodeStoreUnavailable, true, "STORE"},
		{"directory", NewDirectoryUnavailableError(errBoom), ErrCodeDirectoryUnavailable, true, "DIRECTORY"},
		{"send", NewNotificationSendFailedError("status:approved", errBoom), ErrCodeNotificationSendFailed, true, "NOTIFICATION"},
		{"persist", NewStatePersistFailedError(errBoom), ErrCodeStatePersistFailed, true, "STORE"},
		{"conflict", NewStatePersistConflictError(errBoom), ErrCodeStatePersistConflict, false, "STORE"},
		{"config", NewInvalidConfigurationError("bad"), ErrCodeInvalidConfiguration, false, "CONFIGURATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.Equal(t, tt.category, GetErrorCategory(tt.err.Code))
			assert.False(t, tt.err.Timestamp.IsZero())
			assert.Contains(t, tt.err.Error(), string(tt.code))
		})
	}
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	wrapped := fmt.Errorf("handle: %w", NewStoreUnavailableError("update", errBoom))

	assert.True(t, stderrors.Is(wrapped, errBoom))

	stdErr := AsStandardError(wrapped)
	require.NotNil(t, stdErr)
	assert.Equal(t, ErrCodeStoreUnavailable, stdErr.Code)
	assert.True(t, IsRetryable(wrapped))
}

func TestAsStandardError_PlainError(t *testing.T) {
	stdErr := AsStandardError(errBoom)
	require.NotNil(t, stdErr)
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.False(t, IsRetryable(errBoom))
	assert.Nil(t, AsStandardError(nil))
}

func TestWithMetadata(t *testing.T) {
	err := NewNotificationSendFailedError("pay_stub", errBoom).WithMetadata("recordId", "stub-1")
	assert.Equal(t, "stub-1", err.Metadata["recordId"])
	assert.Contains(t, err.Details, "type: pay_stub")
}
