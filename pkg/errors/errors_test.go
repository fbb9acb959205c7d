package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		retryable bool
	}{
		{"delivery is transient", ErrDelivery, true},
		{"timeout is transient", ErrTimeout, true},
		{"configuration is permanent", ErrConfiguration, false},
		{"permanent delivery", ErrPermanentDelivery, false},
		{"validation", ErrValidation, false},
		{"forced fatal", ErrDelivery.AsFatal(), false},
		{"forced retryable", ErrConfiguration.AsRetryable(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.Equal(t, !tt.retryable, tt.err.IsFatal())
		})
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrConfiguration.WithCause(errors.New("missing url")).WithDetail("publisher_id", "p1"))

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, errors.Is(err, ErrDelivery))
	assert.True(t, IsConfiguration(err))
	assert.Equal(t, "CONFIGURATION_ERROR", Code(err))
	assert.Equal(t, "INTERNAL_ERROR", Code(errors.New("plain")))
}

func TestError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	_ = ErrDelivery.WithDetail("status", 503)
	assert.NotContains(t, ErrDelivery.Details, "status")
}

func TestGuard(t *testing.T) {
	err := Guard(func() error {
		panic("adapter blew up")
	})
	require.Error(t, err)

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.True(t, appErr.IsFatal())
	assert.Contains(t, err.Error(), "adapter blew up")

	assert.NoError(t, Guard(func() error { return nil }))
}
