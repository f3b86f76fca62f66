package revenium

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReveniumError(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := newNetworkError("request failed", cause)

	assert.Contains(t, err.Error(), "revenium network error")
	assert.Contains(t, err.Error(), "request failed")
	require.ErrorIs(t, err, cause)

	bare := newConfigError("API key is required", nil)
	assert.Equal(t, "revenium config error: API key is required", bare.Error())
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"nil", nil, ErrorTypeUnknown, false},
		{"typed network", newNetworkError("x", nil), ErrorTypeNetwork, true},
		{"typed config", newConfigError("x", nil), ErrorTypeConfig, false},
		{"typed validation", newValidationError("x", nil), ErrorTypeValidation, false},
		{"typed metering", newMeteringError("x", nil), ErrorTypeMetering, false},
		{"wrapped typed error", fmt.Errorf("outer: %w", newNetworkError("x", nil)), ErrorTypeNetwork, true},
		{"untyped timeout message", errors.New("dial: timeout exceeded"), ErrorTypeNetwork, true},
		{"untyped connection refused", errors.New("connection refused"), ErrorTypeNetwork, true},
		{"untyped unauthorized message", errors.New("unauthorized"), ErrorTypeConfig, false},
		{"unrecognized", errors.New("something odd"), ErrorTypeUnknown, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotType, retryable := ClassifyError(tc.err)
			assert.Equal(t, tc.wantType, gotType)
			assert.Equal(t, tc.retryable, retryable)
		})
	}
}
