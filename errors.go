package revenium

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies the category of a ReveniumError.
type ErrorType string

const (
	// ErrorTypeConfig indicates a configuration error. Not retryable.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeValidation indicates required data was absent. Not retryable.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNetwork indicates a transient network/transport error. Retryable.
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeMetering indicates a metering API error.
	ErrorTypeMetering ErrorType = "metering"
	// ErrorTypeUnknown is the fallback classification.
	ErrorTypeUnknown ErrorType = "unknown"
)

// ReveniumError is a typed error returned by the revenium package.
type ReveniumError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *ReveniumError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("revenium %s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("revenium %s error: %s", e.Type, e.Message)
}

func (e *ReveniumError) Unwrap() error {
	return e.Err
}

func newConfigError(msg string, err error) *ReveniumError {
	return &ReveniumError{Type: ErrorTypeConfig, Message: msg, Err: err}
}

func newValidationError(msg string, err error) *ReveniumError {
	return &ReveniumError{Type: ErrorTypeValidation, Message: msg, Err: err}
}

func newMeteringError(msg string, err error) *ReveniumError {
	return &ReveniumError{Type: ErrorTypeMetering, Message: msg, Err: err}
}

func newNetworkError(msg string, err error) *ReveniumError {
	return &ReveniumError{Type: ErrorTypeNetwork, Message: msg, Err: err}
}

// Message substrings used to classify untyped errors.
var (
	networkMessagePatterns = []string{"network", "timeout", "connection refused", "ECONNRESET"}
	configMessagePatterns  = []string{"config", "key", "unauthorized"}
)

// ClassifyError determines the error category and whether the failing
// operation is worth retrying. Typed ReveniumErrors classify by type; other
// errors fall back to message pattern matching.
func ClassifyError(err error) (ErrorType, bool) {
	if err == nil {
		return ErrorTypeUnknown, false
	}

	var re *ReveniumError
	if errors.As(err, &re) {
		switch re.Type {
		case ErrorTypeNetwork:
			return ErrorTypeNetwork, true
		case ErrorTypeConfig, ErrorTypeValidation, ErrorTypeMetering:
			return re.Type, false
		}
	}

	msg := err.Error()
	for _, p := range networkMessagePatterns {
		if strings.Contains(msg, p) {
			return ErrorTypeNetwork, true
		}
	}
	for _, p := range configMessagePatterns {
		if strings.Contains(msg, p) {
			return ErrorTypeConfig, false
		}
	}
	return ErrorTypeUnknown, false
}
