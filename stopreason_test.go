package revenium

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapStopReason(t *testing.T) {
	logger := &recordingLogger{}

	cases := []struct {
		reason string
		want   string
	}{
		{"stop", StopReasonEnd},
		{"end_turn", StopReasonEnd},
		{"length", StopReasonTokenLimit},
		{"max_tokens", StopReasonTokenLimit},
		{"tool_calls", StopReasonEndSequence},
		{"function_call", StopReasonEndSequence},
		{"stop_sequence", StopReasonEndSequence},
		{"tool_use", StopReasonEndSequence},
		{"timeout", StopReasonTimeout},
		{"cost_limit", StopReasonCostLimit},
		{"completion_limit", StopReasonCompletionLimit},
		{"content_filter", StopReasonError},
		{"error", StopReasonError},
		{"cancelled", StopReasonCancelled},
		{"canceled", StopReasonCancelled},
		{"", StopReasonEnd},
		{"STOP", StopReasonEnd}, // lookup is case-insensitive
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MapStopReason(tc.reason, logger), "reason %q", tc.reason)
	}
	assert.Empty(t, logger.warnings())

	t.Run("unknown reason defaults to END and warns", func(t *testing.T) {
		got := MapStopReason("unknown_xyz", logger)
		assert.Equal(t, StopReasonEnd, got)
		warnings := logger.warnings()
		assert.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "unknown_xyz")
	})

	t.Run("nil logger is tolerated", func(t *testing.T) {
		assert.Equal(t, StopReasonEnd, MapStopReason("unknown_xyz", nil))
	})
}

func TestSupportedStopReasons(t *testing.T) {
	reasons := SupportedStopReasons()
	assert.Contains(t, reasons, "stop")
	assert.Contains(t, reasons, "length")
	assert.Len(t, reasons, len(stopReasonMap))
}
