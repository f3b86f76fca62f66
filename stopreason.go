package revenium

import (
	"sort"
	"strings"
)

// stopReasonMap maps lower-cased provider finish reasons onto Revenium's
// stop reason enum. Anthropic-style reasons are included so records stay
// consistent across the middleware family.
var stopReasonMap = map[string]string{
	"stop":             StopReasonEnd,
	"function_call":    StopReasonEndSequence,
	"tool_calls":       StopReasonEndSequence,
	"timeout":          StopReasonTimeout,
	"length":           StopReasonTokenLimit,
	"max_tokens":       StopReasonTokenLimit,
	"cost_limit":       StopReasonCostLimit,
	"completion_limit": StopReasonCompletionLimit,
	"content_filter":   StopReasonError,
	"error":            StopReasonError,
	"cancelled":        StopReasonCancelled,
	"canceled":         StopReasonCancelled,
	"end_turn":         StopReasonEnd,
	"stop_sequence":    StopReasonEndSequence,
	"tool_use":         StopReasonEndSequence,
}

// MapStopReason maps a provider-specific finish reason onto the Revenium
// stop reason enum. Unknown or empty reasons map to END; unknown reasons are
// additionally reported on the logger (which may be nil) so new provider
// vocabulary surfaces in logs instead of failing the caller.
func MapStopReason(providerReason string, logger Logger) string {
	if providerReason == "" {
		return StopReasonEnd
	}
	if mapped, ok := stopReasonMap[strings.ToLower(providerReason)]; ok {
		return mapped
	}
	if logger != nil {
		logger.Warn("unknown stop reason: %s, mapping to %s", providerReason, StopReasonEnd)
	}
	return StopReasonEnd
}

// SupportedStopReasons returns the provider reasons the mapper recognizes.
func SupportedStopReasons() []string {
	reasons := make([]string, 0, len(stopReasonMap))
	for r := range stopReasonMap {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	return reasons
}
