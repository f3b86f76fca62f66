package revenium

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// redactionPattern is one step in the ordered credential redaction pipeline.
type redactionPattern struct {
	re          *regexp.Regexp
	replacement string
}

// Patterns are applied in order. Length thresholds balance redaction against
// false positives: credential-like strings shorter than a pattern's minimum
// pass through unredacted.
var redactionPatterns = []redactionPattern{
	{regexp.MustCompile(`pplx-[a-zA-Z0-9_-]{20,}`), "pplx-***REDACTED***"},
	{regexp.MustCompile(`sk-proj-[a-zA-Z0-9_-]{48,}`), "sk-proj-***REDACTED***"},
	{regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`), "sk-ant-***REDACTED***"},
	{regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`), "sk-***REDACTED***"},
	{regexp.MustCompile(`AKIA[A-Z0-9]{16}`), "AKIA***REDACTED***"},
	{regexp.MustCompile(`ghp_[a-zA-Z0-9]{36,}`), "ghp_***REDACTED***"},
	{regexp.MustCompile(`ghs_[a-zA-Z0-9]{36,}`), "ghs_***REDACTED***"},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "***REDACTED_JWT***"},
	{regexp.MustCompile(`(?i)Bearer\s+[a-zA-Z0-9_\-.+/=]+`), "Bearer ***REDACTED***"},
	{regexp.MustCompile(`(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_\-.+/=]{20,}`), "api_key: ***REDACTED***"},
	{regexp.MustCompile(`(?i)token["'\s:=]+[a-zA-Z0-9_\-.+/=]{20,}`), "token: ***REDACTED***"},
	{regexp.MustCompile(`(?i)password["'\s:=]+["']?[^"'\s]{8,}["']?`), "password: ***REDACTED***"},
	{regexp.MustCompile(`(?i)secret["'\s:=]+["']?[^"'\s]{8,}["']?`), "secret: ***REDACTED***"},
}

// SanitizeCredentials redacts common credential patterns from text: provider
// API keys (pplx-, sk-, sk-proj-, sk-ant-, AKIA, ghp_, ghs_), JWT triplets,
// bearer tokens, and generic api_key/token/password/secret key-value forms.
// The substitution pipeline is pure and idempotent.
func SanitizeCredentials(text string) string {
	sanitized := text
	for _, p := range redactionPatterns {
		sanitized = p.re.ReplaceAllString(sanitized, p.replacement)
	}
	return sanitized
}

// truncateString sanitizes the input, then hard-cuts it to maxLen characters.
// No ellipsis is appended. The boolean reports whether a cut happened.
func truncateString(s string, maxLen int) (string, bool) {
	if s == "" {
		return "", false
	}
	sanitized := SanitizeCredentials(s)
	runes := []rune(sanitized)
	if len(runes) <= maxLen {
		return sanitized, false
	}
	return string(runes[:maxLen]), true
}

// extractSystemPrompt joins the content of all system messages.
func extractSystemPrompt(messages []ChatMessage) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role == "system" && msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// extractInputMessages renders the non-system conversation turns as
// role-tagged text blocks.
func extractInputMessages(messages []ChatMessage) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role == "system" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", msg.Role, msg.Content))
	}
	return strings.Join(parts, "\n\n")
}

// extractOutputResponse renders the primary response text. Tool and function
// invocations appear as bracketed annotations.
func extractOutputResponse(resp *ChatResponse) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	choice := resp.Choices[0]

	var parts []string
	if choice.Message != nil && choice.Message.Content != "" {
		parts = append(parts, choice.Message.Content)
	}
	if choice.Delta != nil && choice.Delta.Content != "" {
		parts = append(parts, choice.Delta.Content)
	}
	if choice.Message != nil {
		for _, tc := range choice.Message.ToolCalls {
			if tc.Function != nil && tc.Function.Name != "" {
				parts = append(parts, fmt.Sprintf("[TOOL_USE: %s]", tc.Function.Name))
			}
		}
		if fc := choice.Message.FunctionCall; fc != nil && fc.Name != "" {
			parts = append(parts, fmt.Sprintf("[FUNCTION_CALL: %s]", fc.Name))
		}
	}
	return strings.Join(parts, "\n")
}

// shouldCapturePrompts resolves the capture flag by precedence: per-call
// metadata override, then global config, then the REVENIUM_CAPTURE_PROMPTS
// environment toggle, then false.
func shouldCapturePrompts(metadata *UsageMetadata, cfg *Config) bool {
	if metadata != nil && metadata.CapturePrompts != nil {
		return *metadata.CapturePrompts
	}
	if cfg != nil && cfg.CapturePrompts != nil {
		return *cfg.CapturePrompts
	}
	if v := os.Getenv("REVENIUM_CAPTURE_PROMPTS"); v != "" {
		return strings.EqualFold(v, "true")
	}
	return false
}

// promptData is the captured, sanitized, truncated prompt content attached
// to a usage record.
type promptData struct {
	SystemPrompt     string
	InputMessages    string
	OutputResponse   string
	PromptsTruncated bool
}

// extractPrompts produces the captured prompt fields for a request/response
// pair, or nil when capture is disabled or nothing was captured. Each field
// is sanitized and truncated independently; PromptsTruncated is the OR of
// the three cuts.
func extractPrompts(req *ChatRequest, resp *ChatResponse, metadata *UsageMetadata, cfg *Config) *promptData {
	if !shouldCapturePrompts(metadata, cfg) {
		return nil
	}

	maxSize := cfg.maxPromptSize()

	var messages []ChatMessage
	if req != nil {
		messages = req.Messages
	}

	systemPrompt, systemTruncated := truncateString(extractSystemPrompt(messages), maxSize)
	inputMessages, inputTruncated := truncateString(extractInputMessages(messages), maxSize)
	outputResponse, outputTruncated := truncateString(extractOutputResponse(resp), maxSize)

	if systemPrompt == "" && inputMessages == "" && outputResponse == "" {
		return nil
	}

	return &promptData{
		SystemPrompt:     systemPrompt,
		InputMessages:    inputMessages,
		OutputResponse:   outputResponse,
		PromptsTruncated: systemTruncated || inputTruncated || outputTruncated,
	}
}

var emailMaskRe = regexp.MustCompile(`(.{1,2}).*(@.*)`)

// maskEmail keeps the first one or two characters of the local part for
// logging. Single-character local parts keep that character.
func maskEmail(email string) string {
	return emailMaskRe.ReplaceAllString(email, "$1***$2")
}

// loggingContext returns a PII-safe view of usage metadata for debug logs.
func loggingContext(metadata *UsageMetadata) map[string]any {
	if metadata == nil {
		return nil
	}
	fields := map[string]any{}
	if metadata.TraceID != "" {
		fields["traceId"] = metadata.TraceID
	}
	if metadata.TaskType != "" {
		fields["taskType"] = metadata.TaskType
	}
	if metadata.Subscriber != nil {
		if metadata.Subscriber.ID != "" {
			fields["subscriberId"] = metadata.Subscriber.ID
		}
		if metadata.Subscriber.Email != "" {
			fields["subscriberEmail"] = maskEmail(metadata.Subscriber.Email)
		}
		if metadata.Subscriber.Credential != nil {
			fields["credential"] = "[REDACTED]"
		}
	}
	return fields
}
