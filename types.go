package revenium

import (
	"encoding/json"
	"time"
)

// ChatMessage is one conversation turn in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FunctionCall describes a legacy function invocation on a response message.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// ToolCall describes a tool invocation on a response message.
type ToolCall struct {
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type,omitempty"`
	Function *FunctionCall `json:"function,omitempty"`
}

// ResponseMessage is the assistant message (or streamed delta) of a choice.
type ResponseMessage struct {
	Role         string        `json:"role,omitempty"`
	Content      string        `json:"content,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// Choice is one completion alternative in a response or chunk.
type Choice struct {
	Index        int              `json:"index"`
	FinishReason string           `json:"finish_reason,omitempty"`
	Message      *ResponseMessage `json:"message,omitempty"`
	Delta        *ResponseMessage `json:"delta,omitempty"`
}

// CostDetail carries provider-reported cost, when the provider computes it.
type CostDetail struct {
	InputTokensCost  float64 `json:"input_tokens_cost"`
	OutputTokensCost float64 `json:"output_tokens_cost"`
	TotalCost        float64 `json:"total_cost"`
}

// Usage carries the provider's cumulative token counters.
type Usage struct {
	PromptTokens     int         `json:"prompt_tokens"`
	CompletionTokens int         `json:"completion_tokens"`
	TotalTokens      int         `json:"total_tokens"`
	Cost             *CostDetail `json:"cost,omitempty"`
}

// ChatResponse is the provider-shaped completion response consumed at the
// metering boundary. Internal components only ever see this validated form.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object,omitempty"`
	Created int64    `json:"created,omitempty"`
	Model   string   `json:"model"`
	Usage   *Usage   `json:"usage,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
}

// ChatCompletionChunk is one streamed response fragment. Usage counters, when
// present, are cumulative snapshots.
type ChatCompletionChunk struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Usage   *Usage   `json:"usage,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
}

// ChatRequest is the provider-shaped completion request consumed at the
// metering boundary.
type ChatRequest struct {
	Model     string            `json:"model"`
	Messages  []ChatMessage     `json:"messages"`
	Stream    bool              `json:"stream,omitempty"`
	Tools     []json.RawMessage `json:"tools,omitempty"`
	Functions []json.RawMessage `json:"functions,omitempty"`

	// Metadata carries per-call metering context. Never serialized to the
	// provider.
	Metadata *UsageMetadata `json:"-"`
}

// SubscriberResource identifies the end-user making the AI request.
type SubscriberResource struct {
	ID         string              `json:"id,omitempty"`
	Email      string              `json:"email,omitempty"`
	Credential *CredentialResource `json:"credential,omitempty"`
}

// CredentialResource identifies the API key or credential used by the subscriber.
type CredentialResource struct {
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// UsageMetadata is caller-supplied context attached to a single request. It
// is immutable per call and merged with global configuration when the usage
// record is built.
type UsageMetadata struct {
	// Subscriber identifies the end user on whose behalf the request ran.
	Subscriber *SubscriberResource

	// OrganizationName is the customer organization for multi-tenant apps.
	OrganizationName string

	// OrganizationID is a deprecated alias for OrganizationName. When both
	// are set, OrganizationName wins.
	//
	// Deprecated: use OrganizationName.
	OrganizationID string

	// ProductName is the product or feature using AI services.
	ProductName string

	// ProductID is a deprecated alias for ProductName. When both are set,
	// ProductName wins.
	//
	// Deprecated: use ProductName.
	ProductID string

	// SubscriptionID is the subscription identifier for correlation.
	SubscriptionID string

	// TaskType classifies the request for reporting.
	TaskType string

	// TraceID correlates the request with a distributed trace.
	TraceID string

	// ResponseQualityScore rates the response on a 0.0-1.0 scale. Values
	// outside the range are clamped.
	ResponseQualityScore *float64

	// Agent identifies the agent or model variant issuing the request.
	Agent string

	// CapturePrompts overrides the global prompt capture flag for this call.
	CapturePrompts *bool
}

// TrackingEvent is the transient DTO produced at a stream or call boundary
// and consumed immediately by the usage record builder. It is never persisted.
type TrackingEvent struct {
	RequestID        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Duration         time.Duration
	FinishReason     string
	IsStreamed       bool
	TimeToFirstToken time.Duration
	Cost             *CostDetail
	Metadata         *UsageMetadata
	Messages         []ChatMessage
	ResponseContent  string
}
