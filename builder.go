package revenium

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const iso8601 = "2006-01-02T15:04:05Z"

const (
	providerName  = "Perplexity"
	modelSource   = "PERPLEXITY"
	operationChat = "CHAT"
)

// buildRecord combines the response, request, resolved trace context, and
// caller metadata into a canonical usage record.
//
// A validation error is returned only when usage counters are entirely
// absent from a non-streaming response; that is a provider contract
// violation, not a transient condition. Streamed responses may legitimately
// finish without counters.
func (c *Client) buildRecord(ctx context.Context, req *ChatRequest, resp *ChatResponse, start time.Time, duration, timeToFirstToken time.Duration) (*UsageRecord, error) {
	usage := resp.Usage
	if usage == nil {
		if req == nil || !req.Stream {
			return nil, newValidationError("response usage data is missing", nil)
		}
		usage = &Usage{}
	}

	var finishReason string
	if len(resp.Choices) > 0 {
		finishReason = resp.Choices[0].FinishReason
	}

	isStreamed := req != nil && req.Stream
	end := start.Add(duration)

	record := &UsageRecord{
		CostType:            "AI",
		Model:               resp.Model,
		RequestTime:         start.UTC().Format(iso8601),
		CompletionStartTime: end.UTC().Format(iso8601),
		ResponseTime:        end.UTC().Format(iso8601),
		RequestDuration:     duration.Milliseconds(),
		Provider:            providerName,
		ModelSource:         modelSource,
		InputTokenCount:     usage.PromptTokens,
		OutputTokenCount:    usage.CompletionTokens,
		TotalTokenCount:     usage.TotalTokens,
		TransactionID:       resolveTransactionID(resp),
		OperationType:       operationChat,
		StopReason:          MapStopReason(finishReason, c.logger),
		IsStreamed:          isStreamed,
		MiddlewareSource:    middlewareSource,
	}

	if isStreamed && timeToFirstToken > 0 {
		record.TimeToFirstToken = timeToFirstToken.Milliseconds()
	}

	if usage.Cost != nil {
		inputCost := usage.Cost.InputTokensCost
		outputCost := usage.Cost.OutputTokensCost
		totalCost := usage.Cost.TotalCost
		record.InputTokenCost = &inputCost
		record.OutputTokenCost = &outputCost
		record.TotalCost = &totalCost
	}

	var metadata *UsageMetadata
	if req != nil {
		metadata = req.Metadata
	}
	applyMetadata(record, metadata)

	tc := resolveTraceContext(ctx, req, c.logger)
	record.Environment = tc.Environment
	record.Region = tc.Region
	record.CredentialAlias = tc.CredentialAlias
	record.TraceType = tc.TraceType
	record.TraceName = tc.TraceName
	record.ParentTransactionID = tc.ParentTransactionID
	record.TransactionName = tc.TransactionName
	record.RetryNumber = tc.RetryNumber
	record.OperationSubtype = tc.OperationSubtype

	if prompts := extractPrompts(req, resp, metadata, c.cfg); prompts != nil {
		record.SystemPrompt = prompts.SystemPrompt
		record.InputMessages = prompts.InputMessages
		record.OutputResponse = prompts.OutputResponse
		record.PromptsTruncated = prompts.PromptsTruncated
	}

	return record, nil
}

// resolveTransactionID uses the provider-assigned response id, generating a
// unique id when the provider supplies none.
func resolveTransactionID(resp *ChatResponse) string {
	if resp.ID != "" {
		return resp.ID
	}
	return "chat-" + uuid.New().String()
}

// applyMetadata copies caller-supplied metadata onto the record. Deprecated
// aliases resolve to the canonical field names with the newer field winning
// when both are set; the quality score is clamped to [0, 1].
func applyMetadata(record *UsageRecord, metadata *UsageMetadata) {
	if metadata == nil {
		return
	}

	record.OrganizationName = metadata.OrganizationName
	if record.OrganizationName == "" {
		record.OrganizationName = metadata.OrganizationID
	}
	record.ProductName = metadata.ProductName
	if record.ProductName == "" {
		record.ProductName = metadata.ProductID
	}

	record.SubscriptionID = metadata.SubscriptionID
	record.TaskType = metadata.TaskType
	record.TraceID = metadata.TraceID
	record.Agent = metadata.Agent
	record.Subscriber = metadata.Subscriber

	if metadata.ResponseQualityScore != nil {
		score := clampQualityScore(*metadata.ResponseQualityScore)
		record.ResponseQualityScore = &score
	}
}

func clampQualityScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
