package revenium

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func baseResponse() *ChatResponse {
	return &ChatResponse{
		ID:    "resp-123",
		Model: "sonar-pro",
		Usage: &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Choices: []Choice{{
			FinishReason: "stop",
			Message:      &ResponseMessage{Role: "assistant", Content: "hello"},
		}},
	}
}

func TestBuildRecord(t *testing.T) {
	clearEnv(t)
	setTestRegion(t)
	ctx := context.Background()
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("missing usage on non-streaming response is a validation error", func(t *testing.T) {
		client, _ := newTestClient(t)
		resp := baseResponse()
		resp.Usage = nil
		req := &ChatRequest{Model: "sonar-pro"}

		_, err := client.buildRecord(ctx, req, resp, start, time.Second, 0)
		require.Error(t, err)
		var re *ReveniumError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, ErrorTypeValidation, re.Type)
	})

	t.Run("missing usage on a streamed response yields zero counters", func(t *testing.T) {
		client, _ := newTestClient(t)
		resp := baseResponse()
		resp.Usage = nil
		req := &ChatRequest{Model: "sonar-pro", Stream: true}

		record, err := client.buildRecord(ctx, req, resp, start, time.Second, 0)
		require.NoError(t, err)
		assert.Zero(t, record.TotalTokenCount)
		assert.True(t, record.IsStreamed)
	})

	t.Run("populates required fields", func(t *testing.T) {
		client, _ := newTestClient(t)
		req := &ChatRequest{Model: "sonar-pro"}

		record, err := client.buildRecord(ctx, req, baseResponse(), start, 1500*time.Millisecond, 0)
		require.NoError(t, err)
		assert.Equal(t, "AI", record.CostType)
		assert.Equal(t, "sonar-pro", record.Model)
		assert.Equal(t, "Perplexity", record.Provider)
		assert.Equal(t, "PERPLEXITY", record.ModelSource)
		assert.Equal(t, "CHAT", record.OperationType)
		assert.Equal(t, 10, record.InputTokenCount)
		assert.Equal(t, 5, record.OutputTokenCount)
		assert.Equal(t, 15, record.TotalTokenCount)
		assert.Equal(t, StopReasonEnd, record.StopReason)
		assert.Equal(t, "resp-123", record.TransactionID)
		assert.Equal(t, int64(1500), record.RequestDuration)
		assert.Equal(t, "2026-08-31T12:00:00Z", record.RequestTime)
		assert.Equal(t, "2026-08-31T12:00:01Z", record.ResponseTime)
		assert.Equal(t, middlewareSource, record.MiddlewareSource)
		assert.Equal(t, "us-east-1", record.Region)
		assert.False(t, record.IsStreamed)
		assert.Nil(t, record.TotalCost)
		assert.Empty(t, record.SystemPrompt)
	})

	t.Run("generates a transaction id when the provider supplies none", func(t *testing.T) {
		client, _ := newTestClient(t)
		resp := baseResponse()
		resp.ID = ""

		record, err := client.buildRecord(ctx, nil, resp, start, time.Second, 0)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(record.TransactionID, "chat-"))
		assert.Greater(t, len(record.TransactionID), len("chat-"))
	})

	t.Run("copies provider cost verbatim", func(t *testing.T) {
		client, _ := newTestClient(t)
		resp := baseResponse()
		resp.Usage.Cost = &CostDetail{InputTokensCost: 0.001, OutputTokensCost: 0.002, TotalCost: 0.003}

		record, err := client.buildRecord(ctx, nil, resp, start, time.Second, 0)
		require.NoError(t, err)
		require.NotNil(t, record.TotalCost)
		assert.Equal(t, 0.003, *record.TotalCost)
		assert.Equal(t, 0.001, *record.InputTokenCost)
		assert.Equal(t, 0.002, *record.OutputTokenCost)
	})

	t.Run("time to first token only on streamed records", func(t *testing.T) {
		client, _ := newTestClient(t)
		req := &ChatRequest{Model: "sonar-pro", Stream: true}

		record, err := client.buildRecord(ctx, req, baseResponse(), start, time.Second, 120*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, int64(120), record.TimeToFirstToken)

		record, err = client.buildRecord(ctx, &ChatRequest{}, baseResponse(), start, time.Second, 120*time.Millisecond)
		require.NoError(t, err)
		assert.Zero(t, record.TimeToFirstToken)
	})

	t.Run("captures prompts when enabled per call", func(t *testing.T) {
		client, _ := newTestClient(t)
		capture := true
		req := &ChatRequest{
			Model: "sonar-pro",
			Messages: []ChatMessage{
				{Role: "system", Content: "be helpful"},
				{Role: "user", Content: "hello"},
			},
			Metadata: &UsageMetadata{CapturePrompts: &capture},
		}

		record, err := client.buildRecord(ctx, req, baseResponse(), start, time.Second, 0)
		require.NoError(t, err)
		assert.Equal(t, "be helpful", record.SystemPrompt)
		assert.Equal(t, "[user]\nhello", record.InputMessages)
		assert.Equal(t, "hello", record.OutputResponse)
		assert.False(t, record.PromptsTruncated)
	})
}

func TestApplyMetadata(t *testing.T) {
	t.Run("nil metadata leaves record untouched", func(t *testing.T) {
		record := &UsageRecord{}
		applyMetadata(record, nil)
		assert.Empty(t, record.OrganizationName)
	})

	t.Run("copies fields", func(t *testing.T) {
		record := &UsageRecord{}
		applyMetadata(record, &UsageMetadata{
			OrganizationName: "acme",
			ProductName:      "chatbot",
			SubscriptionID:   "sub-1",
			TaskType:         "summarize",
			TraceID:          "trace-1",
			Agent:            "support-bot",
			Subscriber:       &SubscriberResource{ID: "u-1", Email: "user@example.com"},
		})
		assert.Equal(t, "acme", record.OrganizationName)
		assert.Equal(t, "chatbot", record.ProductName)
		assert.Equal(t, "sub-1", record.SubscriptionID)
		assert.Equal(t, "summarize", record.TaskType)
		assert.Equal(t, "trace-1", record.TraceID)
		assert.Equal(t, "support-bot", record.Agent)
		require.NotNil(t, record.Subscriber)
		assert.Equal(t, "u-1", record.Subscriber.ID)
	})

	t.Run("deprecated aliases resolve to canonical names", func(t *testing.T) {
		record := &UsageRecord{}
		applyMetadata(record, &UsageMetadata{OrganizationID: "legacy-org", ProductID: "legacy-product"})
		assert.Equal(t, "legacy-org", record.OrganizationName)
		assert.Equal(t, "legacy-product", record.ProductName)
	})

	t.Run("canonical name wins over deprecated alias", func(t *testing.T) {
		record := &UsageRecord{}
		applyMetadata(record, &UsageMetadata{
			OrganizationName: "acme",
			OrganizationID:   "legacy-org",
			ProductName:      "chatbot",
			ProductID:        "legacy-product",
		})
		assert.Equal(t, "acme", record.OrganizationName)
		assert.Equal(t, "chatbot", record.ProductName)
	})

	t.Run("quality score is clamped to the unit interval", func(t *testing.T) {
		record := &UsageRecord{}
		applyMetadata(record, &UsageMetadata{ResponseQualityScore: floatPtr(1.5)})
		require.NotNil(t, record.ResponseQualityScore)
		assert.Equal(t, 1.0, *record.ResponseQualityScore)

		applyMetadata(record, &UsageMetadata{ResponseQualityScore: floatPtr(-0.2)})
		assert.Equal(t, 0.0, *record.ResponseQualityScore)

		applyMetadata(record, &UsageMetadata{ResponseQualityScore: floatPtr(0.75)})
		assert.Equal(t, 0.75, *record.ResponseQualityScore)
	})
}
