package revenium

import (
	"context"
	"sync"
	"time"
)

// Client is the metering client. It is constructed explicitly and injected
// wherever metering is needed; all methods are safe for concurrent use.
type Client struct {
	cfg    *Config
	logger Logger
	wg     sync.WaitGroup

	costAttempts int
	costDelay    time.Duration
	costTimeout  time.Duration
}

// NewClient creates a new Client with the given options. Missing settings
// are loaded from the environment, then defaulted; an invalid configuration
// (missing or malformed API key) is rejected here, never inside the
// detached metering path.
func NewClient(opts ...Option) (*Client, error) {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	loadFromEnv(cfg)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:          cfg,
		logger:       cfg.Logger,
		costAttempts: defaultCostAttempts,
		costDelay:    defaultCostDelay,
		costTimeout:  defaultCostTimeout,
	}, nil
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process-wide convenience client, creating it from the
// environment on first use. The cell is single-assignment: later calls
// return the same client until ResetDefault.
func Default() (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient != nil {
		return defaultClient, nil
	}
	client, err := NewClient()
	if err != nil {
		return nil, err
	}
	defaultClient = client
	return defaultClient, nil
}

// ResetDefault clears the process-wide client. Intended for tests.
func ResetDefault() {
	defaultMu.Lock()
	defaultClient = nil
	defaultMu.Unlock()
}

// TrackCompletion meters a finished non-streaming chat completion. The
// record is built and delivered on a detached goroutine: the method never
// blocks on the network and never surfaces a metering failure to the caller.
func (c *Client) TrackCompletion(ctx context.Context, req *ChatRequest, resp *ChatResponse, start time.Time, duration time.Duration) {
	if resp == nil {
		c.logger.Warn("usage tracking skipped: nil response")
		return
	}
	c.trackAsync(req, resp, start, duration, 0)
}

// trackEventAsync converts a terminal tracking event into boundary DTOs and
// delivers the resulting record. Used by the stream interceptor.
func (c *Client) trackEventAsync(event *TrackingEvent) {
	resp := &ChatResponse{
		ID:      event.RequestID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   event.Model,
		Usage: &Usage{
			PromptTokens:     event.PromptTokens,
			CompletionTokens: event.CompletionTokens,
			TotalTokens:      event.TotalTokens,
			Cost:             event.Cost,
		},
		Choices: []Choice{{FinishReason: event.FinishReason}},
	}
	if event.ResponseContent != "" {
		resp.Choices[0].Message = &ResponseMessage{Role: "assistant", Content: event.ResponseContent}
	}

	req := &ChatRequest{
		Model:    event.Model,
		Messages: event.Messages,
		Stream:   event.IsStreamed,
		Metadata: event.Metadata,
	}

	start := time.Now().Add(-event.Duration)
	c.trackAsync(req, resp, start, event.Duration, event.TimeToFirstToken)
}

// trackAsync runs build-and-send detached from the caller. Any failure in
// the detached body is caught and logged; it can never become an unhandled
// panic or crash the host.
func (c *Client) trackAsync(req *ChatRequest, resp *ChatResponse, start time.Time, duration, timeToFirstToken time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("panic in usage tracking: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), detachedSendTimeout)
		defer cancel()

		record, err := c.buildRecord(ctx, req, resp, start, duration, timeToFirstToken)
		if err != nil {
			c.logger.Warn("usage tracking failed: %v", err)
			return
		}

		if fields := loggingContext(reqMetadata(req)); len(fields) > 0 {
			c.logger.Debug("tracking usage: transaction=%s context=%v", record.TransactionID, fields)
		}

		if err := c.send(ctx, record); err != nil {
			errType, _ := ClassifyError(err)
			c.logger.Error("failed to send usage record: type=%s transaction=%s operation=%s: %v",
				errType, record.TransactionID, record.OperationType, err)
		}

		c.PrintSummary(ctx, record)
	}()
}

func reqMetadata(req *ChatRequest) *UsageMetadata {
	if req == nil {
		return nil
	}
	return req.Metadata
}
