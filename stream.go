package revenium

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// ChunkStream is the minimal surface of a streaming chat completion: Recv
// returns the next chunk or io.EOF at natural end, and Close releases the
// stream.
type ChunkStream interface {
	Recv() (*ChatCompletionChunk, error)
	Close() error
}

// Stream decorates a ChunkStream with usage metering. Every chunk is
// forwarded to the consumer unchanged; token counters, timing, and
// (optionally) content are accumulated on the side.
//
// A Stream is single-pass and non-restartable. Exactly one tracking record
// is emitted per Stream, on whichever terminal path fires first: natural end
// (the last chunk's finish reason), a propagated receive error ("error"), or
// Close before natural end ("cancelled"). Errors from the inner stream are
// returned to the consumer unchanged; metering stays on the side channel.
type Stream struct {
	inner    ChunkStream
	client   *Client
	model    string
	messages []ChatMessage
	metadata *UsageMetadata
	start    time.Time

	mu               sync.Mutex
	completed        bool
	sawFirstChunk    bool
	timeToFirstToken time.Duration
	usage            Usage
	cost             *CostDetail
	finishReason     string
	requestID        string
	capture          bool
	content          strings.Builder
	contentLimit     int
}

// WrapStream decorates a streaming chat completion with usage metering.
// The request's stream start time is taken as the moment of wrapping.
func (c *Client) WrapStream(ctx context.Context, inner ChunkStream, req *ChatRequest) *Stream {
	var metadata *UsageMetadata
	var messages []ChatMessage
	model := ""
	if req != nil {
		metadata = req.Metadata
		messages = req.Messages
		model = req.Model
	}
	return &Stream{
		inner:        inner,
		client:       c,
		model:        model,
		messages:     messages,
		metadata:     metadata,
		start:        time.Now(),
		capture:      shouldCapturePrompts(metadata, c.cfg),
		contentLimit: c.cfg.maxPromptSize(),
	}
}

// Recv returns the next chunk from the inner stream, unchanged. On natural
// end it returns io.EOF after emitting the tracking record; on any other
// error it emits an "error" record and returns the original error.
func (s *Stream) Recv() (*ChatCompletionChunk, error) {
	chunk, err := s.inner.Recv()
	if err == io.EOF {
		s.finish(s.lastFinishReason())
		return nil, io.EOF
	}
	if err != nil {
		s.finish("error")
		return nil, err
	}

	s.observe(chunk)
	return chunk, nil
}

// Close closes the inner stream. If the stream was abandoned before its
// natural end, a "cancelled" tracking record is emitted.
func (s *Stream) Close() error {
	err := s.inner.Close()
	s.finish("cancelled")
	return err
}

func (s *Stream) observe(chunk *ChatCompletionChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.sawFirstChunk {
		s.sawFirstChunk = true
		s.timeToFirstToken = time.Since(s.start)
	}

	if chunk.ID != "" {
		s.requestID = chunk.ID
	}

	// Providers report cumulative counters, so the last chunk wins.
	if chunk.Usage != nil {
		s.usage.PromptTokens = chunk.Usage.PromptTokens
		s.usage.CompletionTokens = chunk.Usage.CompletionTokens
		s.usage.TotalTokens = chunk.Usage.TotalTokens
		if chunk.Usage.Cost != nil {
			s.cost = chunk.Usage.Cost
		}
	}

	if len(chunk.Choices) > 0 {
		if fr := chunk.Choices[0].FinishReason; fr != "" {
			s.finishReason = fr
		}
		if s.capture {
			if delta := chunk.Choices[0].Delta; delta != nil && delta.Content != "" {
				s.appendContent(delta.Content)
			}
		}
	}
}

// appendContent buffers streamed content up to the remaining capacity of the
// prompt size limit. Called with s.mu held.
func (s *Stream) appendContent(content string) {
	remaining := s.contentLimit - s.content.Len()
	if remaining <= 0 {
		return
	}
	if len(content) > remaining {
		content = content[:remaining]
	}
	s.content.WriteString(content)
}

func (s *Stream) lastFinishReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishReason
}

// finish emits the terminal tracking record. The completed guard makes the
// emission fire exactly once across all exit paths.
func (s *Stream) finish(finishReason string) {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.completed = true

	event := &TrackingEvent{
		RequestID:        s.requestID,
		Model:            s.model,
		PromptTokens:     s.usage.PromptTokens,
		CompletionTokens: s.usage.CompletionTokens,
		TotalTokens:      s.usage.TotalTokens,
		Duration:         time.Since(s.start),
		FinishReason:     finishReason,
		IsStreamed:       true,
		TimeToFirstToken: s.timeToFirstToken,
		Cost:             s.cost,
		Metadata:         s.metadata,
		Messages:         s.messages,
	}
	if s.capture {
		event.ResponseContent = s.content.String()
	}
	s.mu.Unlock()

	s.client.trackEventAsync(event)
}
