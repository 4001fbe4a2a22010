// Package transport opens chat turns against a backend and hands back the raw
// response frames. Decoding and assembly happen downstream.
package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
	"github.com/google/uuid"
)

var log = logger.WithComponent("transport")

// Request is the body of one chat turn.
type Request struct {
	Message          string          `json:"message,omitempty"`
	Messages         []chat.Message  `json:"messages,omitempty"`
	Model            string          `json:"model,omitempty"`
	Tools            []chat.ToolSpec `json:"tools,omitempty"`
	ToolChoice       string          `json:"tool_choice,omitempty"`
	AcceptsStreaming bool            `json:"acceptsStreaming"`
}

// FinalResult is what both the streaming and the non-streaming path reduce to.
type FinalResult struct {
	Type         string          `json:"type,omitempty"`
	Response     string          `json:"response"`
	ToolCalls    []chat.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// Frame is one raw line of a response, or the error that ended it.
type Frame struct {
	Data []byte
	Err  error
}

// Stream is an open streaming response. Frames is closed after the last
// frame; a read failure arrives as a final Frame with Err set.
type Stream struct {
	ID     string
	Frames <-chan Frame

	cancel context.CancelFunc
	once   sync.Once
}

// NewStream creates a stream and the channel its producer writes to. cancel
// is called once on Close.
func NewStream(cancel context.CancelFunc) (*Stream, chan<- Frame) {
	frames := make(chan Frame, 100)
	return &Stream{
		ID:     uuid.NewString(),
		Frames: frames,
		cancel: cancel,
	}, frames
}

// Close abandons the response and releases the connection.
func (s *Stream) Close() {
	s.once.Do(s.cancel)
}

// Transport is the backend a session talks to.
type Transport interface {
	// Open starts a streaming turn.
	Open(ctx context.Context, req Request) (*Stream, error)
	// OpenOnce runs a turn without streaming.
	OpenOnce(ctx context.Context, req Request) (FinalResult, error)
}

// TransportError is any failure to reach the backend or read its response.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("transport: %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// send delivers f unless ctx ends first.
func send(ctx context.Context, frames chan<- Frame, f Frame) bool {
	select {
	case frames <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
