package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/transport"
)

// FakeTransport replays a fixed script of frames for every streaming turn and
// a fixed result for every non-streaming one.
type FakeTransport struct {
	mu       sync.Mutex
	lines    []string
	readErr  error
	openErr  error
	once     transport.FinalResult
	onceErr  error
	hold     chan struct{}
	requests []transport.Request
	opened   chan struct{}
}

var _ transport.Transport = (*FakeTransport)(nil)

// NewFakeTransport creates a transport whose streams yield lines in order.
func NewFakeTransport(lines ...string) *FakeTransport {
	return &FakeTransport{lines: lines, opened: make(chan struct{}, 64)}
}

// WithReadError ends every stream with err after the scripted lines.
func (f *FakeTransport) WithReadError(err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
	return f
}

// WithOpenError makes Open and OpenOnce fail with err.
func (f *FakeTransport) WithOpenError(err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
	return f
}

// WithResult sets the reply of OpenOnce.
func (f *FakeTransport) WithResult(result transport.FinalResult, err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.once = result
	f.onceErr = err
	return f
}

// Hold keeps every stream open after its scripted lines until Release is
// called or the turn's context ends.
func (f *FakeTransport) Hold() *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = make(chan struct{})
	return f
}

// Release lets held streams finish.
func (f *FakeTransport) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold != nil {
		close(f.hold)
		f.hold = nil
	}
}

// Opened is signalled once per Open call.
func (f *FakeTransport) Opened() <-chan struct{} {
	return f.opened
}

// Requests returns every request seen so far.
func (f *FakeTransport) Requests() []transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Open implements transport.Transport
func (f *FakeTransport) Open(ctx context.Context, req transport.Request) (*transport.Stream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	lines, readErr, openErr, hold := f.lines, f.readErr, f.openErr, f.hold
	f.mu.Unlock()

	select {
	case f.opened <- struct{}{}:
	default:
	}

	if openErr != nil {
		return nil, openErr
	}

	ctx, cancel := context.WithCancel(ctx)
	s, frames := transport.NewStream(cancel)

	go func() {
		defer close(frames)
		for _, line := range lines {
			select {
			case frames <- transport.Frame{Data: []byte(line)}:
			case <-ctx.Done():
				return
			}
		}
		if hold != nil {
			select {
			case <-hold:
			case <-ctx.Done():
				return
			}
		}
		if readErr != nil {
			select {
			case frames <- transport.Frame{Err: readErr}:
			case <-ctx.Done():
			}
		}
	}()
	return s, nil
}

// OpenOnce implements transport.Transport
func (f *FakeTransport) OpenOnce(_ context.Context, req transport.Request) (transport.FinalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.openErr != nil {
		return transport.FinalResult{}, f.openErr
	}
	return f.once, f.onceErr
}

// Frame helpers for building scripts.

// ChunkFrame renders a text chunk as an SSE data line.
func ChunkFrame(content string) string {
	return dataLine(map[string]any{"type": "chunk", "content": content})
}

// ToolCallFrame renders a whole tool call as an SSE data line.
func ToolCallFrame(id, name, arguments string) string {
	return dataLine(map[string]any{
		"type": "tool_call",
		"tool_call": map[string]any{
			"id":       id,
			"type":     "function",
			"function": map[string]any{"name": name, "arguments": arguments},
		},
	})
}

// StartFrame, DeltaFrame and DoneFrame render fragmented tool-call events.
func StartFrame(itemID, name string) string {
	return dataLine(map[string]any{"type": "tool_call_start", "item_id": itemID, "name": name})
}

func DeltaFrame(itemID, delta string) string {
	return dataLine(map[string]any{"type": "tool_call_delta", "item_id": itemID, "delta": delta})
}

func DoneFrame(itemID string) string {
	return dataLine(map[string]any{"type": "tool_call_done", "item_id": itemID})
}

// CompleteFrame renders the closing frame of a turn.
func CompleteFrame(response string, calls ...map[string]any) string {
	frame := map[string]any{"type": "complete", "response": response, "finish_reason": "stop"}
	if len(calls) > 0 {
		frame["tool_calls"] = calls
	}
	return dataLine(frame)
}

// ErrorFrame renders a server error frame.
func ErrorFrame(message string) string {
	return dataLine(map[string]any{"type": "error", "message": message})
}

func dataLine(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return "data: " + string(data)
}
