package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeResponse is one scripted reply of a FakeLLM.
type FakeResponse struct {
	Content    string
	Chunks     []string // streamed pieces; defaults to Content as a single chunk
	ToolCalls  []llms.ToolCall
	StopReason string
}

// FakeLLM implements llms.Model with scripted replies
type FakeLLM struct {
	mu           sync.Mutex
	responses    []FakeResponse
	currentIndex int
	callCount    int
	lastMessages []llms.MessageContent
	lastOptions  llms.CallOptions
	errorOnCall  int // If > 0, return error on this call number
	errorMessage string
}

var _ llms.Model = (*FakeLLM)(nil)

// NewFakeLLM creates a new fake LLM with predefined text responses
func NewFakeLLM(responses ...string) *FakeLLM {
	f := &FakeLLM{}
	for _, r := range responses {
		f.responses = append(f.responses, FakeResponse{Content: r})
	}
	return f
}

// Call implements llms.Model
func (f *FakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

// GenerateContent returns the next scripted response, streaming its chunks
// through the streaming func when one is set.
func (f *FakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	resp, opts, err := f.next(messages, options)
	if err != nil {
		return nil, err
	}

	if opts.StreamingFunc != nil {
		chunks := resp.Chunks
		if len(chunks) == 0 && resp.Content != "" {
			chunks = []string{resp.Content}
		}
		for _, chunk := range chunks {
			if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}

	content := resp.Content
	if content == "" {
		content = strings.Join(resp.Chunks, "")
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:    content,
			StopReason: resp.StopReason,
			ToolCalls:  resp.ToolCalls,
		}},
	}, nil
}

func (f *FakeLLM) next(messages []llms.MessageContent, options []llms.CallOption) (FakeResponse, llms.CallOptions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	f.callCount++
	f.lastMessages = messages
	f.lastOptions = opts

	if f.errorOnCall > 0 && f.callCount == f.errorOnCall {
		if f.errorMessage != "" {
			return FakeResponse{}, opts, fmt.Errorf("%s", f.errorMessage)
		}
		return FakeResponse{}, opts, fmt.Errorf("fake error on call %d", f.callCount)
	}

	if len(f.responses) == 0 {
		return FakeResponse{}, opts, fmt.Errorf("no responses configured")
	}

	resp := f.responses[f.currentIndex]
	f.currentIndex = (f.currentIndex + 1) % len(f.responses)
	return resp, opts, nil
}

// AddResponse appends a scripted reply
func (f *FakeLLM) AddResponse(resp FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
}

// SetErrorOnCall configures the LLM to return an error on a specific call
func (f *FakeLLM) SetErrorOnCall(callNumber int, errorMessage string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorOnCall = callNumber
	f.errorMessage = errorMessage
}

// GetCallCount returns the number of generations served
func (f *FakeLLM) GetCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

// GetLastMessages returns the messages of the most recent generation
func (f *FakeLLM) GetLastMessages() []llms.MessageContent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMessages
}

// GetLastOptions returns the resolved options of the most recent generation
func (f *FakeLLM) GetLastOptions() llms.CallOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOptions
}

// ToolCall builds a langchaingo tool call for scripted responses
func ToolCall(id, name, arguments string) llms.ToolCall {
	return llms.ToolCall{
		ID:           id,
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: name, Arguments: arguments},
	}
}
