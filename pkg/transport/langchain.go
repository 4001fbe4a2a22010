package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/stream"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/tools"
	"github.com/tmc/langchaingo/llms"
)

// LangChainTransport drives an in-process langchaingo model and renders its
// output as the same frames the HTTP endpoint sends.
type LangChainTransport struct {
	llm   llms.Model
	model string
}

// NewLangChainTransport wraps llm. model may be empty to use the model's default.
func NewLangChainTransport(llm llms.Model, model string) *LangChainTransport {
	return &LangChainTransport{llm: llm, model: model}
}

// Open runs the generation in the background, emitting a chunk frame per
// streamed piece, a tool_call frame per requested call and a closing complete frame.
func (t *LangChainTransport) Open(ctx context.Context, req Request) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	s, frames := NewStream(cancel)

	go func() {
		defer close(frames)

		streamingFunc := func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			data, err := json.Marshal(map[string]string{"type": stream.TypeChunk, "content": string(chunk)})
			if err != nil {
				return err
			}
			if !send(ctx, frames, Frame{Data: data}) {
				return ctx.Err()
			}
			return nil
		}

		opts := append(t.options(req), llms.WithStreamingFunc(streamingFunc))
		choice, err := t.generate(ctx, req, opts)
		if err != nil {
			if ctx.Err() == nil {
				send(ctx, frames, Frame{Err: err})
			}
			return
		}

		result := toFinalResult(choice)
		for _, call := range result.ToolCalls {
			data, err := json.Marshal(map[string]any{"type": stream.TypeToolCall, "tool_call": call})
			if err != nil {
				continue
			}
			if !send(ctx, frames, Frame{Data: data}) {
				return
			}
		}

		data, err := json.Marshal(result)
		if err != nil {
			send(ctx, frames, Frame{Err: &TransportError{Op: "encode response", Cause: err}})
			return
		}
		send(ctx, frames, Frame{Data: data})
		log.Debug("langchain stream %s finished with %d tool calls", s.ID, len(result.ToolCalls))
	}()

	return s, nil
}

// OpenOnce runs the generation without streaming.
func (t *LangChainTransport) OpenOnce(ctx context.Context, req Request) (FinalResult, error) {
	choice, err := t.generate(ctx, req, t.options(req))
	if err != nil {
		return FinalResult{}, err
	}
	return toFinalResult(choice), nil
}

func (t *LangChainTransport) generate(ctx context.Context, req Request, opts []llms.CallOption) (*llms.ContentChoice, error) {
	resp, err := t.llm.GenerateContent(ctx, ToMessageContent(req), opts...)
	if err != nil {
		return nil, &TransportError{Op: "generate content", Cause: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &TransportError{Op: "generate content", Message: "no choices returned"}
	}
	return resp.Choices[0], nil
}

func (t *LangChainTransport) options(req Request) []llms.CallOption {
	var opts []llms.CallOption
	model := req.Model
	if model == "" {
		model = t.model
	}
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}
	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(tools.ToLLMTools(req.Tools)))
		if req.ToolChoice != "" {
			opts = append(opts, llms.WithToolChoice(req.ToolChoice))
		}
	}
	return opts
}

func toFinalResult(choice *llms.ContentChoice) FinalResult {
	result := FinalResult{
		Type:         stream.TypeComplete,
		Response:     choice.Content,
		FinishReason: choice.StopReason,
	}
	for i, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name == "" {
			continue
		}
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		result.ToolCalls = append(result.ToolCalls, chat.NewToolCall(id, tc.FunctionCall.Name, tc.FunctionCall.Arguments))
	}
	if result.FinishReason == "" {
		result.FinishReason = "stop"
	}
	return result
}

// ToMessageContent converts the request history, plus the trailing message if
// any, into langchaingo messages.
func ToMessageContent(req Request) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(req.Messages)+1)
	for _, msg := range req.Messages {
		switch msg.Role {
		case chat.RoleError:
			continue
		case chat.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		case chat.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   call.ID,
					Type: call.Type,
					FunctionCall: &llms.FunctionCall{
						Name:      call.Function.Name,
						Arguments: call.Function.Arguments,
					},
				})
			}
			out = append(out, mc)
		case chat.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.ToolName,
					Content:    msg.Content,
				}},
			})
		default:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		}
	}
	if req.Message != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, req.Message))
	}
	return out
}
