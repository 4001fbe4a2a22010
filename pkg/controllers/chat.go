package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
)

// ChatController keeps a conversation across turns of a session.
type ChatController struct {
	session      *SessionController
	conversation chat.Conversation
	tools        []chat.ToolSpec
	toolChoice   string
}

func NewChatController(session *SessionController, model string) *ChatController {
	return &ChatController{
		session:      session,
		conversation: chat.NewConversation(model),
	}
}

func NewChatControllerWithSystem(session *SessionController, model, systemPrompt string) *ChatController {
	return &ChatController{
		session:      session,
		conversation: chat.NewConversationWithSystem(model, systemPrompt),
	}
}

// SetTools offers specs to the model on every following turn.
func (cc *ChatController) SetTools(specs []chat.ToolSpec, choice string) {
	cc.tools = specs
	cc.toolChoice = choice
}

// SendUserMessage runs one turn, waits for its tool calls and records the
// exchange. A failed turn leaves the conversation unchanged but still returns
// the partial result.
func (cc *ChatController) SendUserMessage(ctx context.Context, content string, onChunk func(string)) (Result, []ToolOutcome, error) {
	res, err := cc.session.Run(ctx, RunRequest{
		Message:    content,
		History:    chat.GetMessages(cc.conversation),
		Tools:      cc.tools,
		ToolChoice: cc.toolChoice,
		Model:      cc.conversation.Model,
		OnChunk:    onChunk,
	})
	if errors.Is(err, ErrTurnInFlight) || errors.Is(err, ErrEmptyMessage) {
		// No turn was started, the running one keeps its outcomes.
		return res, nil, fmt.Errorf("failed to send message: %w", err)
	}
	outcomes := cc.session.Wait()
	if err != nil {
		return res, outcomes, fmt.Errorf("failed to send message: %w", err)
	}

	results := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		if o.Token != res.Token {
			continue
		}
		if o.Err != nil {
			results[o.Call.ID] = "error: " + o.Err.Error()
		} else {
			results[o.Call.ID] = o.Status
		}
	}

	cc.conversation = chat.AddTurn(cc.conversation, content, res.Text, res.ToolCalls, results)
	return res, outcomes, nil
}

func (cc *ChatController) GetHistory() []chat.Message {
	return chat.GetMessages(cc.conversation)
}

func (cc *ChatController) GetConversation() chat.Conversation {
	return cc.conversation
}

func (cc *ChatController) GetModel() string {
	return cc.conversation.Model
}

func (cc *ChatController) Session() *SessionController {
	return cc.session
}

// Reset drops every message except the system prompt.
func (cc *ChatController) Reset() {
	systemPrompt := ""
	for _, msg := range cc.conversation.Messages {
		if msg.IsSystem() {
			systemPrompt = msg.Content
			break
		}
	}
	cc.conversation = chat.NewConversationWithSystem(cc.conversation.Model, systemPrompt)
}
