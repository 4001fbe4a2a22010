package chat

type Conversation struct {
	Messages []Message
	Model    string
}

func NewConversation(model string) Conversation {
	return Conversation{
		Messages: make([]Message, 0),
		Model:    model,
	}
}

func NewConversationWithSystem(model, systemPrompt string) Conversation {
	conv := NewConversation(model)
	if systemPrompt != "" {
		conv = AddMessage(conv, NewSystemMessage(systemPrompt))
	}
	return conv
}

func AddMessage(conv Conversation, msg Message) Conversation {
	messages := make([]Message, len(conv.Messages)+1)
	copy(messages, conv.Messages)
	messages[len(conv.Messages)] = msg

	return Conversation{
		Messages: messages,
		Model:    conv.Model,
	}
}

// AddTurn records a finished turn: the user prompt, the assistant reply with
// its tool calls, and one tool message per call that produced a result.
func AddTurn(conv Conversation, prompt, reply string, calls []ToolCall, results map[string]string) Conversation {
	conv = AddMessage(conv, NewUserMessage(prompt))
	conv = AddMessage(conv, NewAssistantMessageWithToolCalls(reply, calls))
	for _, call := range calls {
		if result, ok := results[call.ID]; ok {
			conv = AddMessage(conv, NewToolResultMessage(call, result))
		}
	}
	return conv
}

func GetMessages(conv Conversation) []Message {
	result := make([]Message, len(conv.Messages))
	copy(result, conv.Messages)
	return result
}

func GetLastMessage(conv Conversation) (Message, bool) {
	if len(conv.Messages) == 0 {
		return Message{}, false
	}
	return conv.Messages[len(conv.Messages)-1], true
}

func GetLastAssistantMessage(conv Conversation) (Message, bool) {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].IsAssistant() {
			return conv.Messages[i], true
		}
	}
	return Message{}, false
}

func IsEmpty(conv Conversation) bool {
	return len(conv.Messages) == 0
}
