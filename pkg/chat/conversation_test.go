package chat_test

import (
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Conversation lookups", func() {
	It("should skip the system message when the prompt is empty", func() {
		Expect(chat.IsEmpty(chat.NewConversationWithSystem("m", ""))).To(BeTrue())

		conv := chat.NewConversationWithSystem("m", "be brief")
		first, ok := chat.GetLastMessage(conv)
		Expect(ok).To(BeTrue())
		Expect(first.IsSystem()).To(BeTrue())
	})

	It("should report missing messages", func() {
		conv := chat.NewConversation("m")
		_, ok := chat.GetLastMessage(conv)
		Expect(ok).To(BeFalse())
		_, ok = chat.GetLastAssistantMessage(conv)
		Expect(ok).To(BeFalse())
	})

	It("should leave unanswered calls without a tool message", func() {
		calls := []chat.ToolCall{chat.NewToolCall("c1", "create_flowchart", `{}`)}
		conv := chat.AddTurn(chat.NewConversation("m"), "go", "", calls, nil)

		Expect(chat.GetMessages(conv)).To(HaveLen(2))
		last, _ := chat.GetLastMessage(conv)
		Expect(last.HasToolCalls()).To(BeTrue())
	})
})
