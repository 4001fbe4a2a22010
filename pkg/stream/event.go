package stream

import "github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"

// Event is one decoded stream frame. The set of implementations is closed.
type Event interface {
	event()
}

// TextChunk carries a piece of assistant text.
type TextChunk struct {
	Content string
}

// ToolCallStart opens a fragmented function call.
type ToolCallStart struct {
	ItemID string
	CallID string // provider call id when it differs from ItemID
	Name   string
}

// ToolCallDelta appends argument text to an open call.
type ToolCallDelta struct {
	ItemID string
	Delta  string
}

// ToolCallDone closes a call. A non-nil Input replaces whatever was accumulated.
type ToolCallDone struct {
	ItemID string
	CallID string
	Name   string
	Input  *string
}

// Complete ends the turn.
type Complete struct {
	Response     string
	ToolCalls    []chat.ToolCall
	FinishReason string
}

// ErrorEvent is a server-reported failure.
type ErrorEvent struct {
	Message string
}

func (TextChunk) event()     {}
func (ToolCallStart) event() {}
func (ToolCallDelta) event() {}
func (ToolCallDone) event()  {}
func (Complete) event()      {}
func (ErrorEvent) event()    {}
