package stream

import (
	"bytes"
	"encoding/json"
	"sync/atomic"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
)

var log = logger.WithComponent("stream")

// Frame discriminators understood by the decoder.
const (
	TypeChunk         = "chunk"
	TypeToolCall      = "tool_call"
	TypeToolCallStart = "tool_call_start"
	TypeToolCallDelta = "tool_call_delta"
	TypeToolCallDone  = "tool_call_done"
	TypeComplete      = "complete"
	TypeError         = "error"

	typeItemAdded     = "response.output_item.added"
	typeItemDone      = "response.output_item.done"
	typeArgsDelta     = "response.function_call_arguments.delta"
	typeArgsDone      = "response.function_call_arguments.done"
	typeOutputText    = "response.output_text.delta"
	typeRespCompleted = "response.completed"
	typeRespFailed    = "response.failed"
)

const doneSentinel = "[DONE]"

// Decoder turns raw frames into Events. It never returns an error: anything
// it cannot interpret is counted as dropped and skipped.
type Decoder struct {
	decoded atomic.Int64
	dropped atomic.Int64
}

// NewDecoder creates a new decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode interprets one line of the stream. Accepted forms are an SSE data
// line ("data: {...}") or a bare JSON object. Comments, SSE field lines other
// than data, blank lines and the [DONE] sentinel yield no event.
func (d *Decoder) Decode(frame []byte) (Event, bool) {
	payload, ok := framePayload(frame)
	if !ok {
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		d.drop("malformed frame %.80q: %v", payload, err)
		return nil, false
	}
	return d.DecodeObject(obj)
}

// DecodeObject interprets an already-parsed frame.
func (d *Decoder) DecodeObject(obj map[string]any) (Event, bool) {
	ev, ok := decodeObject(obj)
	if !ok {
		d.drop("unrecognized frame type %q", str(obj["type"]))
		return nil, false
	}
	d.decoded.Add(1)
	return ev, true
}

// Stats returns how many frames produced an event and how many were dropped.
func (d *Decoder) Stats() (decoded, dropped int64) {
	return d.decoded.Load(), d.dropped.Load()
}

func (d *Decoder) drop(format string, args ...any) {
	d.dropped.Add(1)
	log.Debug("dropping frame: "+format, args...)
}

func framePayload(frame []byte) ([]byte, bool) {
	line := bytes.TrimSpace(frame)
	if len(line) == 0 || line[0] == ':' {
		return nil, false
	}

	if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
		line = bytes.TrimSpace(rest)
	} else if isSSEField(line) {
		return nil, false
	}

	if len(line) == 0 || string(line) == doneSentinel {
		return nil, false
	}
	return line, true
}

func isSSEField(line []byte) bool {
	for _, field := range []string{"event:", "id:", "retry:"} {
		if bytes.HasPrefix(line, []byte(field)) {
			return true
		}
	}
	return false
}

func decodeObject(obj map[string]any) (Event, bool) {
	typ := str(obj["type"])
	switch typ {
	case TypeChunk:
		if content, ok := obj["content"].(string); ok {
			return TextChunk{Content: content}, true
		}
		return legacyText(obj)

	case TypeToolCall:
		raw, ok := obj[TypeToolCall].(map[string]any)
		if !ok {
			return nil, false
		}
		call, ok := parseToolCall(raw)
		if !ok {
			return nil, false
		}
		input := call.Function.Arguments
		return ToolCallDone{ItemID: call.ID, CallID: call.ID, Name: call.Function.Name, Input: &input}, true

	case TypeToolCallStart:
		id := itemID(obj)
		if id == "" {
			return nil, false
		}
		return ToolCallStart{ItemID: id, CallID: str(obj["call_id"]), Name: str(obj["name"])}, true

	case TypeToolCallDelta, typeArgsDelta:
		id := itemID(obj)
		delta, ok := obj["delta"].(string)
		if id == "" || !ok {
			return nil, false
		}
		return ToolCallDelta{ItemID: id, Delta: delta}, true

	case TypeToolCallDone:
		id := itemID(obj)
		if id == "" {
			return nil, false
		}
		return ToolCallDone{ItemID: id, CallID: str(obj["call_id"]), Name: str(obj["name"]), Input: arguments(obj["input"])}, true

	case typeArgsDone:
		id := itemID(obj)
		if id == "" {
			return nil, false
		}
		return ToolCallDone{ItemID: id, Name: str(obj["name"]), Input: arguments(obj["arguments"])}, true

	case typeItemAdded, typeItemDone:
		item, ok := obj["item"].(map[string]any)
		if !ok || str(item["type"]) != "function_call" {
			return nil, false
		}
		id := str(item["id"])
		if id == "" {
			id = itemID(obj)
		}
		if id == "" {
			return nil, false
		}
		if typ == typeItemAdded {
			return ToolCallStart{ItemID: id, CallID: str(item["call_id"]), Name: str(item["name"])}, true
		}
		return ToolCallDone{ItemID: id, CallID: str(item["call_id"]), Name: str(item["name"]), Input: arguments(item["arguments"])}, true

	case typeOutputText:
		delta, ok := obj["delta"].(string)
		if !ok {
			return nil, false
		}
		return TextChunk{Content: delta}, true

	case TypeComplete:
		return decodeComplete(obj), true

	case typeRespCompleted:
		resp, _ := obj["response"].(map[string]any)
		reason := str(resp["status"])
		if reason == "" || reason == "completed" {
			reason = "stop"
		}
		return Complete{Response: outputText(resp, "text"), FinishReason: reason}, true

	case TypeError:
		return ErrorEvent{Message: errorMessage(obj)}, true

	case typeRespFailed:
		resp, _ := obj["response"].(map[string]any)
		return ErrorEvent{Message: errorMessage(resp)}, true

	case "", "text", "message", "delta", "content":
		return legacyText(obj)
	}
	return nil, false
}

// legacyText recognizes the older text-delta shapes some servers still emit.
func legacyText(obj map[string]any) (Event, bool) {
	for _, key := range []string{"delta", "content", "text"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return TextChunk{Content: s}, true
		}
	}
	if s := outputText(obj, "delta"); s != "" {
		return TextChunk{Content: s}, true
	}
	return nil, false
}

// outputText concatenates output[].content[].<field> strings.
func outputText(obj map[string]any, field string) string {
	outputs, _ := obj["output"].([]any)
	var buf bytes.Buffer
	for _, o := range outputs {
		om, _ := o.(map[string]any)
		parts, _ := om["content"].([]any)
		for _, p := range parts {
			pm, _ := p.(map[string]any)
			if s, ok := pm[field].(string); ok {
				buf.WriteString(s)
			}
		}
	}
	return buf.String()
}

func decodeComplete(obj map[string]any) Complete {
	complete := Complete{
		Response:     str(obj["response"]),
		FinishReason: str(obj["finish_reason"]),
	}
	raw, _ := obj["tool_calls"].([]any)
	for _, r := range raw {
		rm, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if call, ok := parseToolCall(rm); ok {
			complete.ToolCalls = append(complete.ToolCalls, call)
		}
	}
	return complete
}

func parseToolCall(raw map[string]any) (chat.ToolCall, bool) {
	fn, _ := raw["function"].(map[string]any)
	name := str(fn["name"])
	if name == "" {
		name = str(raw["name"])
	}
	if name == "" {
		return chat.ToolCall{}, false
	}

	args := arguments(fn["arguments"])
	if args == nil {
		args = arguments(raw["arguments"])
	}
	var argText string
	if args != nil {
		argText = *args
	}
	return chat.NewToolCall(str(raw["id"]), name, argText), true
}

// arguments accepts either a JSON string or an inline object.
func arguments(v any) *string {
	switch a := v.(type) {
	case nil:
		return nil
	case string:
		return &a
	default:
		data, err := json.Marshal(a)
		if err != nil {
			return nil
		}
		s := string(data)
		return &s
	}
}

func errorMessage(obj map[string]any) string {
	if msg := str(obj["message"]); msg != "" {
		return msg
	}
	switch e := obj["error"].(type) {
	case string:
		if e != "" {
			return e
		}
	case map[string]any:
		if msg := str(e["message"]); msg != "" {
			return msg
		}
	}
	return "unknown server error"
}

func itemID(obj map[string]any) string {
	for _, key := range []string{"item_id", "itemId", "id"} {
		if s := str(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
