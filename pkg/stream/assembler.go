package stream

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
)

// accumulator collects the fragments of one function call.
type accumulator struct {
	itemID string
	callID string
	name   string
	args   strings.Builder
}

// ToolCallAssembler rebuilds fragmented function calls and emits each one
// exactly once, in the order their Done events arrive. It is driven by a
// single read loop and is not safe for concurrent use.
type ToolCallAssembler struct {
	active  map[string]*accumulator
	emitted map[string]struct{}
	synth   int
}

// NewToolCallAssembler creates an empty assembler
func NewToolCallAssembler() *ToolCallAssembler {
	return &ToolCallAssembler{
		active:  make(map[string]*accumulator),
		emitted: make(map[string]struct{}),
	}
}

// Observe feeds one event. It returns a finished call when ev closes one.
// Events other than Start, Delta and Done are ignored.
func (a *ToolCallAssembler) Observe(ev Event) (chat.ToolCall, bool) {
	switch e := ev.(type) {
	case ToolCallStart:
		if a.isEmitted(e.ItemID) {
			return chat.ToolCall{}, false
		}
		acc := a.getOrCreate(e.ItemID)
		if e.Name != "" {
			acc.name = e.Name
		}
		if e.CallID != "" {
			acc.callID = e.CallID
		}

	case ToolCallDelta:
		if a.isEmitted(e.ItemID) {
			log.Debug("ignoring delta for finished call %s", e.ItemID)
			return chat.ToolCall{}, false
		}
		acc := a.getOrCreate(e.ItemID)
		acc.args.WriteString(e.Delta)

	case ToolCallDone:
		return a.finish(e)
	}
	return chat.ToolCall{}, false
}

func (a *ToolCallAssembler) finish(e ToolCallDone) (chat.ToolCall, bool) {
	itemID := e.ItemID
	if itemID == "" {
		itemID = a.SyntheticID()
	}
	if a.isEmitted(itemID) {
		log.Debug("ignoring duplicate completion for call %s", itemID)
		return chat.ToolCall{}, false
	}

	acc := a.getOrCreate(itemID)
	if acc.name == "" {
		acc.name = e.Name
	}
	if acc.callID == "" {
		acc.callID = e.CallID
	}

	args := acc.args.String()
	if e.Input != nil {
		args = *e.Input
	}

	id := acc.callID
	if id == "" {
		id = itemID
	}

	delete(a.active, itemID)
	a.emitted[itemID] = struct{}{}
	return chat.NewToolCall(id, acc.name, args), true
}

// SyntheticID returns the next id in the sequence used for calls that arrive
// without one. Callers naming calls outside the assembler draw from it too.
func (a *ToolCallAssembler) SyntheticID() string {
	a.synth++
	return fmt.Sprintf("call_%d", a.synth)
}

func (a *ToolCallAssembler) getOrCreate(itemID string) *accumulator {
	if acc, ok := a.active[itemID]; ok {
		return acc
	}
	acc := &accumulator{itemID: itemID}
	a.active[itemID] = acc
	return acc
}

func (a *ToolCallAssembler) isEmitted(itemID string) bool {
	_, ok := a.emitted[itemID]
	return ok
}

// Pending returns the item ids still accumulating, sorted.
func (a *ToolCallAssembler) Pending() []string {
	ids := make([]string, 0, len(a.active))
	for id := range a.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset discards all state.
func (a *ToolCallAssembler) Reset() {
	a.active = make(map[string]*accumulator)
	a.emitted = make(map[string]struct{})
	a.synth = 0
}
