// Package tokens estimates how many model tokens a turn costs.
package tokens

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
	"github.com/pkoukk/tiktoken-go"
)

var log = logger.WithComponent("tokens")

// LoadTimeout bounds how long NewCounter waits for the BPE ranks, which are
// downloaded on first use.
var LoadTimeout = 5 * time.Second

// perMessage approximates the boundary markers a chat template adds per message.
const perMessage = 4

// Counter counts tokens with a BPE encoding, or estimates them when the
// encoding cannot be loaded.
type Counter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.RWMutex
}

// NewCounter picks the encoding for modelName. It never fails: without an
// encoder the counter falls back to estimation.
func NewCounter(modelName string) *Counter {
	encoder, err := loadEncoding(encodingForModel(modelName), LoadTimeout)
	if err != nil {
		log.Warn("token encoding unavailable for %s, estimating: %v", modelName, err)
		return &Counter{}
	}
	return &Counter{encoder: encoder}
}

func loadEncoding(name string, timeout time.Duration) (*tiktoken.Tiktoken, error) {
	type loaded struct {
		enc *tiktoken.Tiktoken
		err error
	}
	done := make(chan loaded, 1)
	go func() {
		enc, err := tiktoken.GetEncoding(name)
		done <- loaded{enc, err}
	}()

	select {
	case l := <-done:
		return l.enc, l.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("loading %s timed out after %s", name, timeout)
	}
}

// Exact reports whether counts come from a real encoding.
func (c *Counter) Exact() bool {
	return c.encoder != nil
}

// Count counts the tokens in text
func (c *Counter) Count(text string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.encoder == nil {
		return Estimate(text)
	}
	return len(c.encoder.Encode(text, nil, nil))
}

// CountMessages counts a conversation, tool call arguments included.
func (c *Counter) CountMessages(messages []chat.Message) int {
	total := 0
	for _, msg := range messages {
		total += c.CountMessage(msg)
	}
	return total + 3 // every reply is primed with the assistant role
}

func (c *Counter) CountMessage(msg chat.Message) int {
	n := perMessage + c.Count(msg.Role) + c.Count(msg.Content)
	for _, call := range msg.ToolCalls {
		n += c.Count(call.Function.Name) + c.Count(call.Function.Arguments)
	}
	return n
}

func encodingForModel(modelName string) string {
	name := strings.ToLower(modelName)
	switch {
	case strings.Contains(name, "davinci"), strings.Contains(name, "curie"):
		return tiktoken.MODEL_P50K_BASE
	default:
		return tiktoken.MODEL_CL100K_BASE
	}
}

// Estimate guesses a token count: one per word or one per four bytes,
// whichever is higher.
func Estimate(text string) int {
	words := len(strings.Fields(text))
	chars := len(text) / 4
	if words > chars {
		return words
	}
	return chars
}
