package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/logger"
	"github.com/tmc/langchaingo/llms"
)

var log = logger.WithComponent("tools")

// Handler executes one kind of tool call.
type Handler interface {
	Name() string
	Spec() chat.ToolSpec
	Handle(ctx context.Context, arguments string) (string, error)
}

// Registry maps tool names to handlers, preserving registration order.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under its own name
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Name()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrToolExists, name)
	}

	r.handlers[name] = h
	r.order = append(r.order, name)
	log.Debug("Registered tool: %s", name)
	return nil
}

// Get looks up a handler by name
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return h, nil
}

// Names lists registered tool names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Specs returns the wire specs of every registered tool
func (r *Registry) Specs() []chat.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]chat.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.handlers[name].Spec())
	}
	return specs
}

// LLMTools converts the registered specs for langchaingo models
func (r *Registry) LLMTools() []llms.Tool {
	return ToLLMTools(r.Specs())
}

// ToLLMTools converts wire specs into langchaingo tool definitions
func ToLLMTools(specs []chat.ToolSpec) []llms.Tool {
	out := make([]llms.Tool, 0, len(specs))
	for _, spec := range specs {
		out = append(out, llms.Tool{
			Type: spec.Type,
			Function: &llms.FunctionDefinition{
				Name:        spec.Function.Name,
				Description: spec.Function.Description,
				Parameters:  spec.Function.Parameters,
			},
		})
	}
	return out
}
