package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/chat"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
)

// StatusDiscarded is reported for calls whose turn was invalidated before
// their effects could be applied.
const StatusDiscarded = "discarded: turn was superseded"

// Executor routes assembled tool calls to their handlers.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an executor over registry
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Registry returns the registry the executor dispatches to
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs one call. Unknown tools and bad arguments are returned as
// errors. Failures applying a valid call are logged and reported through the
// status string with a nil error.
func (e *Executor) Execute(ctx context.Context, call chat.ToolCall) (string, error) {
	h, err := e.registry.Get(call.Function.Name)
	if err != nil {
		log.Warn("rejecting call %s: %v", call.ID, err)
		return "", err
	}

	status, err := h.Handle(ctx, call.Function.Arguments)

	var execErr *ExecutionError
	switch {
	case errors.As(err, &execErr):
		if errors.Is(err, graph.ErrStaleTurn) {
			log.Debug("discarding call %s from a superseded turn", call.ID)
			return StatusDiscarded, nil
		}
		log.Error("call %s failed: %v", call.ID, err)
		return fmt.Sprintf("failed: %v", execErr), nil
	case err != nil:
		log.Warn("call %s rejected: %v", call.ID, err)
		return "", err
	}

	log.Info("call %s (%s): %s", call.ID, call.Function.Name, status)
	return status, nil
}
