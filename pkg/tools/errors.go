package tools

import (
	"errors"
	"fmt"
)

// ErrToolExists is returned when registering a name twice.
var ErrToolExists = errors.New("tool already registered")

// UnknownToolError means the model asked for a tool nobody registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ToolArgumentError means the call's arguments could not be used.
type ToolArgumentError struct {
	Tool    string
	Field   string
	Message string
	Cause   error
}

func (e *ToolArgumentError) Error() string {
	msg := fmt.Sprintf("%s: invalid arguments", e.Tool)
	if e.Field != "" {
		msg += fmt.Sprintf(": %s", e.Field)
	}
	if e.Message != "" {
		msg += fmt.Sprintf(": %s", e.Message)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ToolArgumentError) Unwrap() error {
	return e.Cause
}

// ExecutionError wraps a failure while applying a valid call to the graph or store.
type ExecutionError struct {
	Tool      string
	Operation string
	Cause     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Tool, e.Operation, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// IsUnknownTool reports whether err is an UnknownToolError.
func IsUnknownTool(err error) bool {
	var target *UnknownToolError
	return errors.As(err, &target)
}

// IsArgumentError reports whether err is a ToolArgumentError.
func IsArgumentError(err error) bool {
	var target *ToolArgumentError
	return errors.As(err, &target)
}
