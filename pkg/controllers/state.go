package controllers

import (
	"errors"
	"fmt"
)

// TurnState is the lifecycle position of the session's latest turn.
type TurnState int

const (
	TurnIdle TurnState = iota
	TurnSending
	TurnStreaming
	TurnCompleted
	TurnFailed
)

// String returns the string representation of the state
func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnSending:
		return "sending"
	case TurnStreaming:
		return "streaming"
	case TurnCompleted:
		return "completed"
	case TurnFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InFlight reports whether a turn in this state still holds the session.
func (s TurnState) InFlight() bool {
	return s == TurnSending || s == TurnStreaming
}

var (
	// ErrTurnInFlight is returned by Run while another turn is running.
	ErrTurnInFlight = errors.New("a turn is already in flight")
	// ErrTurnInvalidated ends a turn whose token was revoked mid-stream.
	ErrTurnInvalidated = errors.New("turn was invalidated")
	// ErrEmptyMessage rejects a turn with nothing to send.
	ErrEmptyMessage = errors.New("message content cannot be empty")
)

// ServerError is an error frame sent by the backend.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Message)
}
