package server

import (
	"errors"
	"fmt"

	"github.com/vango-dev/dragula/pkg/drake"
	"github.com/vango-dev/dragula/pkg/protocol"
)

// Sentinel errors for common session and server error conditions.
var (
	// ErrSessionClosed is returned when an operation is attempted on a closed session.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrSessionNotFound is returned when a session ID does not exist.
	ErrSessionNotFound = errors.New("server: session not found")

	// ErrActionQueueFull is returned when the action queue is full and an action is dropped.
	ErrActionQueueFull = errors.New("server: action queue full")

	// ErrInvalidHandshake is returned when the WebSocket handshake fails.
	ErrInvalidHandshake = errors.New("server: invalid handshake")

	// ErrMaxSessionsReached is returned when the maximum number of sessions is reached.
	ErrMaxSessionsReached = errors.New("server: max sessions reached")

	// ErrNoConnection is returned when attempting to send on a nil connection.
	ErrNoConnection = errors.New("server: no connection")

	// ErrUnknownBag is returned when an action names a bag the session does not serve.
	ErrUnknownBag = errors.New("server: unknown bag")

	// ErrUnknownNode is returned when an action names a HID with no node.
	ErrUnknownNode = errors.New("server: unknown node")

	// ErrNoDispatch is returned when a workspace defers by delay but has no
	// way to run tasks on its own goroutine.
	ErrNoDispatch = errors.New("server: delay scheduling needs a dispatch function")

	// ErrNoSnapshotStore is returned when snapshots are requested but no store is configured.
	ErrNoSnapshotStore = errors.New("server: no snapshot store")
)

// SessionError wraps an error with session context for debugging.
type SessionError struct {
	SessionID string
	Op        string // Operation that failed
	Err       error  // Underlying error
}

// Error returns the error message with session context.
func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// errorCode maps an action error to its wire code and its internal/errors
// registry code.
func errorCode(err error) (protocol.ErrorCode, string) {
	switch {
	case errors.Is(err, ErrUnknownBag):
		return protocol.ErrUnknownBag, "E301"
	case errors.Is(err, ErrUnknownNode):
		return protocol.ErrUnknownNode, "E302"
	case errors.Is(err, drake.ErrNotDraggable), errors.Is(err, drake.ErrDragging), errors.Is(err, drake.ErrDestroyed):
		return protocol.ErrNotDraggable, "E303"
	case errors.Is(err, protocol.ErrUnknownAction):
		return protocol.ErrInvalidAction, "E201"
	case errors.Is(err, ErrActionQueueFull):
		return protocol.ErrRateLimited, "E305"
	default:
		return protocol.ErrServerError, "E306"
	}
}
