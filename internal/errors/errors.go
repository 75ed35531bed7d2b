package errors

import (
	"errors"
	"fmt"
)

// SDKError is the base interface for all agent-browser client errors.
type SDKError interface {
	error
	IsAgentBrowserError() bool
}

// Compile-time verification that all error types implement SDKError.
var (
	_ SDKError = (*DaemonNotFoundError)(nil)
	_ SDKError = (*ConnectionError)(nil)
	_ SDKError = (*ProcessError)(nil)
	_ SDKError = (*RPCError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrSessionClosed indicates the session has been closed and cannot be reused.
	ErrSessionClosed = errors.New("session closed: sessions are single-use, open a new one with Open()")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrCallTimeout indicates a call received no response within its timeout.
	ErrCallTimeout = errors.New("call timeout")

	// ErrConnClosed indicates the protocol connection has stopped.
	ErrConnClosed = errors.New("connection closed")

	// ErrStdinClosed indicates stdin was closed due to context cancellation.
	ErrStdinClosed = errors.New("stdin closed")
)

// DaemonNotFoundError indicates the agent-browser daemon binary was not found.
type DaemonNotFoundError struct {
	SearchedPaths []string
}

func (e *DaemonNotFoundError) Error() string {
	return fmt.Sprintf("agent-browser binary not found in: %v", e.SearchedPaths)
}

// IsAgentBrowserError implements SDKError.
func (e *DaemonNotFoundError) IsAgentBrowserError() bool { return true }

// ConnectionError indicates failure to spawn or connect to the daemon.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to daemon: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsAgentBrowserError implements SDKError.
func (e *ConnectionError) IsAgentBrowserError() bool { return true }

// ProcessError indicates the daemon process exited unexpectedly.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("daemon process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("daemon process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsAgentBrowserError implements SDKError.
func (e *ProcessError) IsAgentBrowserError() bool { return true }

// RPCError is an error payload returned by the daemon for a specific call.
//
// It carries the JSON-RPC error object fields. An RPCError is scoped to the
// call that produced it and says nothing about the health of the session.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("rpc error: %s", e.Message)
}

// IsAgentBrowserError implements SDKError.
func (e *RPCError) IsAgentBrowserError() bool { return true }
