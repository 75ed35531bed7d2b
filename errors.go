package agentbrowser

import "github.com/g97iulio1609/agent-browser/internal/errors"

// Re-export error types from the internal package

// DaemonNotFoundError indicates the agent-browser binary was not found.
type DaemonNotFoundError = errors.DaemonNotFoundError

// ConnectionError indicates failure to spawn or connect to the daemon.
type ConnectionError = errors.ConnectionError

// ProcessError indicates the daemon process exited unexpectedly.
type ProcessError = errors.ProcessError

// RPCError is an error payload returned by the daemon for a specific call.
type RPCError = errors.RPCError

// SDKError is the base interface for all agent-browser client errors.
type SDKError = errors.SDKError

// Re-export sentinel errors from the internal package.
var (
	// ErrSessionClosed indicates the session has been closed and cannot be reused.
	ErrSessionClosed = errors.ErrSessionClosed

	// ErrCallTimeout indicates a call received no response within its timeout.
	ErrCallTimeout = errors.ErrCallTimeout

	// ErrConnClosed indicates the protocol connection has stopped.
	ErrConnClosed = errors.ErrConnClosed

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected
)
