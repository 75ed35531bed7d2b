package agentbrowser

import (
	"context"
	"encoding/json"
	"time"
)

// State describes where a session is in its lifecycle.
//
// Sessions move strictly forward: Unstarted -> Initializing -> Ready ->
// Closed. Closed is terminal.
type State int

const (
	// StateUnstarted is a session that has not spawned its daemon yet.
	StateUnstarted State = iota

	// StateInitializing covers the spawn and handshake window.
	StateInitializing

	// StateReady means the handshake completed and calls are meaningful.
	StateReady

	// StateClosed means the daemon has been terminated. Terminal.
	StateClosed
)

// String returns the lifecycle state name.
func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Notification is a one-way message from the daemon: an event with no id and
// no expected reply.
type Notification struct {
	// Method names the event.
	Method string

	// Params carries the raw event payload.
	Params json.RawMessage
}

// Session is an open connection to an agent-browser daemon.
//
// A session is single-use: once closed it cannot be reopened. Calls issued
// concurrently may complete in any order; each call is correlated to its own
// response and bounded by its own timeout.
type Session interface {
	// Call invokes a daemon method and waits for its result, using the
	// session's default call timeout.
	//
	// The returned payload is the raw result value. A daemon-reported
	// failure surfaces as *RPCError; an elapsed timeout as a wrapped
	// ErrCallTimeout; a dead daemon as *ProcessError or ErrConnClosed.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// CallWithTimeout is Call with an explicit per-call timeout.
	CallWithTimeout(
		ctx context.Context,
		method string,
		params any,
		timeout time.Duration,
	) (json.RawMessage, error)

	// Notify sends a fire-and-forget notification. It returns once the
	// frame is written; no response is expected and no timer is started.
	Notify(ctx context.Context, method string, params any) error

	// Notifications returns the stream of daemon-initiated events.
	// The channel is closed when the session stops.
	Notifications() <-chan Notification

	// State reports the session's lifecycle state.
	State() State

	// Close terminates the daemon process and marks the session Closed.
	// Calls still in flight fail rather than hang. Safe to call twice.
	Close() error
}
