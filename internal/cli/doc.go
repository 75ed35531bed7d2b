// Package cli locates the agent-browser binary and builds the argument list
// and environment for launching it as a daemon.
//
// Spawn policy beyond discovery (working directory, restart behavior) belongs
// to the caller; this package only answers "which binary" and "with which
// argv and env".
package cli
