package config

import (
	"context"

	"github.com/g97iulio1609/agent-browser/internal/wire"
)

// Transport defines the interface for daemon communication.
// Implement this to provide custom transports for testing or mocking.
//
// The default implementation spawns the agent-browser daemon as a subprocess
// and speaks line-delimited JSON over its stdio pipes.
type Transport interface {
	// Start spawns the daemon and prepares it for communication.
	Start(ctx context.Context) error

	// ReadMessages returns channels for receiving decoded protocol messages
	// and transport-level errors. Frames that fail to decode are dropped
	// silently; the error channel carries only stream and process failures.
	// Both channels are closed when reading completes.
	ReadMessages(ctx context.Context) (<-chan *wire.Message, <-chan error)

	// SendMessage writes one complete frame to the daemon's stdin.
	// A trailing newline is appended if missing. Safe for concurrent use;
	// concurrent frames are never interleaved.
	SendMessage(ctx context.Context, data []byte) error

	// Close terminates the daemon process and releases resources.
	// Safe to call multiple times.
	Close() error

	// IsReady reports whether the transport can accept writes.
	IsReady() bool
}
