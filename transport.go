package agentbrowser

import "github.com/g97iulio1609/agent-browser/internal/config"

// Transport defines the interface for daemon communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., remote daemons).
//
// The default implementation spawns the agent-browser binary as a subprocess.
// Custom transports can be injected via WithTransport.
type Transport = config.Transport
