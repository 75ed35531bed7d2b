// Package config provides configuration types for the agent-browser client.
package config

import (
	"log/slog"
	"time"
)

const (
	// DefaultSession is the daemon session used when none is configured.
	DefaultSession = "default"

	// DefaultCallTimeout bounds each call unless overridden by the caller.
	DefaultCallTimeout = 30 * time.Second
)

// Options holds the full configuration for a daemon session.
//
// Callers normally populate this through the functional options in the root
// package. Zero-value fields are filled from environment variables and rc
// files by Resolve, mirroring the daemon CLI's own precedence rules:
// explicit option > environment > project rc file > user rc file.
type Options struct {
	// Logger receives debug and operational output. Nil means silent.
	Logger *slog.Logger

	// BinPath is an explicit path to the agent-browser binary.
	// If empty, discovery searches PATH and common install locations.
	BinPath string

	// Cwd is the working directory for the daemon process.
	Cwd string

	// Env holds additional environment variables for the daemon process.
	Env map[string]string

	// Session names the daemon session; separate sessions get separate
	// browser state. Defaults to "default".
	Session string

	// Headed launches the browser with a visible window.
	Headed bool

	// Debug enables verbose daemon-side logging.
	Debug bool

	// ExecutablePath points at a specific browser executable.
	ExecutablePath string

	// Extensions lists unpacked browser extensions to load.
	Extensions []string

	// Profile is a persistent browser profile directory.
	Profile string

	// State is a storage-state file (cookies, local storage).
	State string

	// Proxy is the proxy server URL for browser traffic.
	Proxy string

	// ProxyBypass lists hosts excluded from proxying.
	ProxyBypass string

	// BrowserArgs carries extra arguments passed through to the browser.
	BrowserArgs string

	// UserAgent overrides the browser user agent string.
	UserAgent string

	// Provider selects the automation provider backend.
	Provider string

	// IgnoreHTTPSErrors disables TLS certificate validation in the browser.
	IgnoreHTTPSErrors bool

	// AllowFileAccess permits file:// navigation.
	AllowFileAccess bool

	// CallTimeout bounds each call unless overridden per call.
	// Zero means DefaultCallTimeout.
	CallTimeout time.Duration

	// InitializeTimeout bounds the initialize handshake.
	// Nil means CallTimeout.
	InitializeTimeout *time.Duration

	// Stderr, if set, receives each line of the daemon's stderr output.
	Stderr func(string)

	// Transport overrides the subprocess transport. Used by tests.
	Transport Transport
}

// EffectiveCallTimeout returns the per-call timeout, applying the default.
func (o *Options) EffectiveCallTimeout() time.Duration {
	if o.CallTimeout > 0 {
		return o.CallTimeout
	}

	return DefaultCallTimeout
}

// EffectiveInitializeTimeout returns the handshake timeout.
func (o *Options) EffectiveInitializeTimeout() time.Duration {
	if o.InitializeTimeout != nil && *o.InitializeTimeout > 0 {
		return *o.InitializeTimeout
	}

	return o.EffectiveCallTimeout()
}
