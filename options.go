package agentbrowser

import (
	"log/slog"
	"time"

	"github.com/g97iulio1609/agent-browser/internal/config"
)

// Options holds the full configuration for a daemon session.
// Prefer the functional options below over constructing this directly.
type Options = config.Options

// Option configures a session using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to a fresh Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithBinPath sets the explicit path to the agent-browser binary.
// If not set, the binary is searched in PATH and common install locations.
func WithBinPath(path string) Option {
	return func(o *Options) {
		o.BinPath = path
	}
}

// WithCwd sets the working directory for the daemon process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithEnv provides additional environment variables for the daemon process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithSession names the daemon session. Separate sessions get separate
// browser state. Defaults to "default".
func WithSession(session string) Option {
	return func(o *Options) {
		o.Session = session
	}
}

// ===== Browser Launch Configuration =====

// WithHeaded launches the browser with a visible window.
func WithHeaded() Option {
	return func(o *Options) {
		o.Headed = true
	}
}

// WithDebug enables verbose daemon-side logging.
func WithDebug() Option {
	return func(o *Options) {
		o.Debug = true
	}
}

// WithExecutablePath points the daemon at a specific browser executable.
func WithExecutablePath(path string) Option {
	return func(o *Options) {
		o.ExecutablePath = path
	}
}

// WithExtensions lists unpacked browser extensions to load at launch.
func WithExtensions(paths ...string) Option {
	return func(o *Options) {
		o.Extensions = paths
	}
}

// WithProfile sets a persistent browser profile directory.
func WithProfile(dir string) Option {
	return func(o *Options) {
		o.Profile = dir
	}
}

// WithState sets a storage-state file (cookies, local storage).
func WithState(path string) Option {
	return func(o *Options) {
		o.State = path
	}
}

// WithProxy routes browser traffic through the given proxy server.
func WithProxy(url string) Option {
	return func(o *Options) {
		o.Proxy = url
	}
}

// WithProxyBypass lists hosts excluded from proxying.
func WithProxyBypass(hosts string) Option {
	return func(o *Options) {
		o.ProxyBypass = hosts
	}
}

// WithBrowserArgs passes extra arguments through to the browser.
func WithBrowserArgs(args string) Option {
	return func(o *Options) {
		o.BrowserArgs = args
	}
}

// WithUserAgent overrides the browser user agent string.
func WithUserAgent(ua string) Option {
	return func(o *Options) {
		o.UserAgent = ua
	}
}

// WithProvider selects the automation provider backend.
func WithProvider(provider string) Option {
	return func(o *Options) {
		o.Provider = provider
	}
}

// WithIgnoreHTTPSErrors disables TLS certificate validation in the browser.
func WithIgnoreHTTPSErrors() Option {
	return func(o *Options) {
		o.IgnoreHTTPSErrors = true
	}
}

// WithAllowFileAccess permits file:// navigation.
func WithAllowFileAccess() Option {
	return func(o *Options) {
		o.AllowFileAccess = true
	}
}

// ===== Timeouts =====

// WithCallTimeout sets the default per-call timeout.
// Individual calls can override it with Session.CallWithTimeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.CallTimeout = timeout
	}
}

// WithInitializeTimeout bounds the initialize handshake separately from
// regular calls.
func WithInitializeTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.InitializeTimeout = &timeout
	}
}

// ===== Advanced =====

// WithStderr registers a callback that receives each line of the daemon's
// stderr output.
func WithStderr(callback func(string)) Option {
	return func(o *Options) {
		o.Stderr = callback
	}
}

// WithTransport overrides the subprocess transport.
// Primarily useful for testing with mock transports.
func WithTransport(transport Transport) Option {
	return func(o *Options) {
		o.Transport = transport
	}
}
