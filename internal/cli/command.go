package cli

import (
	"fmt"
	"os"

	"github.com/g97iulio1609/agent-browser/internal/config"
)

// BuildArgs constructs the daemon command-line arguments from options.
//
// Only launch-time settings become flags; per-command behavior travels over
// the protocol after startup.
func BuildArgs(options *config.Options) []string {
	args := []string{"--session", options.Session}

	if options.Headed {
		args = append(args, "--headed")
	}

	if options.Debug {
		args = append(args, "--debug")
	}

	if options.ExecutablePath != "" {
		args = append(args, "--executable-path", options.ExecutablePath)
	}

	for _, ext := range options.Extensions {
		args = append(args, "--extension", ext)
	}

	if options.Profile != "" {
		args = append(args, "--profile", options.Profile)
	}

	if options.State != "" {
		args = append(args, "--state", options.State)
	}

	if options.Proxy != "" {
		args = append(args, "--proxy", options.Proxy)
	}

	if options.ProxyBypass != "" {
		args = append(args, "--proxy-bypass", options.ProxyBypass)
	}

	if options.BrowserArgs != "" {
		args = append(args, "--args", options.BrowserArgs)
	}

	if options.UserAgent != "" {
		args = append(args, "--user-agent", options.UserAgent)
	}

	if options.Provider != "" {
		args = append(args, "--provider", options.Provider)
	}

	if options.IgnoreHTTPSErrors {
		args = append(args, "--ignore-https-errors")
	}

	if options.AllowFileAccess {
		args = append(args, "--allow-file-access")
	}

	return args
}

// BuildEnvironment constructs the environment for the daemon process.
func BuildEnvironment(options *config.Options) []string {
	// Start with the current environment.
	env := os.Environ()

	env = append(env, "AGENT_BROWSER_ENTRYPOINT=sdk-go")

	// Add or override with user-provided environment variables.
	for key, value := range options.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}
