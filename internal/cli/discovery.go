package cli

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/g97iulio1609/agent-browser/internal/errors"
)

// binaryName is the daemon binary searched for in PATH and common locations.
const binaryName = "agent-browser"

// Config holds configuration for binary discovery.
type Config struct {
	// BinPath is an explicit binary path that skips PATH search.
	// If empty, discovery searches PATH and common locations.
	BinPath string

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates the agent-browser binary.
type Discoverer interface {
	// Discover returns the path to the agent-browser binary or a
	// DaemonNotFoundError listing every location searched.
	Discover() (string, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new binary discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}

	return &discoverer{
		cfg: cfg,
		log: log,
	}
}

// Discover locates the agent-browser binary.
func (d *discoverer) Discover() (string, error) {
	// If an explicit path is provided, use it and only it.
	if d.cfg.BinPath != "" {
		d.log.Debug("Using explicit binary path", "bin_path", d.cfg.BinPath)

		if _, err := os.Stat(d.cfg.BinPath); err == nil {
			return d.cfg.BinPath, nil
		}

		d.log.Debug("Explicit binary path not found", "bin_path", d.cfg.BinPath)

		return "", &errors.DaemonNotFoundError{SearchedPaths: []string{d.cfg.BinPath}}
	}

	searchedPaths := make([]string, 0, 4)

	d.log.Debug("Searching for agent-browser in PATH")

	if path, err := exec.LookPath(binaryName); err == nil {
		d.log.Debug("Found agent-browser in PATH", "path", path)

		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	commonPaths := []string{
		"/usr/local/bin/" + binaryName,
		"/usr/bin/" + binaryName,
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(homeDir, ".local/bin", binaryName))
	}

	for _, path := range commonPaths {
		searchedPaths = append(searchedPaths, path)
		d.log.Debug("Checking common path", "path", path)

		if _, err := os.Stat(path); err == nil {
			d.log.Debug("Found binary at common path", "path", path)

			return path, nil
		}
	}

	d.log.Warn("agent-browser binary not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.DaemonNotFoundError{SearchedPaths: searchedPaths}
}
