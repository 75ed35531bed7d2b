package subprocess

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/g97iulio1609/agent-browser/internal/cli"
	"github.com/g97iulio1609/agent-browser/internal/config"
	"github.com/g97iulio1609/agent-browser/internal/errors"
	"github.com/g97iulio1609/agent-browser/internal/wire"
)

const (
	// readChunkSize is the buffer size for reading daemon output.
	// Chunks are reassembled into frames by the wire.Framer, so the size
	// only affects syscall granularity, never message boundaries.
	readChunkSize = 64 * 1024

	// maxStderrBufferSize caps the retained stderr used for error reporting.
	// The stderr callback still receives every line; only the buffer stops
	// growing past this limit.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB
)

// DaemonTransport implements Transport by spawning an agent-browser daemon.
type DaemonTransport struct {
	log            *slog.Logger
	options        *config.Options
	binPath        string
	args           []string
	env            []string
	cwd            string
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	stdout         io.ReadCloser
	stderr         io.ReadCloser
	stderrCallback func(string)
	mu             sync.Mutex // Protects stdin writes
	closing        bool       // Whether Close() has been called (intentional shutdown)
	stdinClosed    bool       // Whether stdin was closed (e.g., due to context cancellation)
}

// Compile-time verification that DaemonTransport implements the Transport interface.
var _ config.Transport = (*DaemonTransport)(nil)

// NewDaemonTransport creates a transport for the given options.
//
// Binary discovery is deferred to Start(), which searches in the following
// order:
//  1. The explicit path in options.BinPath (if provided)
//  2. The system PATH
//  3. Common installation directories (/usr/local/bin, /usr/bin, ~/.local/bin)
//
// Start() returns DaemonNotFoundError if the binary cannot be located.
func NewDaemonTransport(log *slog.Logger, options *config.Options) *DaemonTransport {
	return &DaemonTransport{
		log:            log.With("component", "daemon_transport"),
		options:        options,
		stderrCallback: options.Stderr,
	}
}

// Start spawns the daemon subprocess.
//
// This method discovers the agent-browser binary, builds command arguments
// from the launch options, and spawns the process with stdin, stdout, and
// stderr pipes attached.
//
// Returns DaemonNotFoundError if the binary cannot be located, or
// ConnectionError if the process fails to start.
func (t *DaemonTransport) Start(ctx context.Context) error {
	t.log.Info("Starting agent-browser daemon")

	discoverer := cli.NewDiscoverer(&cli.Config{
		BinPath: t.options.BinPath,
		Logger:  t.log,
	})

	binPath, err := discoverer.Discover()
	if err != nil {
		return fmt.Errorf("discover binary: %w", err)
	}

	t.binPath = binPath
	t.args = cli.BuildArgs(t.options)
	t.log.Debug("Built command arguments", "args", t.args)

	t.env = cli.BuildEnvironment(t.options)

	t.cwd = t.options.Cwd
	if t.cwd == "" {
		t.cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	t.log.Debug("Set working directory", "cwd", t.cwd)

	//nolint:gosec // G204: Subprocess launching with dynamic args is expected for daemon invocation
	cmd := exec.CommandContext(ctx, t.binPath, t.args...)
	cmd.Dir = t.cwd
	cmd.Env = t.env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.log.Error("Failed to create stdin pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	t.stdin = stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.log.Error("Failed to create stdout pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	t.stdout = stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.log.Error("Failed to create stderr pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	t.stderr = stderr

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start daemon process", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.cmd = cmd
	t.log.Info("agent-browser daemon started", "pid", cmd.Process.Pid)

	return nil
}

// ReadMessages reads protocol messages from the daemon's stdout.
//
// A goroutine reads raw chunks from the pipe, reassembles them into frames,
// and decodes each frame. Frames that are not protocol messages (diagnostic
// lines sharing the stream) are dropped without surfacing an error. The
// error channel carries only transport-level failures: read errors and
// unexpected process exit.
//
// Both channels are closed when the daemon's stdout closes.
func (t *DaemonTransport) ReadMessages(
	ctx context.Context,
) (<-chan *wire.Message, <-chan error) {
	messages := make(chan *wire.Message)
	errs := make(chan error, 1)

	// Stderr must be drained before Wait(); buffer it for error reporting.
	// See: https://pkg.go.dev/os/exec#Cmd.StderrPipe
	var stderrWg sync.WaitGroup

	var stderrBuffer strings.Builder

	var stderrMu sync.Mutex

	stderrWg.Go(func() {
		t.drainStderr(ctx, &stderrBuffer, &stderrMu)
	})

	go func() {
		defer close(messages)
		defer close(errs)
		defer t.log.Debug("ReadMessages goroutine stopped")

		t.readPump(ctx, messages, errs)

		// Wait for stderr goroutine before process wait.
		stderrWg.Wait()

		t.log.Debug("Waiting for daemon process to exit")

		if err := t.cmd.Wait(); err != nil {
			t.mu.Lock()
			isClosing := t.closing
			t.mu.Unlock()

			if isClosing {
				t.log.Debug("Daemon terminated during shutdown")

				return
			}

			stderrMu.Lock()
			stderrOutput := strings.TrimSpace(stderrBuffer.String())
			stderrMu.Unlock()

			exitCode := 0

			if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
				exitCode = exitErr.ExitCode()
			}

			t.log.Error("Daemon exited with error", "exit_code", exitCode, "stderr", stderrOutput)

			errs <- &errors.ProcessError{
				ExitCode: exitCode,
				Stderr:   stderrOutput,
				Err:      err,
			}
		} else {
			t.log.Info("Daemon exited cleanly")
		}
	}()

	return messages, errs
}

// readPump reads chunks from stdout, frames them, and delivers decoded
// messages until the pipe closes or the context is cancelled.
func (t *DaemonTransport) readPump(
	ctx context.Context,
	messages chan<- *wire.Message,
	errs chan<- error,
) {
	var framer wire.Framer

	buf := make([]byte, readChunkSize)
	messageCount := 0

	for {
		n, readErr := t.stdout.Read(buf)

		if n > 0 {
			for _, frame := range framer.Feed(buf[:n]) {
				msg, ok := wire.Decode(frame)
				if !ok {
					// Expected on a shared stdio stream; not an error.
					t.log.Debug("Dropping non-protocol line", "line", frame)

					continue
				}

				messageCount++
				t.log.Debug("Received message from daemon", "message_count", messageCount)

				select {
				case messages <- msg:
				case <-ctx.Done():
					t.log.Debug("Context cancelled during message send", "error", ctx.Err())

					errs <- ctx.Err()

					return
				}
			}
		}

		if readErr != nil {
			if readErr != io.EOF {
				t.log.Error("Read error on daemon stdout", "error", readErr)

				errs <- fmt.Errorf("read stdout: %w", readErr)
			}

			return
		}

		select {
		case <-ctx.Done():
			t.log.Debug("Context cancelled during read", "error", ctx.Err())

			errs <- ctx.Err()

			return
		default:
		}
	}
}

// drainStderr reads the daemon's stderr line by line, buffering for error
// reporting (capped) and invoking the configured callback.
func (t *DaemonTransport) drainStderr(
	ctx context.Context,
	buffer *strings.Builder,
	mu *sync.Mutex,
) {
	// Relies on process kill to close the pipe and unblock reads.
	var framer wire.Framer

	chunk := make([]byte, 4096)

	for {
		n, err := t.stderr.Read(chunk)

		if n > 0 {
			for _, line := range framer.Feed(chunk[:n]) {
				select {
				case <-ctx.Done():
					return
				default:
				}

				mu.Lock()

				if buffer.Len() < maxStderrBufferSize {
					if buffer.Len() > 0 {
						buffer.WriteString("\n")
					}

					buffer.WriteString(line)
				}

				mu.Unlock()

				if t.stderrCallback != nil {
					t.stderrCallback(line)
				}
			}
		}

		if err != nil {
			if err != io.EOF {
				t.log.Debug("Stderr read error", "error", err)
			}

			return
		}
	}
}

// SendMessage writes one frame to the daemon's stdin.
//
// The data should be a complete JSON message; a newline is appended if
// missing. The stdin mutex guarantees concurrent frames are written whole,
// never interleaved. Context cancellation is respected even during a
// blocked write.
func (t *DaemonTransport) SendMessage(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin == nil {
		return errors.ErrTransportNotConnected
	}

	if t.stdinClosed {
		return errors.ErrStdinClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.log.Debug("Sending frame to daemon", "data_len", len(data))

	// Ensure the frame is delimiter-terminated. Copy instead of appending in
	// place so a caller's slice with spare capacity is never mutated.
	if len(data) == 0 || data[len(data)-1] != '\n' {
		newData := make([]byte, len(data)+1)
		copy(newData, data)
		newData[len(data)] = '\n'
		data = newData
	}

	// Write in a goroutine to respect context cancellation.
	done := make(chan error, 1)

	go func() {
		_, err := t.stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("Failed to write frame to daemon", "error", err)

			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, closing stdin")
		// Closing stdin unblocks the pending Write (safe since Go 1.9+).
		if t.stdin != nil {
			_ = t.stdin.Close()
			t.stdinClosed = true
		}
		// Wait for the write goroutine with a bound to avoid a leak.
		select {
		case <-done:
		case <-time.After(1 * time.Second):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

// IsReady reports whether the daemon is running and stdin is open.
func (t *DaemonTransport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClosed
}

// Close terminates the daemon process.
//
// The process is killed outright; the daemon keeps no state that needs a
// graceful shutdown. Safe to call multiple times or on an already-dead
// process.
func (t *DaemonTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closing = true
	t.stdinClosed = true

	if t.cmd != nil && t.cmd.Process != nil {
		t.log.Debug("Killing daemon process", "pid", t.cmd.Process.Pid)

		if err := t.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill daemon process (pid %d): %w", t.cmd.Process.Pid, err)
		}
	}

	return nil
}
