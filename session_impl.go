package agentbrowser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/g97iulio1609/agent-browser/internal/config"
	"github.com/g97iulio1609/agent-browser/internal/protocol"
	"github.com/g97iulio1609/agent-browser/internal/subprocess"
)

// clientVersion is reported to the daemon during the initialize handshake.
const clientVersion = "0.1.0"

// session is the concrete Session backed by a daemon subprocess.
type session struct {
	log       *slog.Logger
	options   *config.Options
	transport config.Transport
	conn      *protocol.Conn

	// cancel tears down the session-lifetime context that the transport
	// and dispatcher run under.
	cancel context.CancelFunc

	notifications chan Notification

	stateMu sync.Mutex
	state   State
}

// Compile-time verification that session implements Session.
var _ Session = (*session)(nil)

// Open spawns an agent-browser daemon, performs the initialize handshake,
// and returns a Ready session.
//
// ctx bounds the handshake only; the daemon itself lives until Close. Unset
// options are resolved from AGENT_BROWSER_* environment variables and
// .agent-browserrc.json files before launch.
func Open(ctx context.Context, opts ...Option) (Session, error) {
	options := applyOptions(opts)
	options.Resolve()

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	// Tag every log line with a per-instance id so concurrent sessions
	// against the same named daemon session stay distinguishable.
	instanceID := ulid.Make().String()
	log = log.With("session", options.Session, "instance_id", instanceID)

	transport := options.Transport
	if transport == nil {
		transport = subprocess.NewDaemonTransport(log, options)
	}

	s := &session{
		log:           log,
		options:       options,
		transport:     transport,
		notifications: make(chan Notification, 16),
		state:         StateInitializing,
	}

	// The transport and dispatcher outlive the Open call; they run under a
	// session-lifetime context torn down by Close.
	sctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if err := transport.Start(sctx); err != nil {
		cancel()

		return nil, fmt.Errorf("start daemon: %w", err)
	}

	s.conn = protocol.NewConn(log, transport)
	s.conn.Start(sctx)

	if err := s.initialize(ctx, instanceID); err != nil {
		s.teardown()

		return nil, err
	}

	s.setState(StateReady)
	s.log.Info("Session ready")

	go s.forwardNotifications()

	return s, nil
}

// initialize performs the mandatory handshake: an initialize call followed
// by the initialized notification.
func (s *session) initialize(ctx context.Context, instanceID string) error {
	params := map[string]any{
		"clientInfo": map[string]any{
			"name":    "agent-browser-go",
			"version": clientVersion,
		},
		"session":    s.options.Session,
		"instanceId": instanceID,
	}

	s.log.Debug("Sending initialize request")

	if _, err := s.conn.Call(ctx, "initialize", params, s.options.EffectiveInitializeTimeout()); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if err := s.conn.Notify(ctx, "initialized", nil); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}

	return nil
}

// forwardNotifications converts protocol notifications into the public type
// until the connection stops.
func (s *session) forwardNotifications() {
	defer close(s.notifications)

	for {
		select {
		case msg, ok := <-s.conn.Notifications():
			if !ok {
				return
			}

			n := Notification{Method: msg.Method, Params: msg.Params}

			select {
			case s.notifications <- n:
			default:
				s.log.Warn("Dropping daemon notification, consumer not keeping up", "method", msg.Method)
			}

		case <-s.conn.Done():
			return
		}
	}
}

func (s *session) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return s.CallWithTimeout(ctx, method, params, s.options.EffectiveCallTimeout())
}

func (s *session) CallWithTimeout(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (json.RawMessage, error) {
	if s.currentState() == StateClosed {
		return nil, ErrSessionClosed
	}

	return s.conn.Call(ctx, method, params, timeout)
}

func (s *session) Notify(ctx context.Context, method string, params any) error {
	if s.currentState() == StateClosed {
		return ErrSessionClosed
	}

	return s.conn.Notify(ctx, method, params)
}

func (s *session) Notifications() <-chan Notification {
	return s.notifications
}

func (s *session) State() State {
	return s.currentState()
}

// Close terminates the daemon and marks the session Closed.
//
// In-flight calls are failed promptly by the connection teardown instead of
// being left to ride out their timeouts against a dead process.
func (s *session) Close() error {
	s.stateMu.Lock()

	if s.state == StateClosed {
		s.stateMu.Unlock()

		return nil
	}

	s.state = StateClosed
	s.stateMu.Unlock()

	s.log.Info("Closing session")
	s.teardown()

	return nil
}

// teardown stops the dispatcher, kills the daemon, and releases the
// session-lifetime context.
func (s *session) teardown() {
	s.conn.Stop()

	if err := s.transport.Close(); err != nil {
		s.log.Warn("Transport close failed", "error", err)
	}

	s.cancel()
}

func (s *session) setState(state State) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.state = state
}

func (s *session) currentState() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	return s.state
}
