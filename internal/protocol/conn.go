package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/g97iulio1609/agent-browser/internal/errors"
	"github.com/g97iulio1609/agent-browser/internal/wire"
)

// notificationBuffer bounds the inbound notification channel. Notifications
// are fire-and-forget; if no one is reading, the oldest behavior is to drop.
const notificationBuffer = 100

// Transport defines the minimal interface needed for protocol operations.
//
// This interface is satisfied by subprocess.DaemonTransport but allows
// testing with mock transports.
type Transport interface {
	ReadMessages(ctx context.Context) (<-chan *wire.Message, <-chan error)
	SendMessage(ctx context.Context, data []byte) error
}

// Conn multiplexes calls and notifications over one daemon connection.
//
// Conn handles:
//   - Assigning unique, strictly increasing ids to outgoing calls
//   - Routing inbound responses to the call that produced them
//   - Per-call timeout enforcement
//   - Surfacing inbound notifications on a separate channel
//   - Failing all pending calls when the transport dies
//
// A Conn must be started with Start() before use and manages its own
// dispatcher goroutine. The dispatcher is the only writer that removes
// entries on the response path; the per-call timeout path shares the same
// atomic take, so each entry is claimed exactly once.
type Conn struct {
	log       *slog.Logger
	transport Transport

	// nextID yields call ids. Ids start at 1 and are never reused, even
	// across timeouts and errors, so a stale response can never be mistaken
	// for a different still-pending call.
	nextID atomic.Uint64

	// Pending call table: the only shared mutable state.
	pendingMu sync.Mutex
	pending   map[uint64]*pendingCall

	// Inbound notifications forwarded to consumers.
	notifications chan *wire.Message

	// Fatal error handling - stores the error and broadcasts via done.
	errMu    sync.RWMutex
	fatalErr error

	// Lifecycle management.
	closeOnce sync.Once
	done      chan struct{}
	group     errgroup.Group
}

// callResult is what a pending call eventually receives: a response message
// or a transport-level failure.
type callResult struct {
	msg *wire.Message
	err error
}

// pendingCall tracks an outgoing call awaiting response.
type pendingCall struct {
	method string
	result chan callResult
}

// NewConn creates a new protocol connection over the given transport.
//
// The logger receives debug and operational messages. The transport must be
// started before calling Start().
func NewConn(log *slog.Logger, transport Transport) *Conn {
	return &Conn{
		log:           log.With("component", "protocol"),
		transport:     transport,
		pending:       make(map[uint64]*pendingCall, 10),
		notifications: make(chan *wire.Message, notificationBuffer),
		done:          make(chan struct{}),
	}
}

// closeDone safely closes the done channel exactly once.
func (c *Conn) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// setFatalError stores a fatal transport error, fails every pending call
// with it, and broadcasts by closing done.
func (c *Conn) setFatalError(err error) {
	c.errMu.Lock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	// A dead transport can never answer; reject the backlog now instead of
	// letting each call wait out its own timeout.
	c.failAllPending(err)
	c.closeDone()
}

// FatalError returns the transport error that stopped the connection, if any.
func (c *Conn) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// Done returns a channel that is closed when the connection stops.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Notifications returns the channel of inbound daemon notifications.
//
// Notifications carry no id and satisfy no pending call. The channel is
// buffered; if a consumer falls behind, further notifications are dropped.
func (c *Conn) Notifications() <-chan *wire.Message {
	return c.notifications
}

// Start begins reading messages from the transport and routing responses.
//
// Start must be called before Call or Notify.
func (c *Conn) Start(ctx context.Context) {
	c.log.Debug("Starting protocol dispatcher")

	messages, errs := c.transport.ReadMessages(ctx)

	c.group.Go(func() error {
		return c.dispatch(ctx, messages, errs)
	})
}

// Stop shuts down the connection and waits for the dispatcher to exit.
// Pending calls are failed with ErrConnClosed. Safe to call multiple times.
func (c *Conn) Stop() {
	c.log.Debug("Stopping protocol dispatcher")

	c.failAllPending(errors.ErrConnClosed)
	c.closeDone()

	_ = c.group.Wait()

	c.log.Debug("Protocol dispatcher stopped")
}

// Call sends a request and blocks until its response arrives, the timeout
// fires, the context is cancelled, or the connection dies - whichever comes
// first. On success it returns the raw result payload; a daemon-reported
// failure surfaces as *errors.RPCError and an elapsed timeout as a wrapped
// errors.ErrCallTimeout.
func (c *Conn) Call(
	ctx context.Context,
	method string,
	params any,
	timeout time.Duration,
) (json.RawMessage, error) {
	select {
	case <-c.done:
		return nil, c.closedError()
	default:
	}

	id := c.nextID.Add(1)

	c.log.Debug("Sending call", "id", id, "method", method)

	pending := &pendingCall{
		method: method,
		result: make(chan callResult, 1),
	}

	c.pendingMu.Lock()
	c.pending[id] = pending
	c.pendingMu.Unlock()

	data, err := wire.EncodeCall(id, method, params)
	if err != nil {
		c.take(id)

		return nil, fmt.Errorf("marshal call: %w", err)
	}

	if err := c.transport.SendMessage(ctx, data); err != nil {
		c.take(id)

		c.log.Error("Failed to send call", "id", id, "method", method, "error", err)

		return nil, fmt.Errorf("send call: %w", err)
	}

	// Each call owns an independent timer; expiry affects this call only.
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-pending.result:
		return c.finish(id, method, res)

	case <-timer.C:
		if c.take(id) {
			c.log.Warn("Call timed out", "id", id, "method", method, "timeout", timeout)

			return nil, fmt.Errorf("%w: %s after %s", errors.ErrCallTimeout, method, timeout)
		}

		// The response won the race and is already buffered.
		return c.finish(id, method, <-pending.result)

	case <-c.done:
		// The dispatcher failed every pending call before closing done, so
		// the result channel holds the failure. Drain it if present.
		select {
		case res := <-pending.result:
			return c.finish(id, method, res)
		default:
			c.take(id)

			return nil, c.closedError()
		}

	case <-ctx.Done():
		c.take(id)

		c.log.Debug("Call cancelled", "id", id, "method", method)

		return nil, ctx.Err()
	}
}

// finish converts a delivered callResult into the caller-facing outcome.
func (c *Conn) finish(id uint64, method string, res callResult) (json.RawMessage, error) {
	if res.err != nil {
		c.log.Warn("Call failed", "id", id, "method", method, "error", res.err)

		return nil, res.err
	}

	if res.msg.Error != nil {
		c.log.Warn("Call returned error", "id", id, "method", method, "error", res.msg.Error)

		return nil, res.msg.Error
	}

	c.log.Debug("Call completed", "id", id, "method", method)

	return res.msg.Result, nil
}

// closedError reports why the connection is unusable.
func (c *Conn) closedError() error {
	if err := c.FatalError(); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	return errors.ErrConnClosed
}

// Notify sends a fire-and-forget notification frame. No id is assigned, no
// pending entry is created, and no response is expected.
func (c *Conn) Notify(ctx context.Context, method string, params any) error {
	select {
	case <-c.done:
		return c.closedError()
	default:
	}

	c.log.Debug("Sending notification", "method", method)

	data, err := wire.EncodeNotification(method, params)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := c.transport.SendMessage(ctx, data); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

// take removes the pending entry for id if it is still present and reports
// whether this caller claimed it. Both the response path and the timeout
// path go through take, so at most one of them proceeds.
func (c *Conn) take(id uint64) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if _, ok := c.pending[id]; !ok {
		return false
	}

	delete(c.pending, id)

	return true
}

// dispatch is the single consumer of the transport's message stream.
func (c *Conn) dispatch(
	ctx context.Context,
	messages <-chan *wire.Message,
	errs <-chan error,
) error {
	defer c.log.Debug("Dispatch loop stopped")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				c.log.Debug("Message channel closed")
				c.setFatalError(errors.ErrConnClosed)

				return nil
			}

			c.handleMessage(msg)

		case err, ok := <-errs:
			if !ok {
				c.log.Debug("Error channel closed")
				c.setFatalError(errors.ErrConnClosed)

				return nil
			}

			if err != nil {
				c.log.Debug("Transport error", "error", err)
				c.setFatalError(err)

				return err
			}

		case <-c.done:
			c.log.Debug("Stop signal received")

			return nil

		case <-ctx.Done():
			c.log.Debug("Context cancelled in dispatch loop")
			c.setFatalError(ctx.Err())

			return nil
		}
	}
}

// handleMessage routes one decoded message.
func (c *Conn) handleMessage(msg *wire.Message) {
	if msg.IsResponse() {
		c.handleResponse(msg)

		return
	}

	// Notification: forward if anyone is listening, drop otherwise.
	select {
	case c.notifications <- msg:
	default:
		c.log.Warn("Notification dropped, consumer not keeping up", "method", msg.Method)
	}
}

// handleResponse delivers a response to the call that produced it.
//
// A response whose id has no pending entry is dropped silently: it may be a
// late arrival after timeout eviction or a spurious duplicate from a
// misbehaving daemon. Either way there is no caller left to notify.
func (c *Conn) handleResponse(msg *wire.Message) {
	id := *msg.ID

	c.pendingMu.Lock()

	pending, exists := c.pending[id]
	if exists {
		delete(c.pending, id)
	}

	c.pendingMu.Unlock()

	if !exists {
		c.log.Debug("Dropping response with no pending call", "id", id)

		return
	}

	// We claimed the entry; the buffered send cannot block.
	pending.result <- callResult{msg: msg}
}

// failAllPending evicts every pending call and fails it with err.
func (c *Conn) failAllPending(err error) {
	c.pendingMu.Lock()
	evicted := c.pending
	c.pending = make(map[uint64]*pendingCall)
	c.pendingMu.Unlock()

	if len(evicted) == 0 {
		return
	}

	c.log.Debug("Failing pending calls", "count", len(evicted), "error", err)

	for _, pending := range evicted {
		pending.result <- callResult{err: err}
	}
}
