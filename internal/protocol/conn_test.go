package protocol

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/g97iulio1609/agent-browser/internal/errors"
	"github.com/g97iulio1609/agent-browser/internal/wire"
)

// mockTransport implements Transport for testing.
type mockTransport struct {
	mu      sync.Mutex
	frames  [][]byte
	msgChan chan *wire.Message
	errChan chan error

	// respond, if set, is invoked for every frame carrying an id; a non-nil
	// return value is delivered back as if the daemon had answered.
	respond func(call *wire.Message) *wire.Message
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		frames:  make([][]byte, 0, 10),
		msgChan: make(chan *wire.Message, 32),
		errChan: make(chan error, 1),
	}
}

func (m *mockTransport) ReadMessages(_ context.Context) (<-chan *wire.Message, <-chan error) {
	return m.msgChan, m.errChan
}

func (m *mockTransport) SendMessage(_ context.Context, data []byte) error {
	m.mu.Lock()
	m.frames = append(m.frames, data)
	respond := m.respond
	m.mu.Unlock()

	if respond == nil {
		return nil
	}

	call, ok := wire.Decode(strings.TrimSuffix(string(data), "\n"))
	if !ok || call.ID == nil {
		return nil
	}

	if reply := respond(call); reply != nil {
		m.msgChan <- reply
	}

	return nil
}

// deliver injects a message as if the daemon had produced it.
func (m *mockTransport) deliver(msg *wire.Message) {
	m.msgChan <- msg
}

// sentFrames returns a copy of every frame written so far.
func (m *mockTransport) sentFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([][]byte, len(m.frames))
	copy(result, m.frames)

	return result
}

// sentIDs returns the ids of all frames that carried one, in send order.
func (m *mockTransport) sentIDs() []uint64 {
	var ids []uint64

	for _, frame := range m.sentFrames() {
		if msg, ok := wire.Decode(strings.TrimSuffix(string(frame), "\n")); ok && msg.ID != nil {
			ids = append(ids, *msg.ID)
		}
	}

	return ids
}

// response builds a success response message for id.
func response(id uint64, result string) *wire.Message {
	return &wire.Message{JSONRPC: wire.Version, ID: &id, Result: json.RawMessage(result)}
}

// echoResult makes a responder that answers every call with result.
func echoResult(result string) func(*wire.Message) *wire.Message {
	return func(call *wire.Message) *wire.Message {
		return response(*call.ID, result)
	}
}

// pendingCount peeks at the pending table size.
func pendingCount(c *Conn) int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	return len(c.pending)
}

func startConn(t *testing.T, transport *mockTransport) *Conn {
	t.Helper()

	conn := NewConn(slog.Default(), transport)
	conn.Start(context.Background())
	t.Cleanup(conn.Stop)

	return conn
}

func TestConn_CallResolvesWithResult(t *testing.T) {
	transport := newMockTransport()
	transport.respond = echoResult(`"pong"`)
	conn := startConn(t, transport)

	result, err := conn.Call(context.Background(), "ping", nil, time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `"pong"`, string(result))
	require.Zero(t, pendingCount(conn))
}

func TestConn_IdentifiersStrictlyIncreasing(t *testing.T) {
	transport := newMockTransport()
	transport.respond = echoResult(`null`)
	conn := startConn(t, transport)

	const calls = 20

	for range calls {
		_, err := conn.Call(context.Background(), "ping", nil, time.Second)
		require.NoError(t, err)
	}

	ids := transport.sentIDs()
	require.Len(t, ids, calls)

	for i, id := range ids {
		require.EqualValues(t, i+1, id, "ids start at 1 and increase by 1")
	}
}

func TestConn_RemoteErrorPropagates(t *testing.T) {
	transport := newMockTransport()
	transport.respond = func(call *wire.Message) *wire.Message {
		return &wire.Message{
			JSONRPC: wire.Version,
			ID:      call.ID,
			Error:   &errors.RPCError{Code: -32000, Message: "element not found"},
		}
	}
	conn := startConn(t, transport)

	_, err := conn.Call(context.Background(), "click", map[string]any{"selector": "#gone"}, time.Second)
	require.Error(t, err)

	var rpcErr *errors.RPCError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, -32000, rpcErr.Code)
	require.Equal(t, "element not found", rpcErr.Message)
}

func TestConn_OutOfOrderCompletion(t *testing.T) {
	transport := newMockTransport()
	conn := startConn(t, transport)

	type outcome struct {
		label  string
		result json.RawMessage
		err    error
	}

	outcomes := make(chan outcome, 2)

	call := func(label, method string) {
		result, err := conn.Call(context.Background(), method, nil, 5*time.Second)
		outcomes <- outcome{label: label, result: result, err: err}
	}

	go call("A", "slow")

	require.Eventually(t, func() bool {
		return len(transport.sentIDs()) == 1
	}, time.Second, time.Millisecond)

	go call("B", "fast")

	require.Eventually(t, func() bool {
		return len(transport.sentIDs()) == 2
	}, time.Second, time.Millisecond)

	ids := transport.sentIDs()

	// Answer B first, then A.
	transport.deliver(response(ids[1], `"b"`))

	first := <-outcomes
	require.Equal(t, "B", first.label)
	require.NoError(t, first.err)
	require.JSONEq(t, `"b"`, string(first.result))

	transport.deliver(response(ids[0], `"a"`))

	second := <-outcomes
	require.Equal(t, "A", second.label)
	require.NoError(t, second.err)
	require.JSONEq(t, `"a"`, string(second.result))
}

func TestConn_TimeoutRejectsAndIsolates(t *testing.T) {
	transport := newMockTransport()
	conn := startConn(t, transport)

	// Call A: never answered, short timeout.
	start := time.Now()

	done := make(chan error, 1)

	go func() {
		_, err := conn.Call(context.Background(), "hang", nil, 50*time.Millisecond)
		done <- err
	}()

	// Call B: answered normally, unaffected by A's timeout.
	require.Eventually(t, func() bool {
		return len(transport.sentIDs()) == 1
	}, time.Second, time.Millisecond)

	resultB := make(chan error, 1)

	go func() {
		_, err := conn.Call(context.Background(), "ok", nil, 5*time.Second)
		resultB <- err
	}()

	require.Eventually(t, func() bool {
		return len(transport.sentIDs()) == 2
	}, time.Second, time.Millisecond)

	transport.deliver(response(transport.sentIDs()[1], `true`))
	require.NoError(t, <-resultB)

	err := <-done
	elapsed := time.Since(start)

	require.ErrorIs(t, err, errors.ErrCallTimeout)
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second)
	require.Zero(t, pendingCount(conn))
}

func TestConn_LateResponseAfterTimeoutIsNoOp(t *testing.T) {
	transport := newMockTransport()
	conn := startConn(t, transport)

	_, err := conn.Call(context.Background(), "hang", nil, 10*time.Millisecond)
	require.ErrorIs(t, err, errors.ErrCallTimeout)

	// The response arrives after the timeout already evicted the entry.
	transport.deliver(response(1, `"too late"`))

	// The connection keeps working and the stale id cannot satisfy a new call.
	transport.respond = echoResult(`"fresh"`)

	result, err := conn.Call(context.Background(), "ping", nil, time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `"fresh"`, string(result))
	require.Zero(t, pendingCount(conn))
}

func TestConn_DuplicateResponseIsNoOp(t *testing.T) {
	transport := newMockTransport()
	transport.respond = echoResult(`1`)
	conn := startConn(t, transport)

	_, err := conn.Call(context.Background(), "ping", nil, time.Second)
	require.NoError(t, err)

	// A duplicate of the already-consumed response is dropped silently.
	transport.deliver(response(1, `2`))

	result, err := conn.Call(context.Background(), "ping", nil, time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `1`, string(result))
}

func TestConn_NotifyCreatesNoPendingEntry(t *testing.T) {
	transport := newMockTransport()
	conn := startConn(t, transport)

	require.NoError(t, conn.Notify(context.Background(), "initialized", nil))
	require.Zero(t, pendingCount(conn))

	frames := transport.sentFrames()
	require.Len(t, frames, 1)

	msg, ok := wire.Decode(strings.TrimSuffix(string(frames[0]), "\n"))
	require.True(t, ok)
	require.Nil(t, msg.ID)
	require.Equal(t, "initialized", msg.Method)
}

func TestConn_InboundNotificationBypassesPendingTable(t *testing.T) {
	transport := newMockTransport()
	conn := startConn(t, transport)

	transport.deliver(&wire.Message{
		JSONRPC: wire.Version,
		Method:  "console",
		Params:  json.RawMessage(`{"level":"info"}`),
	})

	select {
	case msg := <-conn.Notifications():
		require.Equal(t, "console", msg.Method)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}

	require.Zero(t, pendingCount(conn))
}

func TestConn_TransportFailureRejectsAllPending(t *testing.T) {
	transport := newMockTransport()
	conn := startConn(t, transport)

	const calls = 3

	results := make(chan error, calls)

	for range calls {
		go func() {
			// Long timeout: only the transport failure can end these calls.
			_, err := conn.Call(context.Background(), "hang", nil, time.Minute)
			results <- err
		}()
	}

	require.Eventually(t, func() bool {
		return pendingCount(conn) == calls
	}, time.Second, time.Millisecond)

	procErr := &errors.ProcessError{ExitCode: 1, Stderr: "browser crashed"}
	transport.errChan <- procErr

	for range calls {
		select {
		case err := <-results:
			require.ErrorIs(t, err, procErr)
		case <-time.After(time.Second):
			t.Fatal("pending call not rejected after transport failure")
		}
	}

	require.Zero(t, pendingCount(conn))
	require.ErrorIs(t, conn.FatalError(), procErr)
}

func TestConn_CallAfterStopFails(t *testing.T) {
	transport := newMockTransport()
	conn := NewConn(slog.Default(), transport)
	conn.Start(context.Background())
	conn.Stop()

	_, err := conn.Call(context.Background(), "ping", nil, time.Second)
	require.ErrorIs(t, err, errors.ErrConnClosed)

	require.ErrorIs(t, conn.Notify(context.Background(), "event", nil), errors.ErrConnClosed)
}

func TestConn_StopMultipleCalls(t *testing.T) {
	transport := newMockTransport()
	conn := NewConn(slog.Default(), transport)
	conn.Start(context.Background())

	conn.Stop()
	conn.Stop()
	conn.Stop()

	select {
	case <-conn.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestConn_ResponseTimeoutRace(t *testing.T) {
	// Hammer the window where the timeout fires while the response is being
	// delivered. Whatever the interleaving, the call must finish exactly
	// once and the pending table must end up empty.
	// Run with: go test -race -count=100 -run TestConn_ResponseTimeoutRace
	for range 100 {
		transport := newMockTransport()
		conn := NewConn(slog.Default(), transport)
		conn.Start(context.Background())

		done := make(chan struct{})

		go func() {
			defer close(done)

			_, _ = conn.Call(context.Background(), "ping", nil, 500*time.Microsecond)
		}()

		// Spam responses for the only id this call can have.
		for range 10 {
			transport.deliver(response(1, `"x"`))
		}

		<-done
		require.Zero(t, pendingCount(conn))
		conn.Stop()
	}
}

func TestConn_ConcurrentCallsComplete(t *testing.T) {
	transport := newMockTransport()
	transport.respond = echoResult(`"ok"`)
	conn := startConn(t, transport)

	var wg sync.WaitGroup

	const calls = 50

	errs := make(chan error, calls)

	for range calls {
		wg.Go(func() {
			_, err := conn.Call(context.Background(), "ping", nil, 5*time.Second)
			errs <- err
		})
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	ids := transport.sentIDs()
	require.Len(t, ids, calls)

	seen := make(map[uint64]bool, calls)
	for _, id := range ids {
		require.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
}
