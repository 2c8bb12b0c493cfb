package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelinehub/pkg/models"
)

// fakeConn feeds scripted frames to the read loop and records writes
type fakeConn struct {
	inbound chan []byte

	mu     sync.Mutex
	writes []models.StreamMessage
	closed bool
	done   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.done:
		return nil, errors.New("connection dropped")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	msg, ok := v.(models.StreamMessage)
	if !ok {
		return fmt.Errorf("unexpected write type %T", v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// drop simulates the server side going away
func (c *fakeConn) drop() { c.Close() }

func (c *fakeConn) push(t *testing.T, msg models.StreamMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	c.inbound <- data
}

func (c *fakeConn) sentTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.writes))
	for _, w := range c.writes {
		types = append(types, w.Type)
	}
	return types
}

// fakeDialer hands out fakeConns, optionally failing the first n dials
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	conns    chan *fakeConn
}

func newFakeDialer(failures int) *fakeDialer {
	return &fakeDialer{
		failures: failures,
		conns:    make(chan *fakeConn, 16),
	}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	d.dials++
	fail := d.dials <= d.failures
	d.mu.Unlock()

	if fail {
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	d.conns <- conn
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// recorder collects handler callbacks on channels
type recorder struct {
	created chan models.Activity
	updated chan models.Activity
	removed chan string
	errs    chan error
	states  chan ConnState
}

func newRecorder() *recorder {
	return &recorder{
		created: make(chan models.Activity, 16),
		updated: make(chan models.Activity, 16),
		removed: make(chan string, 16),
		errs:    make(chan error, 16),
		states:  make(chan ConnState, 32),
	}
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnActivityCreated: func(a models.Activity) { r.created <- a },
		OnActivityUpdated: func(a models.Activity) { r.updated <- a },
		OnActivityRemoved: func(id string) { r.removed <- id },
		OnError:           func(err error) { r.errs <- err },
		OnStateChange:     func(s ConnState) { r.states <- s },
	}
}

func (r *recorder) waitState(t *testing.T, want ConnState) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func waitRecv[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func validActivityJSON(t *testing.T, id string) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(models.Activity{
		ID:           id,
		Action:       models.ActionCreated,
		ResourceType: models.ResourceDocument,
		ResourceName: "Audit Trail",
		Timestamp:    time.Now(),
	})
	require.NoError(t, err)
	return data
}

func testConfig(dialer Dialer) Config {
	return Config{
		URL:          "ws://test/ws/activity",
		BaseInterval: 5 * time.Millisecond,
		MaxAttempts:  5,
		Dialer:       dialer,
	}
}

func TestReconnectDelaySequence(t *testing.T) {
	base := 3 * time.Second

	want := []time.Duration{
		3 * time.Second,
		6 * time.Second,
		12 * time.Second,
		24 * time.Second,
		48 * time.Second,
	}
	for i, expected := range want {
		assert.Equal(t, expected, reconnectDelay(i+1, base, 60*time.Second), "attempt %d", i+1)
	}
}

func TestReconnectDelayCeiling(t *testing.T) {
	base := 3 * time.Second

	// Capped at max
	assert.Equal(t, 10*time.Second, reconnectDelay(4, base, 10*time.Second))
	assert.Equal(t, 10*time.Second, reconnectDelay(5, base, 10*time.Second))

	// Negative max disables the cap
	assert.Equal(t, 48*time.Second, reconnectDelay(5, base, -1))
}

func TestConnectDeliversMessages(t *testing.T) {
	dialer := newFakeDialer(0)
	rec := newRecorder()
	sub := New(testConfig(dialer), rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateConnected)
	conn := waitRecv(t, dialer.conns, "dialed conn")

	conn.push(t, models.StreamMessage{Type: models.StreamActivityCreated, Data: validActivityJSON(t, "act-1")})
	created := waitRecv(t, rec.created, "created activity")
	assert.Equal(t, "act-1", created.ID)

	conn.push(t, models.StreamMessage{Type: models.StreamActivityUpdated, Data: validActivityJSON(t, "act-1")})
	waitRecv(t, rec.updated, "updated activity")

	removed, err := json.Marshal(models.RemovedRef{ID: "act-1"})
	require.NoError(t, err)
	conn.push(t, models.StreamMessage{Type: models.StreamActivityRemoved, Data: removed})
	assert.Equal(t, "act-1", waitRecv(t, rec.removed, "removed id"))

	sub.Disconnect()
}

func TestMalformedPayloadSurfacesError(t *testing.T) {
	dialer := newFakeDialer(0)
	rec := newRecorder()
	sub := New(testConfig(dialer), rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateConnected)
	conn := waitRecv(t, dialer.conns, "dialed conn")

	// Invalid JSON frame
	conn.inbound <- []byte("{not json")
	err := waitRecv(t, rec.errs, "malformed error")
	assert.ErrorIs(t, err, models.ErrMalformedMessage)

	// Vocabulary violation inside the payload
	bad, _ := json.Marshal(models.Activity{ID: "act-2", Action: "yeeted", ResourceType: models.ResourceDocument})
	conn.push(t, models.StreamMessage{Type: models.StreamActivityCreated, Data: bad})
	err = waitRecv(t, rec.errs, "vocabulary error")
	assert.ErrorIs(t, err, models.ErrMalformedMessage)

	// Channel stays up and usable
	assert.Equal(t, StateConnected, sub.State())
	conn.push(t, models.StreamMessage{Type: models.StreamActivityCreated, Data: validActivityJSON(t, "act-3")})
	assert.Equal(t, "act-3", waitRecv(t, rec.created, "subsequent activity").ID)

	sub.Disconnect()
}

func TestErrorFrameDoesNotChangeState(t *testing.T) {
	dialer := newFakeDialer(0)
	rec := newRecorder()
	sub := New(testConfig(dialer), rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateConnected)
	conn := waitRecv(t, dialer.conns, "dialed conn")

	conn.push(t, models.StreamMessage{Type: models.StreamError, Error: "backpressure"})
	err := waitRecv(t, rec.errs, "error frame")
	assert.Contains(t, err.Error(), "backpressure")
	assert.Equal(t, StateConnected, sub.State())

	sub.Disconnect()
}

func TestUnknownMessageTypeSurfacesError(t *testing.T) {
	dialer := newFakeDialer(0)
	rec := newRecorder()
	sub := New(testConfig(dialer), rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateConnected)
	conn := waitRecv(t, dialer.conns, "dialed conn")

	conn.push(t, models.StreamMessage{Type: "activity_exploded"})
	err := waitRecv(t, rec.errs, "unknown type error")
	assert.ErrorIs(t, err, models.ErrUnknownMessageType)

	sub.Disconnect()
}

func TestReconnectAfterDrop(t *testing.T) {
	dialer := newFakeDialer(0)
	rec := newRecorder()
	sub := New(testConfig(dialer), rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateConnected)
	first := waitRecv(t, dialer.conns, "first conn")

	first.drop()
	rec.waitState(t, StateReconnecting)
	rec.waitState(t, StateConnected)

	// A fresh connection was dialed
	second := waitRecv(t, dialer.conns, "second conn")
	second.push(t, models.StreamMessage{Type: models.StreamActivityCreated, Data: validActivityJSON(t, "act-after")})
	assert.Equal(t, "act-after", waitRecv(t, rec.created, "post-reconnect activity").ID)

	sub.Disconnect()
}

func TestExhaustedAttemptsCloseTheChannel(t *testing.T) {
	dialer := newFakeDialer(1000) // every dial refused
	rec := newRecorder()
	cfg := testConfig(dialer)
	cfg.MaxAttempts = 3
	sub := New(cfg, rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateClosed)

	// Initial dial plus MaxAttempts retries
	assert.Equal(t, cfg.MaxAttempts+1, dialer.dialCount())

	// No automatic recovery from Closed
	assert.ErrorIs(t, sub.Connect(), models.ErrStreamClosed)

	// Explicit Reconnect resets the attempt budget and tries again
	dialer.mu.Lock()
	dialer.failures = 0
	dialer.mu.Unlock()
	require.NoError(t, sub.Reconnect())
	rec.waitState(t, StateConnected)

	sub.Disconnect()
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	dialer := newFakeDialer(1000)
	rec := newRecorder()
	cfg := testConfig(dialer)
	cfg.BaseInterval = 30 * time.Millisecond
	sub := New(cfg, rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateReconnecting)
	sub.Disconnect()
	rec.waitState(t, StateClosed)

	dials := dialer.dialCount()

	// Well past the pending backoff window: the timer must not fire
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, dials, dialer.dialCount())
	assert.Equal(t, StateClosed, sub.State())

	// No late state transitions either
	select {
	case s := <-rec.states:
		t.Fatalf("unexpected state after disconnect: %s", s)
	default:
	}
}

func TestDisconnectStopsCallbacks(t *testing.T) {
	dialer := newFakeDialer(0)
	rec := newRecorder()
	sub := New(testConfig(dialer), rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateConnected)
	conn := waitRecv(t, dialer.conns, "dialed conn")

	sub.Disconnect()
	rec.waitState(t, StateClosed)

	// Frames racing the disconnect are dropped, not delivered
	select {
	case conn.inbound <- mustMarshalFrame(t, "act-late"):
	default:
	}
	time.Sleep(50 * time.Millisecond)
	select {
	case a := <-rec.created:
		t.Fatalf("callback after disconnect: %s", a.ID)
	default:
	}
}

func mustMarshalFrame(t *testing.T, id string) []byte {
	t.Helper()
	data, err := json.Marshal(models.StreamMessage{
		Type: models.StreamActivityCreated,
		Data: validActivityJSON(t, id),
	})
	require.NoError(t, err)
	return data
}

func TestSubscribeSendsFilterWhenConnected(t *testing.T) {
	dialer := newFakeDialer(0)
	rec := newRecorder()
	sub := New(testConfig(dialer), rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateConnected)
	conn := waitRecv(t, dialer.conns, "dialed conn")

	sub.Subscribe(models.FilterCriteria{Actions: []string{models.ActionCreated}})
	sub.Unsubscribe()

	assert.Eventually(t, func() bool {
		types := conn.sentTypes()
		return len(types) == 2 && types[0] == models.StreamSubscribe && types[1] == models.StreamUnsubscribe
	}, time.Second, 5*time.Millisecond)

	sub.Disconnect()
}

func TestAutoResubscribeOnReconnect(t *testing.T) {
	dialer := newFakeDialer(0)
	rec := newRecorder()
	sub := New(testConfig(dialer), rec.handlers())

	// Filter registered before the channel is even up
	criteria := models.FilterCriteria{Search: "incident"}
	sub.Subscribe(criteria)

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateConnected)
	first := waitRecv(t, dialer.conns, "first conn")

	// The stored filter goes out on connect without another Subscribe call
	assert.Eventually(t, func() bool {
		types := first.sentTypes()
		return len(types) == 1 && types[0] == models.StreamSubscribe
	}, time.Second, 5*time.Millisecond)

	first.drop()
	rec.waitState(t, StateConnected)
	second := waitRecv(t, dialer.conns, "second conn")

	// And again after the reconnect
	assert.Eventually(t, func() bool {
		types := second.sentTypes()
		return len(types) == 1 && types[0] == models.StreamSubscribe
	}, time.Second, 5*time.Millisecond)

	second.mu.Lock()
	sent := second.writes[0]
	second.mu.Unlock()
	require.NotNil(t, sent.Filters)
	assert.Equal(t, "incident", sent.Filters.Search)

	sub.Disconnect()
}

func TestConnectOnlyFromDisconnected(t *testing.T) {
	dialer := newFakeDialer(0)
	rec := newRecorder()
	sub := New(testConfig(dialer), rec.handlers())

	require.NoError(t, sub.Connect())
	rec.waitState(t, StateConnected)

	err := sub.Connect()
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	sub.Disconnect()
}
