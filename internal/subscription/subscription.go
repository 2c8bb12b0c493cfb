// Package subscription - Activity stream client
// Persistent websocket channel pushing live activity mutations,
// with automatic reconnection and exponential backoff
package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"timelinehub/pkg/models"
)

// ConnState is the subscription connection state
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	// StateClosed is terminal for a subscription instance: entered after
	// exhausting reconnect attempts or an explicit Disconnect.
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Reconnect policy defaults
const (
	DefaultBaseInterval = 3 * time.Second
	DefaultMaxDelay     = 60 * time.Second
	DefaultMaxAttempts  = 5
)

// Conn is one open stream connection
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Dialer opens stream connections. Swappable in tests.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Handlers receives subscription events. All callbacks fire from the
// subscription's own goroutines, one message processed to completion
// before the next. Nil callbacks are skipped.
type Handlers struct {
	OnActivityCreated func(models.Activity)
	OnActivityUpdated func(models.Activity)
	OnActivityRemoved func(id string)
	// OnError receives application-level errors (malformed payloads,
	// server error frames). These do not force a state transition.
	OnError func(error)
	OnStateChange func(ConnState)
}

// Config tunes the subscription
type Config struct {
	URL          string
	BaseInterval time.Duration // backoff base, default 3s
	MaxDelay     time.Duration // backoff ceiling, default 60s; <0 disables the cap
	MaxAttempts  int           // reconnect attempts before Closed, default 5
	Dialer       Dialer
}

// Subscription owns the connection state machine. All state mutation is
// serialized behind the mutex; callbacks are invoked outside it.
type Subscription struct {
	cfg      Config
	handlers Handlers

	mu             sync.Mutex
	state          ConnState
	conn           Conn
	attempts       int
	lastFilter     *models.FilterCriteria
	reconnectTimer *time.Timer
	// gen invalidates stale read loops and reconnect timers. Bumped on
	// every (re)connect cycle and on Disconnect, so a timer that fires
	// after Disconnect can never resurrect a closed subscription.
	gen uint64
}

// New creates a subscription in the Disconnected state
func New(cfg Config, handlers Handlers) *Subscription {
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = DefaultBaseInterval
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &wsDialer{}
	}
	return &Subscription{
		cfg:      cfg,
		handlers: handlers,
		state:    StateDisconnected,
	}
}

// State returns the current connection state
func (s *Subscription) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts the channel. Only valid from Disconnected.
func (s *Subscription) Connect() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return fmt.Errorf("connect: %w, call Reconnect", models.ErrStreamClosed)
	}
	if s.state != StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("connect from %s: %w", state, models.ErrInvalidInput)
	}
	s.startConnectLocked()
	s.mu.Unlock()
	return nil
}

// Reconnect recovers an exhausted or disconnected subscription: resets
// the attempt counter and dials again. The required explicit caller
// action after exhausted-reconnect.
func (s *Subscription) Reconnect() error {
	s.mu.Lock()
	if s.state != StateClosed && s.state != StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("reconnect from %s: %w", state, models.ErrInvalidInput)
	}
	s.attempts = 0
	s.startConnectLocked()
	s.mu.Unlock()
	return nil
}

// Disconnect closes the channel from any state. Cancels any pending
// reconnect timer; no callbacks fire afterwards.
func (s *Subscription) Disconnect() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.gen++
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.state = StateClosed
	s.mu.Unlock()

	s.notifyState(StateClosed)
}

// Subscribe records the filter and sends a filter-scoping request when
// the channel is Connected. The filter is remembered and automatically
// re-sent on every successful (re)connect.
func (s *Subscription) Subscribe(filters models.FilterCriteria) {
	s.mu.Lock()
	s.lastFilter = &filters
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.Unlock()

	if !connected {
		logrus.Debug("subscribe dropped: channel not connected")
		return
	}
	s.send(conn, models.StreamMessage{Type: models.StreamSubscribe, Filters: &filters})
}

// Unsubscribe clears the filter scope
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	s.lastFilter = nil
	conn := s.conn
	connected := s.state == StateConnected
	s.mu.Unlock()

	if !connected {
		return
	}
	s.send(conn, models.StreamMessage{Type: models.StreamUnsubscribe})
}

// startConnectLocked begins a dial cycle. Caller holds the mutex.
func (s *Subscription) startConnectLocked() {
	s.gen++
	gen := s.gen
	s.state = StateConnecting

	go func() {
		s.notifyState(StateConnecting)
		s.dial(gen)
	}()
}

func (s *Subscription) dial(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := s.cfg.Dialer.Dial(ctx, s.cfg.URL)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		logrus.Warnf("Stream dial failed: %v", err)
		next := s.scheduleReconnectLocked(gen)
		s.mu.Unlock()
		s.notifyState(next)
		return
	}

	s.conn = conn
	s.state = StateConnected
	s.attempts = 0
	filter := s.lastFilter
	s.mu.Unlock()

	s.notifyState(StateConnected)

	// Auto-resubscribe with the last-known filter scope.
	if filter != nil {
		s.send(conn, models.StreamMessage{Type: models.StreamSubscribe, Filters: filter})
	}

	go s.readLoop(gen, conn)
}

// readLoop drains inbound frames until the connection drops. Messages
// are handled to completion in arrival order; no batching or reorder.
func (s *Subscription) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(gen, err)
			return
		}
		s.handleMessage(gen, data)
	}
}

func (s *Subscription) handleMessage(gen uint64, data []byte) {
	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}

	var msg models.StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.notifyError(fmt.Errorf("%w: %v", models.ErrMalformedMessage, err))
		return
	}

	switch msg.Type {
	case models.StreamActivityCreated, models.StreamActivityUpdated:
		var activity models.Activity
		if err := json.Unmarshal(msg.Data, &activity); err != nil {
			s.notifyError(fmt.Errorf("%w: %s payload: %v", models.ErrMalformedMessage, msg.Type, err))
			return
		}
		if err := activity.Validate(); err != nil {
			s.notifyError(fmt.Errorf("%w: %v", models.ErrMalformedMessage, err))
			return
		}
		if msg.Type == models.StreamActivityCreated {
			if s.handlers.OnActivityCreated != nil {
				s.handlers.OnActivityCreated(activity)
			}
		} else if s.handlers.OnActivityUpdated != nil {
			s.handlers.OnActivityUpdated(activity)
		}

	case models.StreamActivityRemoved:
		var ref models.RemovedRef
		if err := json.Unmarshal(msg.Data, &ref); err != nil || ref.ID == "" {
			s.notifyError(fmt.Errorf("%w: removed payload", models.ErrMalformedMessage))
			return
		}
		if s.handlers.OnActivityRemoved != nil {
			s.handlers.OnActivityRemoved(ref.ID)
		}

	case models.StreamError:
		// Application-level error frame; connection state unaffected.
		s.notifyError(errors.New(msg.Error))

	default:
		s.notifyError(fmt.Errorf("%w: %q", models.ErrUnknownMessageType, msg.Type))
	}
}

// handleClose reacts to an unexpected connection drop
func (s *Subscription) handleClose(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen {
		// Superseded by Disconnect or a newer connection.
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	logrus.Warnf("Stream connection lost: %v", err)
	next := s.scheduleReconnectLocked(gen)
	s.mu.Unlock()
	s.notifyState(next)
}

// scheduleReconnectLocked runs the backoff policy and returns the state
// entered, for notification after unlock. Caller holds the mutex.
func (s *Subscription) scheduleReconnectLocked(gen uint64) ConnState {
	s.attempts++
	if s.attempts > s.cfg.MaxAttempts {
		s.state = StateClosed
		s.reconnectTimer = nil
		logrus.Errorf("Stream reconnect attempts exhausted after %d tries", s.cfg.MaxAttempts)
		return StateClosed
	}

	delay := reconnectDelay(s.attempts, s.cfg.BaseInterval, s.cfg.MaxDelay)
	s.state = StateReconnecting
	logrus.Infof("Stream reconnecting in %s (attempt %d/%d)", delay, s.attempts, s.cfg.MaxAttempts)

	s.reconnectTimer = time.AfterFunc(delay, func() {
		s.reconnectTimerFired(gen)
	})
	return StateReconnecting
}

func (s *Subscription) reconnectTimerFired(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != StateReconnecting {
		// Timer raced with Disconnect; the generation check makes the
		// cancellation airtight even if Stop missed the firing.
		s.mu.Unlock()
		return
	}
	s.reconnectTimer = nil
	s.startConnectLocked()
	s.mu.Unlock()
}

// reconnectDelay computes base * 2^(attempt-1), capped at max.
// A negative max disables the ceiling.
func reconnectDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (s *Subscription) send(conn Conn, msg models.StreamMessage) {
	if conn == nil {
		return
	}
	msg.Timestamp = time.Now()
	if err := conn.WriteJSON(msg); err != nil {
		logrus.Warnf("Stream write failed: %v", err)
		s.notifyError(fmt.Errorf("stream write: %w", err))
	}
}

func (s *Subscription) notifyState(state ConnState) {
	if s.handlers.OnStateChange != nil {
		s.handlers.OnStateChange(state)
	}
}

func (s *Subscription) notifyError(err error) {
	if s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}

// wsDialer is the production dialer over gorilla/websocket
type wsDialer struct{}

func (d *wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
