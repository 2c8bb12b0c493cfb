// Package stream - WebSocket activity stream
// Fans live activity mutations out to subscribed dashboard clients
package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"timelinehub/internal/feed"
	"timelinehub/pkg/models"
)

// Constants for performance and limits
const (
	maxMessageSize = 4096                // inbound frames are subscribe/unsubscribe only
	writeWait      = 10 * time.Second    // time allowed to write a frame
	pongWait       = 60 * time.Second    // time allowed to read the next pong
	pingPeriod     = (pongWait * 9) / 10 // send pings to client
	sendBuffer     = 256                 // per-client outbound buffer
)

// Hub manages stream client connections and broadcast fan-out
type Hub struct {
	clientsMu sync.RWMutex
	clients   map[*Client]bool

	broadcast  chan models.StreamMessage
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	wg         sync.WaitGroup

	maxClients int
	limiter    *rate.Limiter
	dropped    uint64
}

// NewHub creates a stream hub. Broadcast fan-out is capped at
// perSecond frames (burst allowance on top); excess frames are dropped
// rather than queued.
func NewHub(maxClients, perSecond, burst int) *Hub {
	if maxClients <= 0 {
		maxClients = 1000
	}
	if perSecond <= 0 {
		perSecond = 100
	}
	if burst <= 0 {
		burst = perSecond * 2
	}

	hub := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.StreamMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		maxClients: maxClients,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
	}

	hub.wg.Add(1)
	go hub.run()

	return hub
}

// Client represents one connected dashboard
type Client struct {
	hub  *Hub
	conn Conn
	send chan models.StreamMessage
	id   string

	filterMu sync.RWMutex
	filter   *models.FilterCriteria
}

// Conn abstracts the websocket connection for the hub
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Ping(deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		case <-h.stop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.clientsMu.Lock()
	if len(h.clients) >= h.maxClients {
		h.clientsMu.Unlock()
		logrus.Warnf("Stream full, rejecting client %s", client.id)
		client.conn.Close()
		return
	}
	h.clients[client] = true
	h.clientsMu.Unlock()

	logrus.Debugf("✅ Stream client connected: %s", client.id)
}

func (h *Hub) handleUnregister(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.clientsMu.Unlock()

	logrus.Debugf("👋 Stream client left: %s", client.id)
}

// fanOut delivers a frame to every client whose filter scope matches
func (h *Hub) fanOut(msg models.StreamMessage) {
	if !h.limiter.Allow() {
		h.dropped++
		logrus.Warnf("Stream broadcast rate exceeded, dropping %s frame", msg.Type)
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for client := range h.clients {
		if !client.wants(msg) {
			continue
		}
		select {
		case client.send <- msg:
		default:
			// Send buffer full, drop the slow client.
			logrus.Warnf("Stream client %s send buffer full, disconnecting", client.id)
			go func(c *Client) {
				select {
				case h.unregister <- c:
				case <-h.stop:
				}
			}(client)
		}
	}
}

func (h *Hub) handleStop() {
	h.clientsMu.Lock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = nil
	h.clientsMu.Unlock()
	logrus.Info("🛑 Stream hub stopped")
}

// BroadcastCreated pushes an activity_created frame
func (h *Hub) BroadcastCreated(a models.Activity) {
	h.broadcastActivity(models.StreamActivityCreated, a)
}

// BroadcastUpdated pushes an activity_updated frame
func (h *Hub) BroadcastUpdated(a models.Activity) {
	h.broadcastActivity(models.StreamActivityUpdated, a)
}

// BroadcastRemoved pushes an activity_removed frame carrying only the id
func (h *Hub) BroadcastRemoved(id string) {
	data, err := json.Marshal(models.RemovedRef{ID: id})
	if err != nil {
		return
	}
	h.enqueue(models.StreamMessage{
		Type:      models.StreamActivityRemoved,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func (h *Hub) broadcastActivity(msgType string, a models.Activity) {
	data, err := json.Marshal(a)
	if err != nil {
		logrus.Errorf("Failed to marshal activity %s: %v", a.ID, err)
		return
	}
	h.enqueue(models.StreamMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func (h *Hub) enqueue(msg models.StreamMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.stop:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Full reports whether the hub is at client capacity. Advisory only;
// registration re-checks under the hub's own serialization.
func (h *Hub) Full() bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients) >= h.maxClients
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	close(h.stop)
	h.wg.Wait()
}

// ServeClient registers a connection and starts its pumps
func (h *Hub) ServeClient(conn Conn, clientID string) {
	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.StreamMessage, sendBuffer),
		id:   clientID,
	}

	h.register <- client

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// wants applies the client's subscribe scope. Frames other than
// created/updated always pass; removal and error frames carry no
// activity to filter on.
func (c *Client) wants(msg models.StreamMessage) bool {
	if msg.Type != models.StreamActivityCreated && msg.Type != models.StreamActivityUpdated {
		return true
	}

	c.filterMu.RLock()
	criteria := c.filter
	c.filterMu.RUnlock()
	if criteria == nil {
		return true
	}

	var activity models.Activity
	if err := json.Unmarshal(msg.Data, &activity); err != nil {
		return true
	}
	return feed.Matches(activity, *criteria)
}

// readPump consumes subscribe/unsubscribe frames until the client drops
func (c *Client) readPump() {
	defer func() {
		// The run loop may already be gone when the hub is stopping.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg models.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logrus.Warnf("Invalid frame from client %s: %v", c.id, err)
			c.sendError(models.ErrCodeStreamProtocol, "invalid JSON frame")
			continue
		}

		switch msg.Type {
		case models.StreamSubscribe:
			c.filterMu.Lock()
			c.filter = msg.Filters
			c.filterMu.Unlock()
			logrus.Debugf("Stream client %s subscribed", c.id)
		case models.StreamUnsubscribe:
			c.filterMu.Lock()
			c.filter = nil
			c.filterMu.Unlock()
		default:
			c.sendError(models.ErrCodeStreamProtocol, "unknown message type: "+msg.Type)
		}
	}
}

// writePump flushes outbound frames and keepalive pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Client was unregistered.
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.Ping(time.Now().Add(writeWait)); err != nil {
				return
			}

		case <-c.hub.stop:
			return
		}
	}
}

func (c *Client) sendError(code, message string) {
	msg := models.StreamMessage{
		Type:      models.StreamError,
		Error:     code + ": " + message,
		Timestamp: time.Now(),
	}
	select {
	case c.send <- msg:
	default:
		// Don't block if channel is full.
	}
}
