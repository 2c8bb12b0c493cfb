package stream

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"timelinehub/pkg/logger"
	"timelinehub/pkg/models"
	"timelinehub/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // development server, all origins allowed
	},
	EnableCompression: true,
}

// Handler upgrades dashboard connections onto the stream hub
type Handler struct {
	hub *Hub
}

// NewHandler creates a new stream handler
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleStream upgrades an HTTP connection to the activity stream
func (h *Handler) HandleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// gorilla/websocket writes its own HTTP response on upgrade
		// failure; writing JSON here would double-write.
		logrus.Errorf("Stream upgrade failed: %v", err)
		return
	}

	if h.hub.Full() {
		appErr := models.NewWebSocketError(websocket.CloseTryAgainLater,
			models.ErrCodeServiceUnavailable, "stream at capacity", models.ErrInvalidInput)
		code, reason := appErr.ToWebSocketError()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
		conn.Close()
		return
	}

	clientID := utils.GenerateID("client")
	logger.Stream("connected", clientID)

	h.hub.ServeClient(&gorillaConn{conn: conn}, clientID)
}

// GetStatus reports stream hub statistics
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"clients":     h.hub.ClientCount(),
		"server_time": time.Now().UTC(),
	})
}

// gorillaConn adapts *websocket.Conn to the hub's Conn interface
type gorillaConn struct {
	conn *websocket.Conn
}

func (g *gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := g.conn.ReadMessage()
	return data, err
}

func (g *gorillaConn) WriteJSON(v any) error {
	return g.conn.WriteJSON(v)
}

func (g *gorillaConn) Ping(deadline time.Time) error {
	return g.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

func (g *gorillaConn) SetReadLimit(limit int64) {
	g.conn.SetReadLimit(limit)
}

func (g *gorillaConn) SetReadDeadline(t time.Time) error {
	return g.conn.SetReadDeadline(t)
}

func (g *gorillaConn) SetWriteDeadline(t time.Time) error {
	return g.conn.SetWriteDeadline(t)
}

func (g *gorillaConn) SetPongHandler(fn func(string) error) {
	g.conn.SetPongHandler(fn)
}

func (g *gorillaConn) Close() error {
	return g.conn.Close()
}
