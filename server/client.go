package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heraldai/herald/chime"
	"github.com/heraldai/herald/version"
)

// WebSocket timeout constants, after the Gorilla chat example.
// See: https://github.com/gorilla/websocket/blob/master/examples/chat/client.go
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer. Clients only send pings
	// and small control frames; events flow the other way.
	maxMessageSize = 4096

	// Per-client event buffer
	sendBuffer = 64
)

// Client is one WebSocket connection receiving the event stream.
type Client struct {
	server *HeraldServer
	conn   *websocket.Conn
	send   chan chime.JobEvent
	id     string

	closeOnce sync.Once
}

// newClient wraps an upgraded connection.
func newClient(s *HeraldServer, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		server: s,
		conn:   conn,
		send:   make(chan chime.JobEvent, sendBuffer),
		id:     fmt.Sprintf("%s_%d", remoteAddr, time.Now().UnixNano()),
	}
}

// close shuts the send channel exactly once. The write pump notices
// the closed channel and sends the close frame.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump drains the connection and keeps the pong deadline fresh.
// Clients do not speak to Herald over this socket beyond keepalives,
// so every read result except an error is discarded.
func (c *Client) readPump() {
	defer func() {
		c.server.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				c.server.logger.Warnw("WebSocket read error",
					"client_id", c.id,
					"error", err,
				)
			}
			return
		}
	}
}

// writePump streams events to the connection and pings on a ticker.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.server.ctx.Done():
			return
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.server.logger.Debugw("WebSocket write failed",
					"client_id", c.id,
					"error", err,
				)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades the connection and starts the pumps.
func (s *HeraldServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("WebSocket upgrade failed", "error", err)
		return
	}

	client := newClient(s, conn, r.RemoteAddr)

	// Send the hello before the write pump starts so the two never
	// write concurrently.
	versionInfo := version.Get()
	hello := map[string]interface{}{
		"type":    "hello",
		"version": versionInfo.Version,
		"commit":  versionInfo.Short(),
		"owner":   s.ownerFromRequest(r),
	}
	if err := conn.WriteJSON(hello); err != nil {
		s.logger.Debugw("Failed to send hello",
			"client_id", client.id,
			"error", err,
		)
	}

	s.register <- client

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
}
