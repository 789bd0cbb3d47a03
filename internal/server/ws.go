package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Websocket timeouts, as in the gorilla chat example
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum size of a command from the peer
	maxMessageSize = 64 * 1024

	// Outgoing messages buffered per client before new ones are dropped
	sendBuffer = 64
)

// client is one websocket connection attached to a room
type client struct {
	id     string
	server *Server
	room   *room
	conn   *websocket.Conn
	owner  bool // the connection created the session and ends it on close

	mu     sync.Mutex
	send   chan message
	closed bool
}

// handleWebSocket attaches to ?session=<id>, or starts a new session that
// lives as long as the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var rm *room
	owner := false
	if sid := r.URL.Query().Get("session"); sid != "" {
		var ok bool
		if rm, ok = s.lookupRoom(sid); !ok {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	if rm == nil {
		ctx, cancel := s.commandContext(context.Background())
		rm = s.createRoom(ctx)
		cancel()
		owner = true
	}

	c := &client{
		id:     uuid.NewString(),
		server: s,
		room:   rm,
		conn:   conn,
		owner:  owner,
		send:   make(chan message, sendBuffer),
	}
	rm.join(c)
	c.enqueue(message{Type: "frame", Data: rm.sess.Frame()})
	rm.log.Debugw("client connected", "client_id", c.id, "owner", owner)

	go c.writePump()
	c.readPump()
}

// enqueue queues m without blocking. A slow client loses messages rather
// than stalling the session.
func (c *client) enqueue(m message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- m:
	default:
		c.room.log.Warnw("client send buffer full, dropping message", "client_id", c.id, "type", m.Type)
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump runs commands from the peer until the connection closes
func (c *client) readPump() {
	defer func() {
		c.room.leave(c)
		c.close()
		c.conn.Close()
		if c.owner {
			c.server.removeRoom(c.room.sess.ID)
		}
		c.room.log.Debugw("client disconnected", "client_id", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				c.room.log.Warnw("websocket read error", "client_id", c.id, "error", err)
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.enqueue(message{Type: "error", Error: "invalid command: " + err.Error()})
			continue
		}

		ctx, cancel := c.server.commandContext(context.Background())
		res, err := c.room.run(ctx, cmd)
		cancel()
		if err != nil {
			c.enqueue(message{Type: "error", Error: err.Error()})
			continue
		}
		// frames already reach every client through the room
		res.Frame = nil
		c.enqueue(message{Type: "result", Data: res})
	}
}

// writePump sends queued messages and keeps the connection alive
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case m, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(m); err != nil {
				c.room.log.Debugw("websocket write error", "client_id", c.id, "error", err)
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
