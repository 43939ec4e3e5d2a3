package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	name      string
	admin     bool

	outbound  chan []byte
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, sessionID, name string, admin bool) *client {
	return &client{
		hub:       hub,
		conn:      conn,
		sessionID: sessionID,
		name:      name,
		admin:     admin,
		outbound:  make(chan []byte, 16),
	}
}

func (c *client) send(env Envelope) {
	data := c.hub.marshal(env)
	if data == nil {
		return
	}
	select {
	case c.outbound <- data:
	default:
		// Slow consumer; drop rather than block the hub.
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.outbound)
	})
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
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
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if !c.admin {
			// Students cannot speak for other sessions.
			env.SessionID = c.sessionID
		}
		if env.SenderName == "" {
			env.SenderName = c.name
		}
		c.hub.inbound <- inboundMessage{from: c, env: env}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.outbound:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
