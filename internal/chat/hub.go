// Package chat provides the live support channel between students and
// admins. One hub fans messages between a student's session and every
// connected admin; transcripts are persisted per session.
package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// historyReplayLimit caps the transcript replayed to a rejoining student.
const historyReplayLimit = 50

// Envelope is the wire format in both directions.
type Envelope struct {
	Type       string `json:"type"`
	SessionID  string `json:"sessionId"`
	Sender     string `json:"sender"`
	SenderName string `json:"senderName"`
	Message    string `json:"message"`
}

type Hub struct {
	contact  *services.ContactService
	logger   *slog.Logger
	upgrader websocket.Upgrader

	register   chan *client
	unregister chan *client
	inbound    chan inboundMessage

	// Only the run loop touches these maps.
	sessions map[string]*client
	admins   map[*client]struct{}
}

type inboundMessage struct {
	from *client
	env  Envelope
}

func NewHub(contact *services.ContactService, logger *slog.Logger) *Hub {
	return &Hub{
		contact: contact,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The chat widget is served from arbitrary school portals.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		inbound:    make(chan inboundMessage, 64),
		sessions:   make(map[string]*client),
		admins:     make(map[*client]struct{}),
	}
}

// Run owns the connection registry. It exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("chat hub started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("chat hub stopping")
			h.closeAll()
			return

		case c := <-h.register:
			if c.admin {
				h.admins[c] = struct{}{}
			} else {
				// A reconnect replaces the previous socket for the session.
				if prev, ok := h.sessions[c.sessionID]; ok {
					prev.close()
				}
				h.sessions[c.sessionID] = c
			}

		case c := <-h.unregister:
			if c.admin {
				delete(h.admins, c)
			} else if h.sessions[c.sessionID] == c {
				delete(h.sessions, c.sessionID)
			}
			c.close()

		case msg := <-h.inbound:
			h.route(ctx, msg)
		}
	}
}

func (h *Hub) route(ctx context.Context, msg inboundMessage) {
	env := msg.env
	if env.Message == "" || env.SessionID == "" {
		return
	}

	sender := domain.ChatSenderUser
	if msg.from.admin {
		sender = domain.ChatSenderAdmin
	}
	env.Sender = string(sender)
	env.Type = "chat"

	record := domain.NewChatMessage(env.SessionID, sender, env.SenderName, env.Message)
	if err := h.contact.RecordChat(ctx, record); err != nil {
		h.logger.Error("failed to persist chat message",
			"session_id", env.SessionID, "error", err)
	}

	// Admin replies reach the session's student; student messages reach
	// every admin. Both sides see their own traffic echoed to the rest of
	// their pool.
	if user, ok := h.sessions[env.SessionID]; ok && msg.from.admin {
		user.send(env)
	}
	for admin := range h.admins {
		if admin != msg.from {
			admin.send(env)
		}
	}
}

func (h *Hub) closeAll() {
	for _, c := range h.sessions {
		c.close()
	}
	for c := range h.admins {
		c.close()
	}
}

// ServeUser upgrades a student connection. The session ID groups the
// transcript and routes admin replies back.
func (h *Hub) ServeUser(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session query parameter is required", http.StatusBadRequest)
		return
	}
	h.serve(w, r, sessionID, r.URL.Query().Get("name"), false)
}

// ServeAdmin upgrades an admin connection. Key checking happens in the
// middleware wrapping this handler.
func (h *Hub) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Support"
	}
	h.serve(w, r, "", name, true)
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, sessionID, name string, admin bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	if !admin {
		h.replayHistory(r.Context(), conn, sessionID)
	}

	c := newClient(h, conn, sessionID, name, admin)
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// replayHistory sends the session's recent transcript before the pumps
// start, so a rejoining student sees prior messages in order.
func (h *Hub) replayHistory(ctx context.Context, conn *websocket.Conn, sessionID string) {
	history, err := h.contact.ChatHistory(ctx, sessionID, historyReplayLimit)
	if err != nil {
		h.logger.Error("failed to load chat history", "session_id", sessionID, "error", err)
		return
	}
	for _, msg := range history {
		env := Envelope{
			Type:       "history",
			SessionID:  msg.SessionID,
			Sender:     string(msg.Sender),
			SenderName: msg.SenderName,
			Message:    msg.Message,
		}
		if err := conn.WriteJSON(env); err != nil {
			h.logger.Error("failed to replay chat history", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (h *Hub) marshal(env Envelope) []byte {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to marshal chat envelope", "error", err)
		return nil
	}
	return data
}
