package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/domain"
	"github.com/josephasare/virtual-card-service/internal/infrastructure/persistence/memory"
)

type dropNotifier struct{}

func (dropNotifier) RequestSubmitted(context.Context, *domain.Student, *domain.CardRequest) error {
	return nil
}
func (dropNotifier) PaymentConfirmed(context.Context, *domain.Student, *domain.CardRequest) error {
	return nil
}
func (dropNotifier) CardAssigned(context.Context, *domain.Student, *domain.CardRequest) error {
	return nil
}
func (dropNotifier) CardExpired(context.Context, *domain.Student, *domain.CardRequest) error {
	return nil
}
func (dropNotifier) ContactReceived(context.Context, *domain.ContactMessage) error { return nil }

func setupHub(t *testing.T) (*Hub, *services.ContactService, *httptest.Server, func()) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	contact := services.NewContactService(memory.NewMessageStore(), dropNotifier{}, logger)
	hub := NewHub(contact, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat", hub.ServeUser)
	mux.HandleFunc("/ws/admin", hub.ServeAdmin)
	server := httptest.NewServer(mux)

	return hub, contact, server, func() {
		server.Close()
		cancel()
	}
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestUserMessageReachesAdmin(t *testing.T) {
	_, _, server, teardown := setupHub(t)
	defer teardown()

	admin := dial(t, server, "/ws/admin?name=Support")
	defer admin.Close()
	user := dial(t, server, "/ws/chat?session=sess-1&name=Ama")
	defer user.Close()

	require.NoError(t, user.WriteJSON(Envelope{Message: "is my card ready?"}))

	env := readEnvelope(t, admin)
	assert.Equal(t, "chat", env.Type)
	assert.Equal(t, "sess-1", env.SessionID)
	assert.Equal(t, "user", env.Sender)
	assert.Equal(t, "Ama", env.SenderName)
	assert.Equal(t, "is my card ready?", env.Message)
}

func TestAdminReplyRoutedToSession(t *testing.T) {
	_, _, server, teardown := setupHub(t)
	defer teardown()

	user := dial(t, server, "/ws/chat?session=sess-2&name=Kofi")
	defer user.Close()
	admin := dial(t, server, "/ws/admin")
	defer admin.Close()

	require.NoError(t, admin.WriteJSON(Envelope{SessionID: "sess-2", Message: "yes, check your dashboard"}))

	env := readEnvelope(t, user)
	assert.Equal(t, "admin", env.Sender)
	assert.Equal(t, "Support", env.SenderName)
	assert.Equal(t, "yes, check your dashboard", env.Message)
}

func TestUserCannotSpoofSession(t *testing.T) {
	_, _, server, teardown := setupHub(t)
	defer teardown()

	admin := dial(t, server, "/ws/admin")
	defer admin.Close()
	user := dial(t, server, "/ws/chat?session=sess-own&name=Ama")
	defer user.Close()

	require.NoError(t, user.WriteJSON(Envelope{SessionID: "sess-other", Message: "hello"}))

	env := readEnvelope(t, admin)
	assert.Equal(t, "sess-own", env.SessionID)
}

func TestTranscriptPersisted(t *testing.T) {
	_, contact, server, teardown := setupHub(t)
	defer teardown()

	user := dial(t, server, "/ws/chat?session=sess-3&name=Ama")
	defer user.Close()

	require.NoError(t, user.WriteJSON(Envelope{Message: "first"}))
	require.NoError(t, user.WriteJSON(Envelope{Message: "second"}))

	require.Eventually(t, func() bool {
		history, err := contact.ChatHistory(context.Background(), "sess-3", 10)
		return err == nil && len(history) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestUserConnectionRequiresSession(t *testing.T) {
	_, _, server, teardown := setupHub(t)
	defer teardown()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryReplayedOnJoin(t *testing.T) {
	_, contact, server, teardown := setupHub(t)
	defer teardown()

	require.NoError(t, contact.RecordChat(context.Background(),
		domain.NewChatMessage("sess-4", domain.ChatSenderUser, "Ama", "hello?")))
	require.NoError(t, contact.RecordChat(context.Background(),
		domain.NewChatMessage("sess-4", domain.ChatSenderAdmin, "Support", "hi, one moment")))

	user := dial(t, server, "/ws/chat?session=sess-4&name=Ama")
	defer user.Close()

	first := readEnvelope(t, user)
	assert.Equal(t, "history", first.Type)
	assert.Equal(t, "user", first.Sender)
	assert.Equal(t, "hello?", first.Message)

	second := readEnvelope(t, user)
	assert.Equal(t, "history", second.Type)
	assert.Equal(t, "admin", second.Sender)
	assert.Equal(t, "hi, one moment", second.Message)
}
