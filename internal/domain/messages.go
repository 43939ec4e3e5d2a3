package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContactStatus tracks how far an admin has worked through a support message.
type ContactStatus string

const (
	ContactNew      ContactStatus = "new"
	ContactRead     ContactStatus = "read"
	ContactResolved ContactStatus = "resolved"
)

type ContactMessage struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Subject   string
	Message   string
	Status    ContactStatus
	CreatedAt time.Time
}

func NewContactMessage(name, email, subject, message string) *ContactMessage {
	return &ContactMessage{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Subject:   subject,
		Message:   message,
		Status:    ContactNew,
		CreatedAt: time.Now(),
	}
}

// ChatSender distinguishes the two sides of a live-chat session.
type ChatSender string

const (
	ChatSenderUser  ChatSender = "user"
	ChatSenderAdmin ChatSender = "admin"
)

type ChatMessage struct {
	ID         uuid.UUID
	SessionID  string
	Sender     ChatSender
	SenderName string
	Message    string
	CreatedAt  time.Time
}

func NewChatMessage(sessionID string, sender ChatSender, senderName, message string) *ChatMessage {
	return &ChatMessage{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Sender:     sender,
		SenderName: senderName,
		Message:    message,
		CreatedAt:  time.Now(),
	}
}
