package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// ContactService stores support messages and chat transcripts.
type ContactService struct {
	messages application.MessageStore
	notifier application.Notifier
	logger   *slog.Logger
}

func NewContactService(messages application.MessageStore, notifier application.Notifier, logger *slog.Logger) *ContactService {
	return &ContactService{messages: messages, notifier: notifier, logger: logger}
}

// Submit records a contact-form message and alerts the admin mailbox.
func (s *ContactService) Submit(ctx context.Context, cmd ContactCommand) (*domain.ContactMessage, error) {
	msg := domain.NewContactMessage(cmd.Name, cmd.Email, cmd.Subject, cmd.Message)
	if err := s.messages.CreateContact(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Info("contact message received", "message_id", msg.ID, "subject", msg.Subject)

	if err := s.notifier.ContactReceived(ctx, msg); err != nil {
		s.logger.Error("notification failed", "event", "contact received", "error", err)
	}
	return msg, nil
}

// List returns contact messages, optionally filtered by workflow status.
func (s *ContactService) List(ctx context.Context, status *domain.ContactStatus) ([]*domain.ContactMessage, error) {
	return s.messages.ListContact(ctx, status)
}

// UpdateStatus moves a contact message through the new/read/resolved flow.
func (s *ContactService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ContactStatus) (*domain.ContactMessage, error) {
	switch status {
	case domain.ContactNew, domain.ContactRead, domain.ContactResolved:
	default:
		return nil, domain.NewValidationError("unknown contact status")
	}
	return s.messages.UpdateContactStatus(ctx, id, status)
}

// RecordChat appends a chat message to its session transcript.
func (s *ContactService) RecordChat(ctx context.Context, msg *domain.ChatMessage) error {
	return s.messages.CreateChat(ctx, msg)
}

// ChatHistory returns the most recent messages for a session in
// chronological order.
func (s *ContactService) ChatHistory(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	return s.messages.ListChatBySession(ctx, sessionID, limit)
}
