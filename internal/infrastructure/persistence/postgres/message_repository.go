package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db.Pool}
}

func (r *MessageRepository) CreateContact(ctx context.Context, msg *domain.ContactMessage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO contact_messages (id, name, email, subject, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.Name, msg.Email, msg.Subject, msg.Message, string(msg.Status), msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListContact(ctx context.Context, status *domain.ContactStatus) ([]*domain.ContactMessage, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		rows, err = r.db.Query(ctx, `
			SELECT id, name, email, subject, message, status, created_at
			FROM contact_messages WHERE status = $1 ORDER BY created_at DESC
		`, string(*status))
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT id, name, email, subject, message, status, created_at
			FROM contact_messages ORDER BY created_at DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("query contact messages: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.ContactMessage, error) {
		var m domain.ContactMessage
		var status string
		err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &status, &m.CreatedAt)
		m.Status = domain.ContactStatus(status)
		return &m, err
	})
}

func (r *MessageRepository) UpdateContactStatus(ctx context.Context, id uuid.UUID, status domain.ContactStatus) (*domain.ContactMessage, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE contact_messages SET status = $1 WHERE id = $2
		RETURNING id, name, email, subject, message, status, created_at
	`, string(status), id)

	var m domain.ContactMessage
	var st string
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &st, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("contact message")
		}
		return nil, fmt.Errorf("update contact message: %w", err)
	}
	m.Status = domain.ContactStatus(st)
	return &m, nil
}

func (r *MessageRepository) CreateChat(ctx context.Context, msg *domain.ChatMessage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, sender, sender_name, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.SessionID, string(msg.Sender), msg.SenderName, msg.Message, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListChatBySession(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, sender, sender_name, message, created_at
		FROM (
			SELECT id, session_id, sender, sender_name, message, created_at
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.ChatMessage, error) {
		var m domain.ChatMessage
		var sender string
		err := row.Scan(&m.ID, &m.SessionID, &sender, &m.SenderName, &m.Message, &m.CreatedAt)
		m.Sender = domain.ChatSender(sender)
		return &m, err
	})
}
