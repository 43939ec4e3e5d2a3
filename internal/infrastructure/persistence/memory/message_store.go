package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

type MessageStore struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]*domain.ContactMessage
	chats    []*domain.ChatMessage
}

func NewMessageStore() *MessageStore {
	return &MessageStore{contacts: make(map[uuid.UUID]*domain.ContactMessage)}
}

func (s *MessageStore) CreateContact(ctx context.Context, msg *domain.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *msg
	s.contacts[msg.ID] = &c
	return nil
}

func (s *MessageStore) ListContact(ctx context.Context, status *domain.ContactStatus) ([]*domain.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.ContactMessage
	for _, m := range s.contacts {
		if status == nil || m.Status == *status {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MessageStore) UpdateContactStatus(ctx context.Context, id uuid.UUID, status domain.ContactStatus) (*domain.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.contacts[id]
	if !ok {
		return nil, domain.NewNotFoundError("contact message")
	}
	m.Status = status
	c := *m
	return &c, nil
}

func (s *MessageStore) CreateChat(ctx context.Context, msg *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *msg
	s.chats = append(s.chats, &c)
	return nil
}

func (s *MessageStore) ListChatBySession(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.ChatMessage
	for _, m := range s.chats {
		if m.SessionID == sessionID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
