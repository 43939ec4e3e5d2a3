// Package memory provides map-backed implementations of the persistence
// ports. It backs service tests and demo deployments that run without
// Postgres; the optimistic-version contract matches the SQL store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

type RequestStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*domain.CardRequest
}

func NewRequestStore() *RequestStore {
	return &RequestStore{requests: make(map[uuid.UUID]*domain.CardRequest)}
}

func cloneRequest(r *domain.CardRequest) *domain.CardRequest {
	c := *r
	c.PaymentMethod = clonePtr(r.PaymentMethod)
	c.ProviderHandle = clonePtr(r.ProviderHandle)
	c.CardNumber = clonePtr(r.CardNumber)
	c.CardExpiry = clonePtr(r.CardExpiry)
	c.CardCVV = clonePtr(r.CardCVV)
	c.PaymentVerifiedAt = clonePtr(r.PaymentVerifiedAt)
	c.AssignedAt = clonePtr(r.AssignedAt)
	c.CardExpiresAt = clonePtr(r.CardExpiresAt)
	c.PaidAt = clonePtr(r.PaidAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *RequestStore) Create(ctx context.Context, req *domain.CardRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.StudentID == req.StudentID && existing.IsActive() {
			return domain.NewDuplicateActiveRequestError()
		}
		if existing.RequestToken == req.RequestToken || existing.PaymentReference == req.PaymentReference {
			return domain.NewTokenExhaustedError()
		}
	}

	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *RequestStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.CardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.requests[id]; ok {
		return cloneRequest(r), nil
	}
	return nil, domain.NewNotFoundError("card request")
}

func (s *RequestStore) FindByToken(ctx context.Context, token string) (*domain.CardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.requests {
		if r.RequestToken == token {
			return cloneRequest(r), nil
		}
	}
	return nil, domain.NewNotFoundError("card request")
}

func (s *RequestStore) FindByReference(ctx context.Context, reference string) (*domain.CardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.requests {
		if r.PaymentReference == reference {
			return cloneRequest(r), nil
		}
	}
	return nil, domain.NewNotFoundError("card request")
}

func (s *RequestStore) FindActiveForStudent(ctx context.Context, studentID uuid.UUID) (*domain.CardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.requests {
		if r.StudentID == studentID && r.IsActive() {
			return cloneRequest(r), nil
		}
	}
	return nil, nil
}

// Update commits the record only if nobody else has written it since the
// caller's read, matching the SQL store's version check.
func (s *RequestStore) Update(ctx context.Context, req *domain.CardRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[req.ID]
	if !ok {
		return domain.NewNotFoundError("card request")
	}
	if current.Version != req.Version {
		return domain.NewConcurrentModificationError()
	}

	updated := cloneRequest(req)
	updated.Version++
	s.requests[req.ID] = updated
	req.Version = updated.Version
	return nil
}

func (s *RequestStore) ListByStatus(ctx context.Context, status *domain.Status) ([]*domain.CardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.CardRequest
	for _, r := range s.requests {
		if status == nil || r.Status == *status {
			out = append(out, cloneRequest(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *RequestStore) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.CardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.CardRequest
	for _, r := range s.requests {
		if r.StudentID == studentID {
			out = append(out, cloneRequest(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *RequestStore) ListExpiredAssigned(ctx context.Context, asOf time.Time, limit int) ([]*domain.CardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.CardRequest
	for _, r := range s.requests {
		if limit > 0 && len(out) == limit {
			break
		}
		if r.Status == domain.StatusAssigned && r.CardExpiresAt != nil && !r.CardExpiresAt.After(asOf) {
			out = append(out, cloneRequest(r))
		}
	}
	return out, nil
}

func (s *RequestStore) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.CardRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.CardRequest
	for _, r := range s.requests {
		if limit > 0 && len(out) == limit {
			break
		}
		unpaid := r.PaymentStatus == domain.PaymentUnpaid || r.PaymentStatus == domain.PaymentPending
		if r.Status == domain.StatusPending && unpaid && r.CreatedAt.Before(cutoff) {
			out = append(out, cloneRequest(r))
		}
	}
	return out, nil
}

func (s *RequestStore) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.Status]int64)
	for _, r := range s.requests {
		counts[r.Status]++
	}
	return counts, nil
}

func sortNewestFirst(reqs []*domain.CardRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}
