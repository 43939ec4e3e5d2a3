package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

type StudentStore struct {
	mu       sync.Mutex
	students map[uuid.UUID]*domain.Student
}

func NewStudentStore() *StudentStore {
	return &StudentStore{students: make(map[uuid.UUID]*domain.Student)}
}

func (s *StudentStore) Create(ctx context.Context, student *domain.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.students {
		if existing.StudentID == student.StudentID || existing.Email == student.Email {
			return domain.NewDuplicateStudentError()
		}
	}

	c := *student
	s.students[student.ID] = &c
	return nil
}

func (s *StudentStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.students[id]; ok {
		c := *st
		return &c, nil
	}
	return nil, domain.NewNotFoundError("student")
}

func (s *StudentStore) FindByStudentID(ctx context.Context, studentID string) (*domain.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.students {
		if st.StudentID == studentID {
			c := *st
			return &c, nil
		}
	}
	return nil, domain.NewNotFoundError("student")
}

func (s *StudentStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.students)), nil
}
