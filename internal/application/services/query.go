package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// QueryService serves the read side: request lookups, student dashboards and
// the admin overview.
type QueryService struct {
	requests application.RequestStore
	students application.StudentStore
	logger   *slog.Logger
}

func NewQueryService(requests application.RequestStore, students application.StudentStore, logger *slog.Logger) *QueryService {
	return &QueryService{requests: requests, students: students, logger: logger}
}

// RequestView pairs a request with its owning student for display.
type RequestView struct {
	Request *domain.CardRequest
	Student *domain.Student
}

// Overview is the admin dashboard snapshot.
type Overview struct {
	StudentCount  int64
	StatusCounts  map[domain.Status]int64
	TotalRequests int64
}

// ByToken resolves a request from the token the student holds.
func (s *QueryService) ByToken(ctx context.Context, token string) (*RequestView, error) {
	req, err := s.requests.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	return &RequestView{Request: req, Student: student}, nil
}

// ByID resolves a request by its internal ID, for admin screens.
func (s *QueryService) ByID(ctx context.Context, id uuid.UUID) (*RequestView, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	return &RequestView{Request: req, Student: student}, nil
}

// StudentDashboard returns a student's profile together with their request
// history, newest first.
func (s *QueryService) StudentDashboard(ctx context.Context, studentID string) (*domain.Student, []*domain.CardRequest, error) {
	student, err := s.students.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	requests, err := s.requests.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, nil, err
	}
	return student, requests, nil
}

// ListRequests returns all requests, optionally filtered by status.
func (s *QueryService) ListRequests(ctx context.Context, status *domain.Status) ([]*RequestView, error) {
	requests, err := s.requests.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	// Admin lists are small; resolve students one by one rather than
	// joining in the store.
	views := make([]*RequestView, 0, len(requests))
	for _, req := range requests {
		student, err := s.students.FindByID(ctx, req.StudentID)
		if err != nil {
			s.logger.Error("orphaned request", "request_id", req.ID, "error", err)
			continue
		}
		views = append(views, &RequestView{Request: req, Student: student})
	}
	return views, nil
}

// Stats builds the admin overview counters.
func (s *QueryService) Stats(ctx context.Context) (*Overview, error) {
	counts, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	studentCount, err := s.students.Count(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return &Overview{
		StudentCount:  studentCount,
		StatusCounts:  counts,
		TotalRequests: total,
	}, nil
}
