package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// StudentService handles registration. Institutional rules live here rather
// than in the entity: the 9-digit ID format is validated on the command, the
// email domain comes from deployment configuration.
type StudentService struct {
	students application.StudentStore
	quote    Quote
	logger   *slog.Logger
}

func NewStudentService(students application.StudentStore, quote Quote, logger *slog.Logger) *StudentService {
	return &StudentService{students: students, quote: quote, logger: logger}
}

// Register creates a student account. The email must belong to the
// institution's domain when one is configured.
func (s *StudentService) Register(ctx context.Context, cmd RegisterStudentCommand) (*domain.Student, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if s.quote.EmailDomain != "" && !strings.HasSuffix(email, "@"+s.quote.EmailDomain) {
		return nil, domain.NewValidationError("email must be a " + s.quote.EmailDomain + " address")
	}

	student := domain.NewStudent(cmd.StudentID, strings.TrimSpace(cmd.Name), email, strings.TrimSpace(cmd.Phone))
	if err := s.students.Create(ctx, student); err != nil {
		return nil, err
	}

	s.logger.Info("student registered", "student_id", student.StudentID)
	return student, nil
}

// Lookup fetches a student by their institutional ID.
func (s *StudentService) Lookup(ctx context.Context, studentID string) (*domain.Student, error) {
	return s.students.FindByStudentID(ctx, studentID)
}
