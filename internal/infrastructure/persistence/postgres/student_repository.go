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

type StudentRepository struct {
	db *pgxpool.Pool
}

func NewStudentRepository(db *DB) *StudentRepository {
	return &StudentRepository{db: db.Pool}
}

func scanStudent(row pgx.Row) (*domain.Student, error) {
	var m StudentModel
	err := row.Scan(&m.ID, &m.StudentID, &m.Name, &m.Email, &m.Phone, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("student")
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return toStudentDomain(&m), nil
}

func (r *StudentRepository) Create(ctx context.Context, student *domain.Student) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO students (id, student_id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, student.ID, student.StudentID, student.Name, student.Email, student.Phone, student.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewDuplicateStudentError()
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (r *StudentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, student_id, name, email, phone, created_at
		FROM students WHERE id = $1
	`, id)
	return scanStudent(row)
}

func (r *StudentRepository) FindByStudentID(ctx context.Context, studentID string) (*domain.Student, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, student_id, name, email, phone, created_at
		FROM students WHERE student_id = $1
	`, studentID)
	return scanStudent(row)
}

func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
