package domain

import (
	"time"

	"github.com/google/uuid"
)

// Student is the owner of card requests. StudentID is the institutional
// 9-digit identifier students type in; ID is the internal key.
type Student struct {
	ID        uuid.UUID
	StudentID string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

func NewStudent(studentID, name, email, phone string) *Student {
	return &Student{
		ID:        uuid.New(),
		StudentID: studentID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now(),
	}
}
