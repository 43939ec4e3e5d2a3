package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeDuplicateActive    = "DUPLICATE_ACTIVE_REQUEST"
	ErrCodeDuplicateStudent   = "DUPLICATE_STUDENT"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeConcurrentModified = "CONCURRENT_MODIFICATION"
	ErrCodeTokenExhausted     = "TOKEN_GENERATION_EXHAUSTED"
)

func NewValidationError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

func NewNotFoundError(what string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", what),
	}
}

func NewDuplicateActiveRequestError() *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateActive,
		Message: "student already has a pending or active card request",
	}
}

func NewDuplicateStudentError() *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateStudent,
		Message: "student with this ID or email already exists",
	}
}

func NewInvalidTransitionError(from, to Status) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewConcurrentModificationError() *DomainError {
	return &DomainError{
		Code:    ErrCodeConcurrentModified,
		Message: "record was modified concurrently, retry the operation",
	}
}

func NewTokenExhaustedError() *DomainError {
	return &DomainError{
		Code:    ErrCodeTokenExhausted,
		Message: "could not generate a unique token after repeated attempts",
	}
}

// HasCode reports whether err is a DomainError carrying the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
