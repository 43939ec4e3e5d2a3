// Package rest holds the JSON envelope and error mapping shared by the HTTP
// handlers and middleware.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// WriteError maps domain and service errors to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	code := "INTERNAL_ERROR"
	message := "An internal error occurred"
	status := http.StatusInternalServerError

	var domainErr *domain.DomainError
	if svcErr, ok := application.IsServiceError(err); ok {
		code = svcErr.Code
		message = svcErr.Message
		status = svcErr.HTTPStatus
	} else if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
		status = domainStatus(domainErr.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
}

func domainStatus(code string) int {
	switch code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeDuplicateActive, domain.ErrCodeDuplicateStudent,
		domain.ErrCodeInvalidTransition, domain.ErrCodeConcurrentModified:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
