package handlers

import (
	"net/http"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/interfaces/rest"
)

func (h *Handlers) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var cmd services.RegisterStudentCommand
	if err := h.decode(r, &cmd); err != nil {
		rest.WriteError(w, err)
		return
	}

	student, err := h.students.Register(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toStudentJSON(student))
}

func (h *Handlers) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	student, requests, err := h.query.StudentDashboard(r.Context(), r.PathValue("studentId"))
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	history := make([]requestJSON, 0, len(requests))
	for _, req := range requests {
		history = append(history, toRequestJSON(req))
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"student":  toStudentJSON(student),
		"requests": history,
	})
}
