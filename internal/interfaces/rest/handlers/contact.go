package handlers

import (
	"net/http"
	"strconv"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/interfaces/rest"
)

func (h *Handlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var cmd services.ContactCommand
	if err := h.decode(r, &cmd); err != nil {
		rest.WriteError(w, err)
		return
	}

	msg, err := h.contact.Submit(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, msg)
}

func (h *Handlers) ChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	history, err := h.contact.ChatHistory(r.Context(), r.PathValue("sessionId"), limit)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, history)
}
