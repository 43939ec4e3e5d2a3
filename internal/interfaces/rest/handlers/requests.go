package handlers

import (
	"net/http"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/interfaces/rest"
)

func (h *Handlers) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var cmd services.SubmitRequestCommand
	if err := h.decode(r, &cmd); err != nil {
		rest.WriteError(w, err)
		return
	}

	req, err := h.lifecycle.SubmitRequest(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toRequestJSON(req))
}

func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	view, err := h.query.ByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"request": toRequestJSON(view.Request),
		"student": toStudentJSON(view.Student),
	})
}

func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone string `json:"phone" validate:"required,min=9"`
	}
	if err := h.decode(r, &body); err != nil {
		rest.WriteError(w, err)
		return
	}

	req, message, err := h.lifecycle.InitiatePayment(r.Context(), services.InitiatePaymentCommand{
		RequestToken: r.PathValue("token"),
		Phone:        body.Phone,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"request": toRequestJSON(req),
		"message": message,
	})
}

// ReportPaymentFailed lets the payment page report a failed or abandoned
// prompt without waiting for the provider callback.
func (h *Handlers) ReportPaymentFailed(w http.ResponseWriter, r *http.Request) {
	req, err := h.lifecycle.FailPayment(r.Context(), r.PathValue("reference"))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toRequestJSON(req))
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	req, err := h.lifecycle.VerifyPayment(r.Context(), r.PathValue("token"))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toRequestJSON(req))
}
