package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/domain"
	"github.com/josephasare/virtual-card-service/internal/interfaces/rest"
)

type adminRequestJSON struct {
	requestJSON
	Student studentJSON `json:"student"`
}

func toAdminRequestJSON(view *services.RequestView) adminRequestJSON {
	return adminRequestJSON{
		requestJSON: toRequestJSON(view.Request),
		Student:     toStudentJSON(view.Student),
	}
}

func (h *Handlers) AdminListRequests(w http.ResponseWriter, r *http.Request) {
	var status *domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.Status(raw)
		switch s {
		case domain.StatusPending, domain.StatusAssigned, domain.StatusPaid,
			domain.StatusExpired, domain.StatusDeclined:
			status = &s
		default:
			rest.WriteError(w, domain.NewValidationError("unknown status filter"))
			return
		}
	}

	views, err := h.query.ListRequests(r.Context(), status)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	out := make([]adminRequestJSON, 0, len(views))
	for _, view := range views {
		out = append(out, toAdminRequestJSON(view))
	}
	rest.WriteJSON(w, http.StatusOK, out)
}

func (h *Handlers) AdminGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.WriteError(w, domain.NewValidationError("invalid request id"))
		return
	}

	view, err := h.query.ByID(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toAdminRequestJSON(view))
}

// AdminAssignCard assigns card credentials to a request. An empty body mints
// mock credentials; a populated body uses the supplied card.
func (h *Handlers) AdminAssignCard(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")

	var body struct {
		CardNumber string `json:"cardNumber"`
		CardExpiry string `json:"cardExpiry"`
		CardCVV    string `json:"cardCvv"`
	}
	// Body is optional; decode failures fall through to generation.
	_ = h.decodeOptional(r, &body)

	var req *domain.CardRequest
	var err error
	if body.CardNumber != "" {
		cmd := services.AssignCardCommand{
			RequestID:  requestID,
			CardNumber: body.CardNumber,
			CardExpiry: body.CardExpiry,
			CardCVV:    body.CardCVV,
		}
		if verr := h.validate.Struct(cmd); verr != nil {
			rest.WriteError(w, domain.NewValidationError(verr.Error()))
			return
		}
		req, err = h.assignment.AssignManual(r.Context(), cmd)
	} else {
		req, err = h.assignment.AssignGenerated(r.Context(), requestID)
	}
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toRequestJSON(req))
}

func (h *Handlers) AdminAction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action" validate:"required,oneof=paid expired declined"`
	}
	if err := h.decode(r, &body); err != nil {
		rest.WriteError(w, err)
		return
	}

	req, err := h.assignment.AdminAction(r.Context(), services.AdminActionCommand{
		RequestID: r.PathValue("id"),
		Action:    body.Action,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toRequestJSON(req))
}

func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.query.Stats(r.Context())
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	counts := make(map[string]int64, len(stats.StatusCounts))
	for status, n := range stats.StatusCounts {
		counts[string(status)] = n
	}
	rest.WriteJSON(w, http.StatusOK, map[string]any{
		"students":      stats.StudentCount,
		"totalRequests": stats.TotalRequests,
		"byStatus":      counts,
	})
}

func (h *Handlers) AdminListMessages(w http.ResponseWriter, r *http.Request) {
	var status *domain.ContactStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.ContactStatus(raw)
		status = &s
	}

	messages, err := h.contact.List(r.Context(), status)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, messages)
}

func (h *Handlers) AdminUpdateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		rest.WriteError(w, domain.NewValidationError("invalid message id"))
		return
	}

	var body struct {
		Status string `json:"status" validate:"required"`
	}
	if err := h.decode(r, &body); err != nil {
		rest.WriteError(w, err)
		return
	}

	msg, err := h.contact.UpdateStatus(r.Context(), id, domain.ContactStatus(body.Status))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, msg)
}
