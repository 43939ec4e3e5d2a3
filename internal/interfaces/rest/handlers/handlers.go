// Package handlers exposes the HTTP API: the public student surface, the
// payment webhook, and the key-guarded admin surface.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/domain"
	"github.com/josephasare/virtual-card-service/internal/interfaces/rest"
)

type Handlers struct {
	lifecycle  *services.LifecycleService
	assignment *services.AssignmentService
	query      *services.QueryService
	students   *services.StudentService
	contact    *services.ContactService
	validate   *validator.Validate
	logger     *slog.Logger
}

func New(
	lifecycle *services.LifecycleService,
	assignment *services.AssignmentService,
	query *services.QueryService,
	students *services.StudentService,
	contact *services.ContactService,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		lifecycle:  lifecycle,
		assignment: assignment,
		query:      query,
		students:   students,
		contact:    contact,
		validate:   validator.New(),
		logger:     logger,
	}
}

// RegisterRoutes wires every route into the mux. Admin routes are wrapped
// with the supplied middleware.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /", h.Index)
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /api/students", h.RegisterStudent)
	mux.HandleFunc("GET /api/students/{studentId}/dashboard", h.StudentDashboard)

	mux.HandleFunc("POST /api/requests", h.SubmitRequest)
	mux.HandleFunc("GET /api/requests/{token}", h.GetRequest)
	mux.HandleFunc("POST /api/requests/{token}/pay", h.InitiatePayment)
	mux.HandleFunc("POST /api/requests/{token}/verify", h.VerifyPayment)
	mux.HandleFunc("POST /api/requests/{reference}/payment-failed", h.ReportPaymentFailed)

	mux.HandleFunc("POST /api/webhooks/payment", h.PaymentWebhook)

	mux.HandleFunc("POST /api/contact", h.SubmitContact)
	mux.HandleFunc("GET /api/chat/{sessionId}/history", h.ChatHistory)

	mux.Handle("GET /api/admin/requests", admin(http.HandlerFunc(h.AdminListRequests)))
	mux.Handle("GET /api/admin/requests/{id}", admin(http.HandlerFunc(h.AdminGetRequest)))
	mux.Handle("POST /api/admin/requests/{id}/assign", admin(http.HandlerFunc(h.AdminAssignCard)))
	mux.Handle("POST /api/admin/requests/{id}/actions", admin(http.HandlerFunc(h.AdminAction)))
	mux.Handle("GET /api/admin/stats", admin(http.HandlerFunc(h.AdminStats)))
	mux.Handle("GET /api/admin/messages", admin(http.HandlerFunc(h.AdminListMessages)))
	mux.Handle("PATCH /api/admin/messages/{id}", admin(http.HandlerFunc(h.AdminUpdateMessage)))
}

func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		rest.WriteError(w, domain.NewNotFoundError("route"))
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "virtual-card-service",
		"status":  "running",
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode parses and validates a JSON request body.
func (h *Handlers) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is required")
		}
		return domain.NewValidationError("invalid JSON body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}

// decodeOptional parses a JSON body if one was sent. An empty body leaves
// dst zero-valued.
func (h *Handlers) decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.NewValidationError("invalid JSON body")
}

// JSON views. Card credentials only appear once a card is assigned; amounts
// are strings so clients never round them.

type cardJSON struct {
	Number    string     `json:"number"`
	Expiry    string     `json:"expiry"`
	CVV       string     `json:"cvv"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type requestJSON struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	PaymentStatus    string     `json:"paymentStatus"`
	RequestToken     string     `json:"requestToken"`
	PaymentReference string     `json:"paymentReference"`
	AmountUSD        string     `json:"amountUsd"`
	LocalAmount      string     `json:"localAmount"`
	ExchangeRate     string     `json:"exchangeRate"`
	FeePercent       string     `json:"feePercent"`
	TotalLocalAmount string     `json:"totalLocalAmount"`
	Purpose          string     `json:"purpose"`
	PaymentMethod    *string    `json:"paymentMethod,omitempty"`
	Card             *cardJSON  `json:"card,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	AssignedAt       *time.Time `json:"assignedAt,omitempty"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`
}

type studentJSON struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func toRequestJSON(req *domain.CardRequest) requestJSON {
	out := requestJSON{
		ID:               req.ID.String(),
		Status:           string(req.Status),
		PaymentStatus:    string(req.PaymentStatus),
		RequestToken:     req.RequestToken,
		PaymentReference: req.PaymentReference,
		AmountUSD:        req.RequestedAmount.StringFixed(2),
		LocalAmount:      req.LocalAmount.StringFixed(2),
		ExchangeRate:     req.ExchangeRate.String(),
		FeePercent:       req.FeePercent.String(),
		TotalLocalAmount: req.TotalLocalAmount.StringFixed(2),
		Purpose:          req.Purpose,
		PaymentMethod:    req.PaymentMethod,
		CreatedAt:        req.CreatedAt,
		AssignedAt:       req.AssignedAt,
		PaidAt:           req.PaidAt,
	}
	if req.CardNumber != nil {
		out.Card = &cardJSON{
			Number:    *req.CardNumber,
			Expiry:    *req.CardExpiry,
			CVV:       *req.CardCVV,
			ExpiresAt: req.CardExpiresAt,
		}
	}
	return out
}

func toStudentJSON(s *domain.Student) studentJSON {
	return studentJSON{
		StudentID: s.StudentID,
		Name:      s.Name,
		Email:     s.Email,
		Phone:     s.Phone,
	}
}
