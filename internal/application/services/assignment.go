package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// AssignmentService covers the admin side of the lifecycle: attaching card
// credentials to paid-up requests and forcing terminal transitions.
type AssignmentService struct {
	requests application.RequestStore
	students application.StudentStore
	notifier application.Notifier
	quote    Quote
	logger   *slog.Logger
}

func NewAssignmentService(
	requests application.RequestStore,
	students application.StudentStore,
	notifier application.Notifier,
	quote Quote,
	logger *slog.Logger,
) *AssignmentService {
	return &AssignmentService{
		requests: requests,
		students: students,
		notifier: notifier,
		quote:    quote,
		logger:   logger,
	}
}

// AssignManual attaches admin-supplied card credentials to a pending request
// and starts the validity countdown.
func (s *AssignmentService) AssignManual(ctx context.Context, cmd AssignCardCommand) (*domain.CardRequest, error) {
	return s.assign(ctx, cmd.RequestID, domain.CardDetails{
		Number: cmd.CardNumber,
		Expiry: cmd.CardExpiry,
		CVV:    cmd.CardCVV,
	})
}

// AssignGenerated mints mock card credentials and assigns them. Used when no
// real card inventory is wired up.
func (s *AssignmentService) AssignGenerated(ctx context.Context, requestID string) (*domain.CardRequest, error) {
	return s.assign(ctx, requestID, generateCard(time.Now()))
}

func (s *AssignmentService) assign(ctx context.Context, requestID string, card domain.CardDetails) (*domain.CardRequest, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := req.Assign(card, time.Now(), s.quote.CardValidity); err != nil {
		return nil, err
	}
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("card assigned",
		"request_id", req.ID,
		"expires_at", req.CardExpiresAt)

	if student, serr := s.students.FindByID(ctx, req.StudentID); serr == nil {
		if nerr := s.notifier.CardAssigned(ctx, student, req); nerr != nil {
			s.logger.Error("notification failed", "event", "card assigned", "error", nerr)
		}
	}
	return req, nil
}

// AdminAction forces a request into a terminal state. Replaying the same
// action is a no-op success.
func (s *AssignmentService) AdminAction(ctx context.Context, cmd AdminActionCommand) (*domain.CardRequest, error) {
	id, err := uuid.Parse(cmd.RequestID)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before := req.Status
	switch cmd.Action {
	case "paid":
		err = req.MarkPaid(time.Now())
	case "expired":
		err = req.MarkExpired()
	case "declined":
		err = req.Decline()
	default:
		return nil, application.NewInvalidInputError(fmt.Errorf("unknown action %q", cmd.Action))
	}
	if err != nil {
		return nil, err
	}
	if req.Status == before {
		return req, nil
	}

	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("admin action applied",
		"request_id", req.ID, "action", cmd.Action, "status", req.Status)

	if cmd.Action == "expired" {
		if student, serr := s.students.FindByID(ctx, req.StudentID); serr == nil {
			if nerr := s.notifier.CardExpired(ctx, student, req); nerr != nil {
				s.logger.Error("notification failed", "event", "card expired", "error", nerr)
			}
		}
	}
	return req, nil
}

// ExpireCard moves an assigned request whose validity window has lapsed to
// expired. The sweeper calls this per record.
func (s *AssignmentService) ExpireCard(ctx context.Context, id uuid.UUID) (*domain.CardRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before := req.Status
	if err := req.MarkExpired(); err != nil {
		return nil, err
	}
	if req.Status == before {
		return req, nil
	}

	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("card expired", "request_id", req.ID)

	if student, serr := s.students.FindByID(ctx, req.StudentID); serr == nil {
		if nerr := s.notifier.CardExpired(ctx, student, req); nerr != nil {
			s.logger.Error("notification failed", "event", "card expired", "error", nerr)
		}
	}
	return req, nil
}

// generateCard produces mock virtual-card credentials: a 16-digit number in
// the Visa range, an expiry two years out, and a 3-digit CVV.
func generateCard(now time.Time) domain.CardDetails {
	digits := make([]byte, 15)
	for i := range digits {
		digits[i] = byte('0' + rand.IntN(10))
	}
	expiry := now.AddDate(2, 0, 0)

	return domain.CardDetails{
		Number: "4" + string(digits),
		Expiry: expiry.Format("01/06"),
		CVV:    fmt.Sprintf("%03d", rand.IntN(1000)),
	}
}
