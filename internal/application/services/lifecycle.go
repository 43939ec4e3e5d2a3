// Package services orchestrates the card-request lifecycle over the
// persistence, provider and notification ports.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/config"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// Quote carries the pricing figures and policy knobs frozen into each new
// request.
type Quote struct {
	ExchangeRate decimal.Decimal
	FeePercent   decimal.Decimal
	CardValidity time.Duration
	EmailDomain  string
}

func QuoteFromConfig(cfg config.QuoteConfig) Quote {
	return Quote{
		ExchangeRate: decimal.NewFromFloat(cfg.ExchangeRate),
		FeePercent:   decimal.NewFromFloat(cfg.FeePercent),
		CardValidity: cfg.CardValidity,
		EmailDomain:  cfg.EmailDomain,
	}
}

// maxTokenAttempts bounds the regenerate-and-retry loop for request tokens
// and payment references.
const maxTokenAttempts = 5

// maxUpdateAttempts bounds the re-read-and-retry loop when a settlement
// write loses an optimistic-lock race. Webhooks are acked exactly once, so
// a dropped confirmation would stay unpaid until the student polls.
const maxUpdateAttempts = 3

type LifecycleService struct {
	requests application.RequestStore
	students application.StudentStore
	gateway  application.ProviderGateway
	notifier application.Notifier
	quote    Quote
	logger   *slog.Logger
}

func NewLifecycleService(
	requests application.RequestStore,
	students application.StudentStore,
	gateway application.ProviderGateway,
	notifier application.Notifier,
	quote Quote,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		requests: requests,
		students: students,
		gateway:  gateway,
		notifier: notifier,
		quote:    quote,
		logger:   logger,
	}
}

// SubmitRequest opens a card request for a registered student. The quote is
// frozen at submit time and a fresh request token and payment reference are
// minted, retrying on the unlikely collision.
func (s *LifecycleService) SubmitRequest(ctx context.Context, cmd SubmitRequestCommand) (*domain.CardRequest, error) {
	student, err := s.students.FindByStudentID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}

	amount := decimal.NewFromFloat(cmd.Amount)

	var req *domain.CardRequest
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := randomToken()
		if err != nil {
			return nil, application.NewInternalError(err)
		}
		reference, err := randomToken()
		if err != nil {
			return nil, application.NewInternalError(err)
		}

		req, err = domain.NewCardRequest(student.ID, amount, s.quote.ExchangeRate, s.quote.FeePercent, token, "PAY-"+reference)
		if err != nil {
			return nil, err
		}

		err = s.requests.Create(ctx, req)
		if err == nil {
			break
		}
		if domain.HasCode(err, domain.ErrCodeTokenExhausted) {
			req = nil
			continue
		}
		return nil, err
	}
	if req == nil {
		return nil, domain.NewTokenExhaustedError()
	}

	s.logger.Info("card request submitted",
		"request_id", req.ID,
		"student_id", student.StudentID,
		"amount_usd", req.RequestedAmount.StringFixed(2),
		"total_local", req.TotalLocalAmount.StringFixed(2))

	s.notify(ctx, "request submitted", func() error {
		return s.notifier.RequestSubmitted(ctx, student, req)
	})
	return req, nil
}

// InitiatePayment starts the mobile-money charge for a pending request. A
// provider failure leaves the request untouched so the student can retry.
func (s *LifecycleService) InitiatePayment(ctx context.Context, cmd InitiatePaymentCommand) (*domain.CardRequest, string, error) {
	req, err := s.requests.FindByToken(ctx, cmd.RequestToken)
	if err != nil {
		return nil, "", err
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, "", err
	}

	if err := req.BeginPayment(s.gateway.Name(), ""); err != nil {
		return nil, "", err
	}

	initResp, err := s.gateway.Initiate(ctx, application.InitiateRequest{
		Phone:         cmd.Phone,
		Amount:        req.TotalLocalAmount,
		Reference:     req.PaymentReference,
		Description:   req.Purpose,
		CustomerName:  student.Name,
		CustomerEmail: student.Email,
	})
	if err != nil {
		s.logger.Error("payment initiation failed",
			"request_id", req.ID, "reference", req.PaymentReference, "error", err)
		return nil, "", application.NewGatewayError(err.Error(), err)
	}

	if initResp.ProviderHandle != "" {
		handle := initResp.ProviderHandle
		req.ProviderHandle = &handle
	}

	notifyConfirmed := false
	if initResp.Status == domain.PaymentPaid {
		changed, err := req.ConfirmPayment(time.Now())
		if err != nil {
			return nil, "", err
		}
		notifyConfirmed = changed
	}

	if err := s.requests.Update(ctx, req); err != nil {
		return nil, "", err
	}

	s.logger.Info("payment initiated",
		"request_id", req.ID,
		"reference", req.PaymentReference,
		"provider", s.gateway.Name(),
		"payment_status", req.PaymentStatus)

	if notifyConfirmed {
		s.notify(ctx, "payment confirmed", func() error {
			return s.notifier.PaymentConfirmed(ctx, student, req)
		})
	}
	return req, initResp.Message, nil
}

// ConfirmPayment marks the payment identified by its reference as settled.
// Replays are no-ops: the admin notification fires exactly once.
func (s *LifecycleService) ConfirmPayment(ctx context.Context, reference string) (*domain.CardRequest, error) {
	var req *domain.CardRequest
	for attempt := 0; ; attempt++ {
		var err error
		req, err = s.requests.FindByReference(ctx, reference)
		if err != nil {
			return nil, err
		}

		changed, err := req.ConfirmPayment(time.Now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return req, nil
		}

		err = s.requests.Update(ctx, req)
		if err == nil {
			break
		}
		if domain.HasCode(err, domain.ErrCodeConcurrentModified) && attempt+1 < maxUpdateAttempts {
			s.logger.Warn("confirm lost an update race, retrying",
				"reference", reference, "attempt", attempt+1)
			continue
		}
		return nil, err
	}

	s.logger.Info("payment confirmed", "request_id", req.ID, "reference", reference)

	if student, serr := s.students.FindByID(ctx, req.StudentID); serr == nil {
		s.notify(ctx, "payment confirmed", func() error {
			return s.notifier.PaymentConfirmed(ctx, student, req)
		})
	}
	return req, nil
}

// FailPayment records a failed charge and declines the request.
func (s *LifecycleService) FailPayment(ctx context.Context, reference string) (*domain.CardRequest, error) {
	var req *domain.CardRequest
	for attempt := 0; ; attempt++ {
		var err error
		req, err = s.requests.FindByReference(ctx, reference)
		if err != nil {
			return nil, err
		}

		before := req.PaymentStatus
		if err := req.FailPayment(); err != nil {
			return nil, err
		}
		if before == req.PaymentStatus {
			return req, nil
		}

		err = s.requests.Update(ctx, req)
		if err == nil {
			break
		}
		if domain.HasCode(err, domain.ErrCodeConcurrentModified) && attempt+1 < maxUpdateAttempts {
			s.logger.Warn("failure report lost an update race, retrying",
				"reference", reference, "attempt", attempt+1)
			continue
		}
		return nil, err
	}

	s.logger.Info("payment failed", "request_id", req.ID, "reference", reference)
	return req, nil
}

// HandleWebhook applies a provider callback. The caller acknowledges the
// webhook regardless of the returned error; this method exists so outcomes
// get logged and applied, not so providers see failures.
func (s *LifecycleService) HandleWebhook(ctx context.Context, cmd WebhookCommand) error {
	var err error
	if cmd.Succeeded {
		_, err = s.ConfirmPayment(ctx, cmd.Reference)
	} else {
		_, err = s.FailPayment(ctx, cmd.Reference)
	}
	if err != nil {
		s.logger.Error("webhook processing failed",
			"reference", cmd.Reference, "succeeded", cmd.Succeeded, "error", err)
	}
	return err
}

// VerifyPayment polls the provider for a request whose payment is still
// pending and applies the outcome. Safe to call repeatedly and safe to race
// a webhook for the same reference.
func (s *LifecycleService) VerifyPayment(ctx context.Context, requestToken string) (*domain.CardRequest, error) {
	req, err := s.requests.FindByToken(ctx, requestToken)
	if err != nil {
		return nil, err
	}

	if req.PaymentStatus == domain.PaymentPaid || req.PaymentStatus == domain.PaymentFailed {
		return req, nil
	}
	if req.ProviderHandle == nil {
		return req, nil
	}

	status, err := s.gateway.CheckStatus(ctx, *req.ProviderHandle)
	if err != nil {
		return nil, application.NewGatewayError(err.Error(), err)
	}

	switch status.Status {
	case domain.PaymentPaid:
		return s.ConfirmPayment(ctx, req.PaymentReference)
	case domain.PaymentFailed:
		return s.FailPayment(ctx, req.PaymentReference)
	default:
		return req, nil
	}
}

// notify runs a notifier call and logs rather than propagates its failure.
func (s *LifecycleService) notify(ctx context.Context, event string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.Error("notification failed", "event", event, "error", err)
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
