// Package domain holds the card-request entity and its lifecycle rules.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of the virtual card itself.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAssigned Status = "assigned"
	StatusPaid     Status = "paid"
	StatusExpired  Status = "expired"
	StatusDeclined Status = "declined"
)

// PaymentStatus tracks the money transfer that funds the card. It is a
// separate axis from Status: a request can be pending while its payment
// is already confirmed.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// CardDetails are the mock virtual-card credentials handed to a student.
type CardDetails struct {
	Number string
	Expiry string
	CVV    string
}

type CardRequest struct {
	ID        uuid.UUID
	StudentID uuid.UUID

	RequestedAmount  decimal.Decimal
	LocalAmount      decimal.Decimal
	ExchangeRate     decimal.Decimal
	FeePercent       decimal.Decimal
	TotalLocalAmount decimal.Decimal
	Purpose          string

	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod *string

	RequestToken     string
	PaymentReference string
	ProviderHandle   *string

	CardNumber *string
	CardExpiry *string
	CardCVV    *string

	PaymentVerifiedAt *time.Time
	AssignedAt        *time.Time
	CardExpiresAt     *time.Time
	PaidAt            *time.Time
	CreatedAt         time.Time

	Version int64
}

const DefaultPurpose = "School Fees Payment"

// NewCardRequest creates a pending request with its payment figures frozen
// at creation time. The quote never floats afterwards, so what the student
// was shown stays what they pay.
func NewCardRequest(
	studentID uuid.UUID,
	requestedAmount decimal.Decimal,
	exchangeRate decimal.Decimal,
	feePercent decimal.Decimal,
	requestToken string,
	paymentReference string,
) (*CardRequest, error) {
	if studentID == uuid.Nil {
		return nil, NewValidationError("student ID is required")
	}
	if !requestedAmount.IsPositive() {
		return nil, NewValidationError("requested amount must be positive")
	}
	if requestToken == "" || paymentReference == "" {
		return nil, NewValidationError("request token and payment reference are required")
	}

	hundred := decimal.NewFromInt(100)
	localAmount := requestedAmount.Mul(exchangeRate).Round(2)
	totalLocal := localAmount.Mul(hundred.Add(feePercent)).Div(hundred).Round(2)

	return &CardRequest{
		ID:               uuid.New(),
		StudentID:        studentID,
		RequestedAmount:  requestedAmount,
		LocalAmount:      localAmount,
		ExchangeRate:     exchangeRate,
		FeePercent:       feePercent,
		TotalLocalAmount: totalLocal,
		Purpose:          DefaultPurpose,
		Status:           StatusPending,
		PaymentStatus:    PaymentUnpaid,
		RequestToken:     requestToken,
		PaymentReference: paymentReference,
		CreatedAt:        time.Now(),
		Version:          1,
	}, nil
}

// IsActive reports whether this request blocks the student from opening a
// new one. Historical (paid/expired/declined) requests never count.
func (r *CardRequest) IsActive() bool {
	statusActive := r.Status == StatusPending || r.Status == StatusAssigned
	paymentActive := r.PaymentStatus == PaymentUnpaid || r.PaymentStatus == PaymentPending
	return statusActive && paymentActive
}

func (r *CardRequest) IsTerminal() bool {
	switch r.Status {
	case StatusPaid, StatusExpired, StatusDeclined:
		return true
	default:
		return false
	}
}

// BeginPayment records that a provider charge was initiated for this request.
// A charge is at most once per reference: while a prompt is still in flight
// (payment pending with a provider handle on record) re-initiation is
// rejected until the outcome lands, via webhook, poll or a failure report.
func (r *CardRequest) BeginPayment(method, providerHandle string) error {
	if r.Status != StatusPending {
		return NewInvalidTransitionError(r.Status, StatusPending)
	}
	if r.PaymentStatus == PaymentPaid || r.PaymentStatus == PaymentFailed {
		return NewInvalidTransitionError(r.Status, StatusPending)
	}
	if r.PaymentStatus == PaymentPending && r.ProviderHandle != nil {
		return NewValidationError("a payment is already in progress for this request")
	}

	r.PaymentStatus = PaymentPending
	r.PaymentMethod = &method
	if providerHandle != "" {
		r.ProviderHandle = &providerHandle
	}
	return nil
}

// ConfirmPayment marks the funding transfer as paid. It is idempotent: a
// replayed webhook or a poll racing a webhook finds PaymentStatus already
// paid and returns changed=false without touching timestamps.
func (r *CardRequest) ConfirmPayment(now time.Time) (changed bool, err error) {
	if r.PaymentStatus == PaymentPaid {
		return false, nil
	}
	if r.Status != StatusPending {
		return false, NewInvalidTransitionError(r.Status, r.Status)
	}

	r.PaymentStatus = PaymentPaid
	r.PaymentVerifiedAt = &now
	return true, nil
}

// FailPayment marks the funding transfer as failed and declines the request.
func (r *CardRequest) FailPayment() error {
	if r.Status == StatusDeclined && r.PaymentStatus == PaymentFailed {
		return nil
	}
	if r.Status != StatusPending {
		return NewInvalidTransitionError(r.Status, StatusDeclined)
	}

	r.PaymentStatus = PaymentFailed
	r.Status = StatusDeclined
	return nil
}

// Assign attaches card credentials and starts the validity window.
func (r *CardRequest) Assign(card CardDetails, now time.Time, validity time.Duration) error {
	if r.Status != StatusPending {
		return NewInvalidTransitionError(r.Status, StatusAssigned)
	}

	expiresAt := now.Add(validity)
	r.CardNumber = &card.Number
	r.CardExpiry = &card.Expiry
	r.CardCVV = &card.CVV
	r.Status = StatusAssigned
	r.AssignedAt = &now
	r.CardExpiresAt = &expiresAt
	return nil
}

func (r *CardRequest) MarkPaid(now time.Time) error {
	if r.Status == StatusPaid {
		return nil
	}
	if r.Status != StatusAssigned {
		return NewInvalidTransitionError(r.Status, StatusPaid)
	}

	r.Status = StatusPaid
	r.PaidAt = &now
	return nil
}

func (r *CardRequest) MarkExpired() error {
	if r.Status == StatusExpired {
		return nil
	}
	if r.Status != StatusAssigned {
		return NewInvalidTransitionError(r.Status, StatusExpired)
	}

	r.Status = StatusExpired
	return nil
}

func (r *CardRequest) Decline() error {
	if r.Status == StatusDeclined {
		return nil
	}
	if r.Status != StatusPending && r.Status != StatusAssigned {
		return NewInvalidTransitionError(r.Status, StatusDeclined)
	}

	r.Status = StatusDeclined
	return nil
}
