package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

func newTestRequest(t *testing.T) *domain.CardRequest {
	t.Helper()
	req, err := domain.NewCardRequest(
		uuid.New(),
		decimal.NewFromInt(100),
		decimal.NewFromFloat(15.5),
		decimal.NewFromInt(5),
		"A1B2C3D4E5F6A7B8",
		"CARD-TEST-REF",
	)
	require.NoError(t, err)
	return req
}

func TestNewCardRequest_FreezesQuote(t *testing.T) {
	req := newTestRequest(t)

	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, domain.PaymentUnpaid, req.PaymentStatus)
	assert.Equal(t, "1550", req.LocalAmount.String())
	assert.Equal(t, "1627.5", req.TotalLocalAmount.String())
	assert.Equal(t, domain.DefaultPurpose, req.Purpose)
}

func TestNewCardRequest_RejectsBadInput(t *testing.T) {
	_, err := domain.NewCardRequest(
		uuid.New(),
		decimal.NewFromInt(-5),
		decimal.NewFromFloat(15.5),
		decimal.NewFromInt(5),
		"TOKEN", "REF",
	)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeValidation))

	_, err = domain.NewCardRequest(
		uuid.Nil,
		decimal.NewFromInt(50),
		decimal.NewFromFloat(15.5),
		decimal.NewFromInt(5),
		"TOKEN", "REF",
	)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeValidation))
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	req := newTestRequest(t)
	require.NoError(t, req.BeginPayment("momo-direct", "txn-1"))

	first := time.Now()
	changed, err := req.ConfirmPayment(first)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, req.PaymentVerifiedAt)
	assert.Equal(t, first, *req.PaymentVerifiedAt)

	changed, err = req.ConfirmPayment(first.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, *req.PaymentVerifiedAt, "replay must not touch timestamps")
	assert.Equal(t, domain.StatusPending, req.Status, "card status stays pending until admin assigns")
}

func TestAssign_SetsCardAndExpiry(t *testing.T) {
	req := newTestRequest(t)
	now := time.Now()

	card := domain.CardDetails{Number: "4111111111111111", Expiry: "08/28", CVV: "123"}
	require.NoError(t, req.Assign(card, now, 5*time.Hour))

	assert.Equal(t, domain.StatusAssigned, req.Status)
	require.NotNil(t, req.CardExpiresAt)
	assert.Equal(t, now.Add(5*time.Hour), *req.CardExpiresAt)
	assert.Equal(t, "4111111111111111", *req.CardNumber)
}

func TestAssign_RequiresPending(t *testing.T) {
	req := newTestRequest(t)
	now := time.Now()
	card := domain.CardDetails{Number: "4111111111111111", Expiry: "08/28", CVV: "123"}
	require.NoError(t, req.Assign(card, now, 5*time.Hour))

	err := req.Assign(card, now, 5*time.Hour)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidTransition))
}

func TestMarkExpired_NoOpWhenAlreadyExpired(t *testing.T) {
	req := newTestRequest(t)
	card := domain.CardDetails{Number: "4111111111111111", Expiry: "08/28", CVV: "123"}
	require.NoError(t, req.Assign(card, time.Now(), 5*time.Hour))

	require.NoError(t, req.MarkExpired())
	require.NoError(t, req.MarkExpired(), "double sweep is a no-op")
	assert.Equal(t, domain.StatusExpired, req.Status)
}

func TestTransitionClosure(t *testing.T) {
	now := time.Now()
	card := domain.CardDetails{Number: "4111111111111111", Expiry: "08/28", CVV: "123"}

	// Every (state, event) pair outside the transition table must fail and
	// leave the record unchanged; idempotent terminal replays succeed.
	tests := []struct {
		name    string
		prepare func(r *domain.CardRequest)
		attempt func(r *domain.CardRequest) error
		wantErr bool
	}{
		{
			name:    "paid then assign",
			prepare: func(r *domain.CardRequest) { _ = r.Assign(card, now, time.Hour); _ = r.MarkPaid(now) },
			attempt: func(r *domain.CardRequest) error { return r.Assign(card, now, time.Hour) },
			wantErr: true,
		},
		{
			name:    "paid then decline",
			prepare: func(r *domain.CardRequest) { _ = r.Assign(card, now, time.Hour); _ = r.MarkPaid(now) },
			attempt: func(r *domain.CardRequest) error { return r.Decline() },
			wantErr: true,
		},
		{
			name:    "declined then mark paid",
			prepare: func(r *domain.CardRequest) { _ = r.Decline() },
			attempt: func(r *domain.CardRequest) error { return r.MarkPaid(now) },
			wantErr: true,
		},
		{
			name:    "pending then mark paid",
			prepare: func(r *domain.CardRequest) {},
			attempt: func(r *domain.CardRequest) error { return r.MarkPaid(now) },
			wantErr: true,
		},
		{
			name:    "pending then mark expired",
			prepare: func(r *domain.CardRequest) {},
			attempt: func(r *domain.CardRequest) error { return r.MarkExpired() },
			wantErr: true,
		},
		{
			name:    "expired then begin payment",
			prepare: func(r *domain.CardRequest) { _ = r.Assign(card, now, time.Hour); _ = r.MarkExpired() },
			attempt: func(r *domain.CardRequest) error { return r.BeginPayment("momo-direct", "h") },
			wantErr: true,
		},
		{
			name:    "declined replay",
			prepare: func(r *domain.CardRequest) { _ = r.Decline() },
			attempt: func(r *domain.CardRequest) error { return r.Decline() },
			wantErr: false,
		},
		{
			name:    "paid replay",
			prepare: func(r *domain.CardRequest) { _ = r.Assign(card, now, time.Hour); _ = r.MarkPaid(now) },
			attempt: func(r *domain.CardRequest) error { return r.MarkPaid(now) },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newTestRequest(t)
			tt.prepare(req)
			before := *req

			err := tt.attempt(req)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidTransition))
				assert.Equal(t, before, *req, "failed transition must not mutate the record")
			} else {
				require.NoError(t, err)
				assert.Equal(t, before.Status, req.Status)
			}
		})
	}
}

func TestIsActive(t *testing.T) {
	req := newTestRequest(t)
	assert.True(t, req.IsActive())

	require.NoError(t, req.BeginPayment("momo-direct", "h"))
	assert.True(t, req.IsActive())

	_, err := req.ConfirmPayment(time.Now())
	require.NoError(t, err)
	assert.False(t, req.IsActive(), "a paid-up request no longer blocks new ones")

	declined := newTestRequest(t)
	require.NoError(t, declined.Decline())
	assert.False(t, declined.IsActive())
}

func TestBeginPayment_RejectsWhileChargeInFlight(t *testing.T) {
	req := newTestRequest(t)
	require.NoError(t, req.BeginPayment("momo-direct", "txn-1"))

	err := req.BeginPayment("momo-direct", "txn-2")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeValidation))
	assert.Equal(t, "txn-1", *req.ProviderHandle, "the in-flight charge keeps its handle")
}

func TestBeginPayment_AllowedWhilePendingWithoutHandle(t *testing.T) {
	req := newTestRequest(t)
	require.NoError(t, req.BeginPayment("momo-direct", ""))

	// No provider handle was recorded, so nothing can be polled; the
	// student may retry the prompt.
	require.NoError(t, req.BeginPayment("momo-direct", "txn-2"))
}
