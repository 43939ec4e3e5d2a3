package worker

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephasare/virtual-card-service/internal/application/services"
	"github.com/josephasare/virtual-card-service/internal/domain"
	"github.com/josephasare/virtual-card-service/internal/infrastructure/persistence/memory"
)

type noopNotifier struct{}

func (noopNotifier) RequestSubmitted(context.Context, *domain.Student, *domain.CardRequest) error {
	return nil
}
func (noopNotifier) PaymentConfirmed(context.Context, *domain.Student, *domain.CardRequest) error {
	return nil
}
func (noopNotifier) CardAssigned(context.Context, *domain.Student, *domain.CardRequest) error {
	return nil
}
func (noopNotifier) CardExpired(context.Context, *domain.Student, *domain.CardRequest) error {
	return nil
}
func (noopNotifier) ContactReceived(context.Context, *domain.ContactMessage) error { return nil }

type sweepFixture struct {
	requests   *memory.RequestStore
	students   *memory.StudentStore
	assignment *services.AssignmentService
	lifecycle  *services.LifecycleService
}

func newSweepFixture(t *testing.T, validity time.Duration) *sweepFixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	quote := services.Quote{
		ExchangeRate: decimal.NewFromInt(15),
		FeePercent:   decimal.NewFromInt(5),
		CardValidity: validity,
	}

	f := &sweepFixture{
		requests: memory.NewRequestStore(),
		students: memory.NewStudentStore(),
	}
	f.assignment = services.NewAssignmentService(f.requests, f.students, noopNotifier{}, quote, logger)
	f.lifecycle = services.NewLifecycleService(f.requests, f.students, nil, noopNotifier{}, quote, logger)
	return f
}

func (f *sweepFixture) assignedRequest(t *testing.T, studentID string) *domain.CardRequest {
	t.Helper()
	ctx := context.Background()

	student := domain.NewStudent(studentID, "Test Student", studentID+"@byupathway.edu", "0241234567")
	require.NoError(t, f.students.Create(ctx, student))

	req, err := f.lifecycle.SubmitRequest(ctx, services.SubmitRequestCommand{
		StudentID: studentID,
		Amount:    100,
	})
	require.NoError(t, err)

	_, err = f.assignment.AssignGenerated(ctx, req.ID.String())
	require.NoError(t, err)
	return req
}

func TestExpirySweeper_ExpiresLapsedCards(t *testing.T) {
	// Negative validity makes the card already lapsed at assignment.
	f := newSweepFixture(t, -time.Minute)
	req := f.assignedRequest(t, "111111111")

	sweeper := NewExpirySweeper(f.requests, f.assignment, time.Minute, 100, slog.New(slog.DiscardHandler))
	require.NoError(t, sweeper.Sweep(context.Background()))

	stored, err := f.requests.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, stored.Status)
}

func TestExpirySweeper_LeavesValidCardsAlone(t *testing.T) {
	f := newSweepFixture(t, 5*time.Hour)
	req := f.assignedRequest(t, "222222222")

	sweeper := NewExpirySweeper(f.requests, f.assignment, time.Minute, 100, slog.New(slog.DiscardHandler))
	require.NoError(t, sweeper.Sweep(context.Background()))

	stored, err := f.requests.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, stored.Status)
}

func TestExpirySweeper_SecondPassIsIdempotent(t *testing.T) {
	f := newSweepFixture(t, -time.Minute)
	req := f.assignedRequest(t, "333333333")

	sweeper := NewExpirySweeper(f.requests, f.assignment, time.Minute, 100, slog.New(slog.DiscardHandler))
	require.NoError(t, sweeper.Sweep(context.Background()))
	require.NoError(t, sweeper.Sweep(context.Background()))

	stored, err := f.requests.FindByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, stored.Status)
}

func TestExpirySweeper_StopsOnContextCancel(t *testing.T) {
	f := newSweepFixture(t, 5*time.Hour)
	sweeper := NewExpirySweeper(f.requests, f.assignment, 10*time.Millisecond, 100, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestStaleReclaimer_DeclinesOldUnpaidRequests(t *testing.T) {
	f := newSweepFixture(t, 5*time.Hour)
	ctx := context.Background()

	student := domain.NewStudent("444444444", "Test Student", "s4@byupathway.edu", "0241234567")
	require.NoError(t, f.students.Create(ctx, student))
	req, err := f.lifecycle.SubmitRequest(ctx, services.SubmitRequestCommand{
		StudentID: "444444444",
		Amount:    100,
	})
	require.NoError(t, err)

	// staleAfter well below zero so a just-created request counts as stale.
	reclaimer := NewStaleReclaimer(f.requests, f.lifecycle, time.Minute, -time.Hour, 100, slog.New(slog.DiscardHandler))
	require.NoError(t, reclaimer.Reclaim(ctx))

	stored, err := f.requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeclined, stored.Status)
	assert.Equal(t, domain.PaymentFailed, stored.PaymentStatus)
}

func TestStaleReclaimer_DisabledWhenWindowZero(t *testing.T) {
	f := newSweepFixture(t, 5*time.Hour)
	reclaimer := NewStaleReclaimer(f.requests, f.lifecycle, 10*time.Millisecond, 0, 100, slog.New(slog.DiscardHandler))

	done := make(chan struct{})
	go func() {
		reclaimer.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled reclaimer should return immediately")
	}
}
