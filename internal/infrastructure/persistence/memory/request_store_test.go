package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

func newRequest(t *testing.T, token string) *domain.CardRequest {
	t.Helper()
	req, err := domain.NewCardRequest(
		domain.NewStudent("123456789", "Ama", "ama@byupathway.edu", "0241234567").ID,
		decimal.NewFromInt(100),
		decimal.RequireFromString("15.5"),
		decimal.NewFromInt(5),
		token,
		"PAY-"+token,
	)
	require.NoError(t, err)
	return req
}

func TestCreate_RejectsSecondActiveForStudent(t *testing.T) {
	store := NewRequestStore()
	ctx := context.Background()

	first := newRequest(t, "TOKEN00000000001")
	require.NoError(t, store.Create(ctx, first))

	second := newRequest(t, "TOKEN00000000002")
	second.StudentID = first.StudentID
	err := store.Create(ctx, second)
	assert.True(t, domain.HasCode(err, domain.ErrCodeDuplicateActive))
}

func TestCreate_RejectsTokenCollision(t *testing.T) {
	store := NewRequestStore()
	ctx := context.Background()

	first := newRequest(t, "SAMETOKEN0000001")
	require.NoError(t, store.Create(ctx, first))

	clash := newRequest(t, "SAMETOKEN0000001")
	err := store.Create(ctx, clash)
	assert.True(t, domain.HasCode(err, domain.ErrCodeTokenExhausted))
}

func TestUpdate_VersionConflict(t *testing.T) {
	store := NewRequestStore()
	ctx := context.Background()

	req := newRequest(t, "TOKEN00000000003")
	require.NoError(t, store.Create(ctx, req))

	// Two readers load the same version.
	a, err := store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	b, err := store.FindByID(ctx, req.ID)
	require.NoError(t, err)

	_, err = a.ConfirmPayment(time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	require.NoError(t, b.FailPayment())
	err = store.Update(ctx, b)
	assert.True(t, domain.HasCode(err, domain.ErrCodeConcurrentModified))

	// The winner's write is what persisted.
	stored, err := store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
}

func TestFindByID_ReturnsCopy(t *testing.T) {
	store := NewRequestStore()
	ctx := context.Background()

	req := newRequest(t, "TOKEN00000000004")
	require.NoError(t, store.Create(ctx, req))

	loaded, err := store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	loaded.Status = domain.StatusDeclined

	fresh, err := store.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, fresh.Status)
}

func TestFindActiveForStudent_NilWhenNone(t *testing.T) {
	store := NewRequestStore()

	req, err := store.FindActiveForStudent(context.Background(), newRequest(t, "TOKEN00000000005").StudentID)
	require.NoError(t, err)
	assert.Nil(t, req)
}
