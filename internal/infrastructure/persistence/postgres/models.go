package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// CardRequestModel mirrors the card_requests table row.
type CardRequestModel struct {
	ID               uuid.UUID
	StudentID        uuid.UUID
	RequestedAmount  pgtype.Numeric
	LocalAmount      pgtype.Numeric
	ExchangeRate     pgtype.Numeric
	FeePercent       pgtype.Numeric
	TotalLocalAmount pgtype.Numeric
	Purpose          string

	Status        string
	PaymentStatus string
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

type StudentModel struct {
	ID        uuid.UUID
	StudentID string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}
