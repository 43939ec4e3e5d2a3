package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

// ProviderGateway is the port for the external mobile-money provider. Three
// bindings exist (direct-debit charge, request-to-pay prompt, hosted
// checkout); the lifecycle service only depends on this contract.
type ProviderGateway interface {
	// Initiate starts a charge against the student's wallet. It must be
	// called at most once per payment reference unless the previous call
	// failed.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	// CheckStatus polls the provider for the outcome of an earlier charge.
	CheckStatus(ctx context.Context, providerHandle string) (*StatusResponse, error)
	// Name identifies the binding, stored as the request's payment method.
	Name() string
}

type InitiateRequest struct {
	Phone         string
	Amount        decimal.Decimal
	Reference     string
	Description   string
	CustomerName  string
	CustomerEmail string
}

type InitiateResponse struct {
	ProviderHandle string
	// Status is PaymentPending for prompt-style providers and PaymentPaid
	// when the provider settles synchronously.
	Status  domain.PaymentStatus
	Message string
}

type StatusResponse struct {
	Status domain.PaymentStatus
}

// RequestStore is the port for card-request persistence. Update is atomic
// per record: concurrent writers serialize and the loser observes either a
// committed newer version (ConcurrentModification) or an invalid transition.
type RequestStore interface {
	// Create persists a new request, enforcing the one-active-request-per-
	// student invariant. Returns DuplicateActiveRequest when violated.
	Create(ctx context.Context, req *domain.CardRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.CardRequest, error)
	FindByToken(ctx context.Context, token string) (*domain.CardRequest, error)
	FindByReference(ctx context.Context, reference string) (*domain.CardRequest, error)
	// FindActiveForStudent returns (nil, nil) when the student has no
	// in-flight request.
	FindActiveForStudent(ctx context.Context, studentID uuid.UUID) (*domain.CardRequest, error)
	// Update writes the record using its Version for optimistic locking.
	Update(ctx context.Context, req *domain.CardRequest) error
	// ListByStatus returns records newest first; nil status means all.
	ListByStatus(ctx context.Context, status *domain.Status) ([]*domain.CardRequest, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.CardRequest, error)
	// ListExpiredAssigned returns assigned requests whose card expiry has
	// passed as of the given instant.
	ListExpiredAssigned(ctx context.Context, asOf time.Time, limit int) ([]*domain.CardRequest, error)
	// ListStalePending returns pending, not-yet-paid requests created
	// before the cutoff.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.CardRequest, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int64, error)
}

type StudentStore interface {
	// Create fails with DuplicateStudent when the student ID or email is taken.
	Create(ctx context.Context, student *domain.Student) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Student, error)
	FindByStudentID(ctx context.Context, studentID string) (*domain.Student, error)
	Count(ctx context.Context) (int64, error)
}

type MessageStore interface {
	CreateContact(ctx context.Context, msg *domain.ContactMessage) error
	ListContact(ctx context.Context, status *domain.ContactStatus) ([]*domain.ContactMessage, error)
	UpdateContactStatus(ctx context.Context, id uuid.UUID, status domain.ContactStatus) (*domain.ContactMessage, error)
	CreateChat(ctx context.Context, msg *domain.ChatMessage) error
	ListChatBySession(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)
}

// Notifier delivers emails at lifecycle transitions. Callers treat it as
// fire-and-forget: errors are logged, never propagated into a transition.
type Notifier interface {
	RequestSubmitted(ctx context.Context, student *domain.Student, req *domain.CardRequest) error
	PaymentConfirmed(ctx context.Context, student *domain.Student, req *domain.CardRequest) error
	CardAssigned(ctx context.Context, student *domain.Student, req *domain.CardRequest) error
	CardExpired(ctx context.Context, student *domain.Student, req *domain.CardRequest) error
	ContactReceived(ctx context.Context, msg *domain.ContactMessage) error
}
