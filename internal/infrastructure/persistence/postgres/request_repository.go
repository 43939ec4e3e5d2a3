package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

const requestColumns = `
	id, student_id, requested_amount, local_amount, exchange_rate, fee_percent,
	total_local_amount, purpose, status, payment_status, payment_method,
	request_token, payment_reference, provider_handle,
	card_number, card_expiry, card_cvv,
	payment_verified_at, assigned_at, card_expires_at, paid_at, created_at, version`

// activeRequestIndex is the partial unique index backing the one-active-
// request-per-student invariant (see db/migrations/001_init.up.sql).
const activeRequestIndex = "uq_card_requests_active"

type RequestRepository struct {
	db *pgxpool.Pool
}

func NewRequestRepository(db *DB) *RequestRepository {
	return &RequestRepository{db: db.Pool}
}

func scanRequest(row pgx.Row) (*domain.CardRequest, error) {
	var m CardRequestModel
	err := row.Scan(
		&m.ID, &m.StudentID, &m.RequestedAmount, &m.LocalAmount, &m.ExchangeRate, &m.FeePercent,
		&m.TotalLocalAmount, &m.Purpose, &m.Status, &m.PaymentStatus, &m.PaymentMethod,
		&m.RequestToken, &m.PaymentReference, &m.ProviderHandle,
		&m.CardNumber, &m.CardExpiry, &m.CardCVV,
		&m.PaymentVerifiedAt, &m.AssignedAt, &m.CardExpiresAt, &m.PaidAt, &m.CreatedAt, &m.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("card request")
		}
		return nil, fmt.Errorf("scan card request: %w", err)
	}
	return toDomainModel(&m)
}

func collectRequests(rows pgx.Rows) ([]*domain.CardRequest, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.CardRequest, error) {
		var m CardRequestModel
		err := row.Scan(
			&m.ID, &m.StudentID, &m.RequestedAmount, &m.LocalAmount, &m.ExchangeRate, &m.FeePercent,
			&m.TotalLocalAmount, &m.Purpose, &m.Status, &m.PaymentStatus, &m.PaymentMethod,
			&m.RequestToken, &m.PaymentReference, &m.ProviderHandle,
			&m.CardNumber, &m.CardExpiry, &m.CardCVV,
			&m.PaymentVerifiedAt, &m.AssignedAt, &m.CardExpiresAt, &m.PaidAt, &m.CreatedAt, &m.Version,
		)
		if err != nil {
			return nil, err
		}
		return toDomainModel(&m)
	})
}

// mapInsertError translates an insert failure into the domain taxonomy. A
// unique violation on the active-request index means another in-flight
// submit won; any other unique violation is a token or reference collision.
func mapInsertError(err error) error {
	if IsUniqueViolation(err) {
		if UniqueConstraint(err) == activeRequestIndex {
			return domain.NewDuplicateActiveRequestError()
		}
		return domain.NewTokenExhaustedError()
	}
	return fmt.Errorf("insert card request: %w", err)
}

func insertRequest(ctx context.Context, q Executor, m *CardRequestModel) error {
	_, err := q.Exec(ctx, `
		INSERT INTO card_requests (
			id, student_id, requested_amount, local_amount, exchange_rate, fee_percent,
			total_local_amount, purpose, status, payment_status, payment_method,
			request_token, payment_reference, provider_handle,
			card_number, card_expiry, card_cvv,
			payment_verified_at, assigned_at, card_expires_at, paid_at, created_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)
	`,
		m.ID, m.StudentID, m.RequestedAmount, m.LocalAmount, m.ExchangeRate, m.FeePercent,
		m.TotalLocalAmount, m.Purpose, m.Status, m.PaymentStatus, m.PaymentMethod,
		m.RequestToken, m.PaymentReference, m.ProviderHandle,
		m.CardNumber, m.CardExpiry, m.CardCVV,
		m.PaymentVerifiedAt, m.AssignedAt, m.CardExpiresAt, m.PaidAt, m.CreatedAt, m.Version,
	)
	return err
}

// Create inserts a new card request. The transactional guard gives a clean
// error on the common sequential duplicate; two truly concurrent submits
// both pass it (an empty FOR UPDATE result set locks nothing), so the
// partial unique index is what finally enforces the invariant.
func (r *RequestRepository) Create(ctx context.Context, req *domain.CardRequest) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM card_requests
		WHERE student_id = $1
		  AND status IN ('pending', 'assigned')
		  AND payment_status IN ('unpaid', 'pending')
		LIMIT 1
		FOR UPDATE
	`, req.StudentID).Scan(&existing)
	if err == nil {
		return domain.NewDuplicateActiveRequestError()
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check active request: %w", err)
	}

	m, err := toDBModel(req)
	if err != nil {
		return err
	}

	if err := insertRequest(ctx, tx, m); err != nil {
		return mapInsertError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// findRequest runs a single-row lookup against either the pool or an open
// transaction.
func findRequest(ctx context.Context, q Executor, query string, args ...any) (*domain.CardRequest, error) {
	return scanRequest(q.QueryRow(ctx, query, args...))
}

func (r *RequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.CardRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM card_requests WHERE id = $1`
	return findRequest(ctx, r.db, query, id)
}

func (r *RequestRepository) FindByToken(ctx context.Context, token string) (*domain.CardRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM card_requests WHERE request_token = $1`
	return findRequest(ctx, r.db, query, token)
}

func (r *RequestRepository) FindByReference(ctx context.Context, reference string) (*domain.CardRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM card_requests WHERE payment_reference = $1`
	return findRequest(ctx, r.db, query, reference)
}

func (r *RequestRepository) FindActiveForStudent(ctx context.Context, studentID uuid.UUID) (*domain.CardRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM card_requests
		WHERE student_id = $1
		  AND status IN ('pending', 'assigned')
		  AND payment_status IN ('unpaid', 'pending')
		LIMIT 1`

	req, err := findRequest(ctx, r.db, query, studentID)
	if err != nil {
		if domain.HasCode(err, domain.ErrCodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

// Update writes the mutable fields guarded by the record's version. A
// concurrent writer that committed first bumps the version and this write
// affects zero rows.
func (r *RequestRepository) Update(ctx context.Context, req *domain.CardRequest) error {
	m, err := toDBModel(req)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE card_requests
		SET status = $1, payment_status = $2, payment_method = $3,
			payment_reference = $4, provider_handle = $5,
			card_number = $6, card_expiry = $7, card_cvv = $8,
			payment_verified_at = $9, assigned_at = $10, card_expires_at = $11, paid_at = $12,
			version = version + 1
		WHERE id = $13 AND version = $14
	`,
		m.Status, m.PaymentStatus, m.PaymentMethod,
		m.PaymentReference, m.ProviderHandle,
		m.CardNumber, m.CardExpiry, m.CardCVV,
		m.PaymentVerifiedAt, m.AssignedAt, m.CardExpiresAt, m.PaidAt,
		m.ID, m.Version,
	)
	if err != nil {
		return fmt.Errorf("update card request: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, findErr := r.FindByID(ctx, req.ID); findErr != nil {
			return findErr
		}
		return domain.NewConcurrentModificationError()
	}

	req.Version++
	return nil
}

func (r *RequestRepository) ListByStatus(ctx context.Context, status *domain.Status) ([]*domain.CardRequest, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		query := `SELECT ` + requestColumns + ` FROM card_requests WHERE status = $1 ORDER BY created_at DESC`
		rows, err = r.db.Query(ctx, query, string(*status))
	} else {
		query := `SELECT ` + requestColumns + ` FROM card_requests ORDER BY created_at DESC`
		rows, err = r.db.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("query card requests: %w", err)
	}
	return collectRequests(rows)
}

func (r *RequestRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.CardRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM card_requests
		WHERE student_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query card requests by student: %w", err)
	}
	return collectRequests(rows)
}

func (r *RequestRepository) ListExpiredAssigned(ctx context.Context, asOf time.Time, limit int) ([]*domain.CardRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM card_requests
		WHERE status = 'assigned' AND card_expires_at <= $1
		ORDER BY card_expires_at ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired cards: %w", err)
	}
	return collectRequests(rows)
}

func (r *RequestRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.CardRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM card_requests
		WHERE status = 'pending'
		  AND payment_status IN ('unpaid', 'pending')
		  AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale requests: %w", err)
	}
	return collectRequests(rows)
}

func (r *RequestRepository) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM card_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count card requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.Status(status)] = count
	}
	return counts, rows.Err()
}
