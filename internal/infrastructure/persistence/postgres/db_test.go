package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

func TestUniqueConstraint(t *testing.T) {
	assert.Equal(t, "", UniqueConstraint(errors.New("connection reset")))
	assert.Equal(t, "", UniqueConstraint(&pgconn.PgError{Code: "23503", ConstraintName: "fk_student"}))
	assert.Equal(t, activeRequestIndex,
		UniqueConstraint(&pgconn.PgError{Code: "23505", ConstraintName: activeRequestIndex}))
}

func TestMapInsertError(t *testing.T) {
	active := &pgconn.PgError{Code: "23505", ConstraintName: activeRequestIndex}
	assert.True(t, domain.HasCode(mapInsertError(active), domain.ErrCodeDuplicateActive))

	token := &pgconn.PgError{Code: "23505", ConstraintName: "card_requests_request_token_key"}
	assert.True(t, domain.HasCode(mapInsertError(token), domain.ErrCodeTokenExhausted))

	plain := errors.New("connection reset")
	mapped := mapInsertError(plain)
	assert.False(t, domain.HasCode(mapped, domain.ErrCodeDuplicateActive))
	assert.ErrorContains(t, mapped, "insert card request")
}
