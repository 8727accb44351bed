package db

import (
	"errors"
	"fmt"
	"testing"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.ErrorIs(t, MapError(pgx.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, MapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), domain.ErrNotFound)
	assert.ErrorIs(t, MapError(&pgconn.PgError{Code: UniqueViolation}), domain.ErrAlreadyExists)

	other := &pgconn.PgError{Code: "40P01"}
	assert.Same(t, other, MapError(other))

	plain := errors.New("boom")
	assert.Equal(t, plain, MapError(plain))
}
