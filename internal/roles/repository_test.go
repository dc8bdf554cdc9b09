package roles

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/snd-erp/snd-erp/internal/platform/httpx"
)

func TestMapConstraintErrorUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "roles_name_key"}
	wrapped := fmt.Errorf("insert role: %w", pgErr)

	require.ErrorIs(t, mapConstraintError(wrapped), httpx.ErrDuplicate)
}

func TestMapConstraintErrorPassthrough(t *testing.T) {
	fk := fmt.Errorf("insert role: %w", &pgconn.PgError{Code: "23503"})
	require.NotErrorIs(t, mapConstraintError(fk), httpx.ErrDuplicate)
	require.Equal(t, fk, mapConstraintError(fk))

	plain := fmt.Errorf("connection reset")
	require.Equal(t, plain, mapConstraintError(plain))
}
