package postgres

import (
	"context"
	"errors"
	"testing"

	"companyinfo/cmd/internal/domain/ingest"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsRowError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: true},
		{name: "check violation", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, want: true},
		{name: "value too long", err: &pgconn.PgError{Code: pgerrcode.StringDataRightTruncationDataException}, want: true},
		{name: "connection failure", err: &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isRowError(tt.err))
		})
	}
}

func TestMapPostgresError(t *testing.T) {
	require.NoError(t, mapPostgresError("count companies", nil))

	var connErr *ingest.ConnectionError
	err := mapPostgresError("count companies", &pgconn.PgError{Code: pgerrcode.AdminShutdown})
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, "count companies", connErr.Op)

	err = mapPostgresError("write batch", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "companies_pkey"})
	require.False(t, errors.As(err, &connErr))
	require.Contains(t, err.Error(), "companies_pkey")

	err = mapPostgresError("list companies", context.Canceled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPoolConfig(t *testing.T) {
	cfg := &PoolConfig{}
	cfg.ApplyDefaults()
	require.Equal(t, int32(10), cfg.MaxConns)
	require.Equal(t, int32(1), cfg.MinConns)
	require.Error(t, cfg.Validate())

	cfg.ConnString = "postgres://localhost/companies"
	require.NoError(t, cfg.Validate())

	cfg.MinConns = 20
	require.Error(t, cfg.Validate())
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
