package postgres

import (
	"errors"
	"fmt"

	"companyinfo/cmd/internal/domain/ingest"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// isRowError reports whether err was caused by the values of the row being
// written (a constraint or a value that does not fit its column).
func isRowError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) || pgerrcode.IsDataException(pgErr.Code)
}

// mapPostgresError turns connection failures into *ingest.ConnectionError and
// adds the server details to every other PostgreSQL error.
func mapPostgresError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
			return &ingest.ConnectionError{Op: op, Err: err}
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	switch {
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CrashShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow,
		pgErr.Code == pgerrcode.TooManyConnections:
		return &ingest.ConnectionError{Op: op, Err: err}

	case pgErr.Code == pgerrcode.UniqueViolation,
		pgErr.Code == pgerrcode.CheckViolation:
		return fmt.Errorf("failed to %s: constraint %s: %w", op, pgErr.ConstraintName, err)

	default:
		return fmt.Errorf("failed to %s: postgres error [%s]: %s (detail: %s): %w",
			op, pgErr.Code, pgErr.Message, pgErr.Detail, err)
	}
}
