package database

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

// SQLSTATE class 23 covers integrity constraint violations (unique, foreign
// key, not-null). Everything else coming back from a write is treated as a
// connectivity-level failure.
const integrityConstraintClass = "23"

// IsRowViolation reports whether err is a per-row constraint violation that
// should fail the row, not the run.
func IsRowViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, integrityConstraintClass)
	}
	return false
}

// IsConnectivity reports whether err means the store itself is unreachable
// or refusing work. An open circuit breaker counts: the database has already
// failed repeatedly.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	return !IsRowViolation(err)
}
