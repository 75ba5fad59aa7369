package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func TestIsRowViolation(t *testing.T) {
	t.Parallel()

	require.True(t, IsRowViolation(&pgconn.PgError{Code: "23505", Message: "duplicate key value"}))
	require.True(t, IsRowViolation(&pgconn.PgError{Code: "23503", Message: "foreign key violation"}))
	require.True(t, IsRowViolation(&pgconn.PgError{Code: "23502", Message: "null value in column"}))

	// Wrapped constraint errors still classify.
	wrapped := errors.Wrap(&pgconn.PgError{Code: "23505"}, "insert failed")
	require.True(t, IsRowViolation(wrapped))

	require.False(t, IsRowViolation(nil))
	require.False(t, IsRowViolation(errors.New("dial tcp: connection refused")))
	require.False(t, IsRowViolation(&pgconn.PgError{Code: "57P01", Message: "admin shutdown"}))
	require.False(t, IsRowViolation(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"}))
}

func TestIsConnectivity(t *testing.T) {
	t.Parallel()

	require.True(t, IsConnectivity(errors.New("dial tcp: connection refused")))
	require.True(t, IsConnectivity(&pgconn.PgError{Code: "57P01", Message: "admin shutdown"}))
	require.True(t, IsConnectivity(gobreaker.ErrOpenState))
	require.True(t, IsConnectivity(gobreaker.ErrTooManyRequests))
	require.True(t, IsConnectivity(errors.Wrap(gobreaker.ErrOpenState, "insert failed")))

	require.False(t, IsConnectivity(nil))
	require.False(t, IsConnectivity(&pgconn.PgError{Code: "23505"}))
}
