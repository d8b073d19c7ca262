package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres failure classification for callers that map repo errors to HTTP
// status codes. gorm wraps the pgx driver error, so unwrap via errors.As.

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.TrimSpace(pgErr.Code)
	}
	return ""
}

// IsUniqueViolation reports a duplicate-key insert (23505).
func IsUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

// IsForeignKeyViolation reports a missing referenced row (23503), e.g. a
// source created for a notebook deleted mid-request.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

// IsRetryable reports transient failures worth a client retry: cancellation,
// serialization conflicts, deadlocks, lock timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch pgCode(err) {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}
