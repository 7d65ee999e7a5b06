package dbx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultTimeout bounds a single store operation when no value is configured.
const DefaultTimeout = 5 * time.Second

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// WithTimeout runs fn under a context bounded by d (DefaultTimeout if d <= 0).
// If the deadline is hit the returned error matches common.ErrStorageTimeout.
// The operation is not retried.
//
//	err := dbx.WithTimeout(ctx, 2*time.Second, func(ctx context.Context) error {
//	    return dbx.WithTx(ctx, db, nil, ...)
//	})
func WithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		d = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", common.ErrStorageTimeout, err)
	}
	return err
}

// IsUniqueViolation reports whether err carries a PostgreSQL unique constraint
// violation, regardless of how deeply it was wrapped.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
