// Package blacklist stores revoked refresh tokens. Entries are never updated
// or removed.
package blacklist

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add inserts e unless its token hash is already present. It reports whether
// a new row was written; a repeat revocation returns false and no error.
func (r *PostgresRepository) Add(ctx context.Context, e *models.BlacklistEntry) (bool, error) {
	query :=
		`INSERT INTO token_blacklist (token_hash, jti, account_id, expires_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (token_hash) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, e.TokenHash, e.JTI, e.AccountID, e.ExpiresAt, e.RevokedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Contains(ctx context.Context, tokenHash string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE token_hash = $1)
		 `

	var found bool
	if err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}
