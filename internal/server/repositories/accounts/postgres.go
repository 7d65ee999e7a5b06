// Package accounts persists Account rows in PostgreSQL.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

const selectAccount = `SELECT pk, id, email, password_hash, first_name, last_name, phone_number, is_active, is_staff, created_at, updated_at
		 FROM accounts`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, email, password_hash, first_name, last_name, phone_number, is_active, is_staff)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING pk, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, nullString(a.PhoneNumber), a.IsActive, a.IsStaff,
	).Scan(&a.PK, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		return nil, wrapErr(err)
	}

	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := selectAccount + `
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := selectAccount + `
		 WHERE id = $1
		 FOR UPDATE
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := selectAccount + `
		 WHERE email = $1
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)
		 `

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Update writes every mutable column of a and refreshes UpdatedAt.
func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`UPDATE accounts
		 SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
		     phone_number = $6, is_active = $7, is_staff = $8, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, nullString(a.PhoneNumber), a.IsActive, a.IsStaff,
	).Scan(&a.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, wrapErr(err)
	}

	return a, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query :=
		`DELETE FROM accounts
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a := &models.Account{}
	var phone sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.PK, &a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName,
		&phone, &a.IsActive, &a.IsStaff, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if phone.Valid {
		a.PhoneNumber = &phone.String
	}
	return a, nil
}

// wrapErr tags unique violations as common.ErrConflict while keeping the
// driver error in the chain.
func wrapErr(err error) error {
	if dbx.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", common.ErrConflict, err)
	}
	return fmt.Errorf("db error: %w", err)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
