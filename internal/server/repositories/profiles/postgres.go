// Package profiles persists the Profile row kept alongside every Account.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	query :=
		`INSERT INTO profiles (account_id, bio, date_of_birth, address, country, website, avatar_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.AccountID, p.Bio, nullTime(p.DateOfBirth), p.Address, p.Country, nullString(p.Website), nullString(p.AvatarKey),
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", common.ErrConflict, err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Profile, error) {
	query :=
		`SELECT account_id, bio, date_of_birth, address, country, website, avatar_key, last_seen, created_at, updated_at
		 FROM profiles
		 WHERE account_id = $1
		 `

	p := &models.Profile{}
	var (
		dob, lastSeen      sql.NullTime
		website, avatarKey sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&p.AccountID, &p.Bio, &dob, &p.Address, &p.Country, &website, &avatarKey, &lastSeen, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	p.DateOfBirth = timePtr(dob)
	p.LastSeen = timePtr(lastSeen)
	p.Website = stringPtr(website)
	p.AvatarKey = stringPtr(avatarKey)
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	query :=
		`UPDATE profiles
		 SET bio = $2, date_of_birth = $3, address = $4, country = $5, website = $6, avatar_key = $7, updated_at = now()
		 WHERE account_id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		p.AccountID, p.Bio, nullTime(p.DateOfBirth), p.Address, p.Country, nullString(p.Website), nullString(p.AvatarKey),
	).Scan(&p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// Touch bumps updated_at after the owning account changed.
func (r *PostgresRepository) Touch(ctx context.Context, accountID uuid.UUID) error {
	query :=
		`UPDATE profiles SET updated_at = now()
		 WHERE account_id = $1
		 `
	return r.execOne(ctx, query, accountID)
}

func (r *PostgresRepository) SetLastSeen(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	query :=
		`UPDATE profiles SET last_seen = $2
		 WHERE account_id = $1
		 `
	return r.execOne(ctx, query, accountID, at)
}

func (r *PostgresRepository) DeleteByAccountID(ctx context.Context, accountID uuid.UUID) error {
	query :=
		`DELETE FROM profiles
		 WHERE account_id = $1
		 `
	return r.execOne(ctx, query, accountID)
}

// execOne runs a statement expected to hit exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
