package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// GetByIDForUpdate also row-locks the account until the enclosing
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, a *models.Account) (*models.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
