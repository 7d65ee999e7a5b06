package profiles

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) (*models.Profile, error)
	Touch(ctx context.Context, accountID uuid.UUID) error
	SetLastSeen(ctx context.Context, accountID uuid.UUID, at time.Time) error
	DeleteByAccountID(ctx context.Context, accountID uuid.UUID) error
}
