package blacklist

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	Add(ctx context.Context, e *models.BlacklistEntry) (bool, error)
	Contains(ctx context.Context, tokenHash string) (bool, error)
}
