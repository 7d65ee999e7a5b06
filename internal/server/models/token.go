package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// BlacklistEntry marks a refresh token as revoked. Rows are only ever inserted.
type BlacklistEntry struct {
	TokenHash string
	JTI       string
	AccountID uuid.UUID
	ExpiresAt time.Time
	RevokedAt time.Time
}
