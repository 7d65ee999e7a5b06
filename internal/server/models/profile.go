package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is derived from an Account: created with it, removed with it.
type Profile struct {
	AccountID   uuid.UUID
	Bio         string
	DateOfBirth *time.Time
	Address     string
	Country     string
	Website     *string
	AvatarKey   *string
	LastSeen    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
