// Package models holds the server-side domain records shared by repositories,
// services and transports.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered identity. PK is the storage row key and never leaves
// the process; ID is the stable identifier embedded in tokens and responses.
type Account struct {
	PK           int64
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  *string
	IsActive     bool
	IsStaff      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount builds an active, non-staff account with a fresh random ID.
// The password must already be hashed.
func NewAccount(email, passwordHash, firstName, lastName string, phone *string) *Account {
	return &Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		PhoneNumber:  phone,
		IsActive:     true,
	}
}
