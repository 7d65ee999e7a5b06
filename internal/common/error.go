// Package common defines shared constants and sentinel errors used across
// the gophauth server, transports and admin tooling. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Store calls that hit their deadline. Never retried.
	ErrStorageTimeout = errors.New("storage timeout")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")

	// Auth errors. Every token failure matches ErrInvalidToken.
	ErrInvalidToken = errors.New("invalid token")

	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenRevoked   = fmt.Errorf("%w: revoked", ErrInvalidToken)
	ErrTokenWrongType = fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	ErrTokenSubject   = fmt.Errorf("%w: account unavailable", ErrInvalidToken)
)
