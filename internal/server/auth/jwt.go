// Package auth encodes and decodes the HS256 session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the registered claims plus the stable account id and the token
// kind. Access tokens also name the refresh token they were minted from.
type Claims struct {
	jwt.RegisteredClaims
	AccountID  string `json:"account_id"`
	TokenType  string `json:"token_type"`
	RefreshJTI string `json:"refresh_jti,omitempty"`
}

// Account returns the account id carried by the token.
func (c *Claims) Account() (uuid.UUID, error) {
	id, err := uuid.Parse(c.AccountID)
	if err != nil {
		return uuid.Nil, common.ErrTokenMalformed
	}
	return id, nil
}

// Signer mints and checks tokens with a single HMAC secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer using time.Now when now is nil.
func NewSigner(secret []byte, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{secret: secret, now: now}
}

// Sign issues a token of the given kind valid for validity from now.
func (s *Signer) Sign(accountID uuid.UUID, tokenType, refreshJTI string, validity time.Duration) (string, *Claims, error) {
	issued := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(validity)),
		},
		AccountID:  accountID.String(),
		TokenType:  tokenType,
		RefreshJTI: refreshJTI,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, claims, nil
}

// Parse checks, in order, structure and signature, token kind, then expiry.
// A bad signature is reported even when the token is also expired.
func (s *Signer) Parse(tokenString, tokenType string) (*Claims, error) {
	return s.parse(tokenString, tokenType, true)
}

// ParseAllowExpired is Parse without the expiry check.
func (s *Signer) ParseAllowExpired(tokenString, tokenType string) (*Claims, error) {
	return s.parse(tokenString, tokenType, false)
}

func (s *Signer) parse(tokenString, tokenType string, checkExpiry bool) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, common.ErrTokenSignature
		default:
			return nil, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
		}
	}

	if claims.TokenType != tokenType {
		return nil, common.ErrTokenWrongType
	}
	if _, err := claims.Account(); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, common.ErrTokenMalformed
	}

	if checkExpiry {
		v := jwt.NewValidator(jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
		if err := v.Validate(claims); err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, common.ErrTokenExpired
			}
			return nil, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
		}
	} else if claims.ExpiresAt == nil {
		return nil, common.ErrTokenMalformed
	}

	return claims, nil
}
