package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// TokenService mints, checks, refreshes and revokes session tokens.
//
// A refresh token is ISSUED until it expires or is revoked; both are
// terminal. Refreshing does not rotate it.
type TokenService struct {
	db                           dbx.DB
	repomanager                  repomanager.RepositoryManager
	signer                       *auth.Signer
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	storeTimeout                 time.Duration
	now                          func() time.Time
	logger                       logging.Logger
}

type TokenOption func(*TokenService)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func WithTokenLogger(l logging.Logger) TokenOption {
	return func(s *TokenService) { s.logger = l }
}

// NewTokenService fails when the refresh lifetime does not exceed the access
// lifetime or the secret is empty.
func NewTokenService(db dbx.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...TokenOption) (*TokenService, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("token service: empty secret key")
	}
	if cfg.AccessTokenValidityDuration <= 0 {
		return nil, errors.New("token service: access token lifetime must be positive")
	}
	if cfg.RefreshTokenValidityDuration <= cfg.AccessTokenValidityDuration {
		return nil, errors.New("token service: refresh token lifetime must exceed access token lifetime")
	}

	s := &TokenService{
		db:                           db,
		repomanager:                  m,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		storeTimeout:                 cfg.StoreTimeout,
		now:                          time.Now,
		logger:                       logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "token_service")
	s.signer = auth.NewSigner([]byte(cfg.SecretKey), s.now)
	return s, nil
}

// Issue mints a refresh token and an access token bound to it. Both carry the
// account's stable id.
func (s *TokenService) Issue(account *models.Account) (*models.TokenPair, error) {
	refresh, rc, err := s.signer.Sign(account.ID, common.TokenTypeRefresh, "", s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	access, _, err := s.signer.Sign(account.ID, common.TokenTypeAccess, rc.ID, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks signature, kind and expiry, and for refresh tokens the
// blacklist. Access tokens are never looked up in the blacklist.
func (s *TokenService) Verify(ctx context.Context, token, tokenType string) (*auth.Claims, error) {
	claims, err := s.signer.Parse(token, tokenType)
	if err != nil {
		return nil, err
	}
	if tokenType != common.TokenTypeRefresh {
		return claims, nil
	}

	revoked, err := s.isRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}
	return claims, nil
}

// Refresh mints a new access token from a valid refresh token. The same
// refresh token is handed back. The account must still exist and be active.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.Verify(ctx, refreshToken, common.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	accountID, err := claims.Account()
	if err != nil {
		return nil, err
	}

	var account *models.Account
	err = dbx.WithTimeout(ctx, s.storeTimeout, func(ctx context.Context) error {
		var err error
		account, err = s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
		return err
	})
	switch {
	case errors.Is(err, common.ErrNotFound):
		s.logger.Info(ctx, "refresh for missing account", "account_id", accountID, "jti", claims.ID)
		return nil, common.ErrTokenSubject
	case err != nil:
		return nil, err
	case !account.IsActive:
		s.logger.Info(ctx, "refresh for inactive account", "account_id", accountID, "jti", claims.ID)
		return nil, common.ErrTokenSubject
	}

	access, _, err := s.signer.Sign(accountID, common.TokenTypeAccess, claims.ID, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// Revoke blacklists a refresh token. The token must be correctly signed but
// may already be expired. Revoking twice is not an error.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.signer.ParseAllowExpired(refreshToken, common.TokenTypeRefresh)
	if err != nil {
		return err
	}
	accountID, err := claims.Account()
	if err != nil {
		return err
	}

	entry := &models.BlacklistEntry{
		TokenHash: cryptox.Fingerprint(refreshToken),
		JTI:       claims.ID,
		AccountID: accountID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: s.now(),
	}

	var inserted bool
	err = dbx.WithTimeout(ctx, s.storeTimeout, func(ctx context.Context) error {
		var err error
		inserted, err = s.repomanager.Blacklist(s.db).Add(ctx, entry)
		return err
	})
	if err != nil {
		s.logger.Error(ctx, "revoke failed", "account_id", accountID, "jti", claims.ID, "error", err)
		return err
	}

	if inserted {
		s.logger.Info(ctx, "refresh token revoked", "account_id", accountID, "jti", claims.ID)
	} else {
		s.logger.Debug(ctx, "refresh token already revoked", "account_id", accountID, "jti", claims.ID)
	}
	return nil
}

func (s *TokenService) isRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	err := dbx.WithTimeout(ctx, s.storeTimeout, func(ctx context.Context) error {
		var err error
		revoked, err = s.repomanager.Blacklist(s.db).Contains(ctx, cryptox.Fingerprint(token))
		return err
	})
	return revoked, err
}
