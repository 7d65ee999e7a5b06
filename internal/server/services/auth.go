package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/google/uuid"
)

// AccountStore is the identity store as seen by the gateway.
type AccountStore interface {
	CreateAccount(ctx context.Context, in validation.ValidRegistration) (*models.Account, error)
	CreateStaff(ctx context.Context, in validation.ValidRegistration) (*models.Account, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, in validation.ValidUpdate) (*models.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	Authenticate(ctx context.Context, email, password string) (*models.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetProfile(ctx context.Context, accountID uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, accountID uuid.UUID, in validation.ProfileUpdate) (*models.Profile, error)
	SetAvatar(ctx context.Context, accountID uuid.UUID, key string) (*models.Profile, error)
	TouchLastSeen(ctx context.Context, accountID uuid.UUID) error
}

type TokenStore interface {
	Issue(account *models.Account) (*models.TokenPair, error)
	Verify(ctx context.Context, token, tokenType string) (*auth.Claims, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type AvatarStore interface {
	PresignUpload(ctx context.Context, accountID uuid.UUID) (string, string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// Recorder counts authentication outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	Registration(ok bool)
	Login(ok bool)
	TokenOperation(op string, ok bool)
}

type nopRecorder struct{}

func (nopRecorder) Registration(bool)           {}
func (nopRecorder) Login(bool)                  {}
func (nopRecorder) TokenOperation(string, bool) {}

// RegisterResult is what a successful registration reports. It never
// contains the password or its hash.
type RegisterResult struct {
	AccountID   uuid.UUID
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber *string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccountID    uuid.UUID
	FirstName    string
	LastName     string
	Email        string
}

// TokenInfo describes a verified token.
type TokenInfo struct {
	AccountID uuid.UUID
	TokenType string
	ExpiresAt time.Time
}

// ProfileView is a profile with a short-lived avatar download link.
type ProfileView struct {
	Profile   *models.Profile
	AvatarURL string
}

type AvatarUpload struct {
	Key       string
	UploadURL string
	ExpiresIn time.Duration
}

// AuthService is the gateway behind the HTTP and gRPC transports.
type AuthService struct {
	accounts  AccountStore
	tokens    TokenStore
	avatars   AvatarStore
	validator *validation.Validator
	recorder  Recorder
	logger    logging.Logger
}

type AuthOption func(*AuthService)

func WithRecorder(r Recorder) AuthOption {
	return func(s *AuthService) { s.recorder = r }
}

func NewAuthService(a AccountStore, t TokenStore, av AvatarStore, v *validation.Validator, l logging.Logger, opts ...AuthOption) *AuthService {
	if l == nil {
		l = logging.NopLogger{}
	}
	s := &AuthService{
		accounts:  a,
		tokens:    t,
		avatars:   av,
		validator: v,
		recorder:  nopRecorder{},
		logger:    l.With("module", "auth_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the input and creates the account with its profile.
// Validation failures come back as the full *validation.ValidationError.
func (s *AuthService) Register(ctx context.Context, in validation.RegistrationInput) (*RegisterResult, error) {
	account, err := s.register(ctx, in, false)
	s.recorder.Registration(err == nil)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{
		AccountID:   account.ID,
		FirstName:   account.FirstName,
		LastName:    account.LastName,
		Email:       account.Email,
		PhoneNumber: account.PhoneNumber,
	}, nil
}

// RegisterStaff is Register for administrator accounts.
func (s *AuthService) RegisterStaff(ctx context.Context, in validation.RegistrationInput) (*models.Account, error) {
	return s.register(ctx, in, true)
}

func (s *AuthService) register(ctx context.Context, in validation.RegistrationInput, staff bool) (*models.Account, error) {
	valid, err := s.validator.ValidateRegistration(ctx, in)
	if err != nil {
		return nil, err
	}
	if staff {
		return s.accounts.CreateStaff(ctx, valid)
	}
	return s.accounts.CreateAccount(ctx, valid)
}

// Login checks credentials and issues a token pair. Every credential
// mismatch is common.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		s.recorder.Login(false)
		return nil, err
	}

	pair, err := s.tokens.Issue(account)
	if err != nil {
		s.recorder.Login(false)
		s.logger.Error(ctx, "issue tokens failed", "account_id", account.ID, "error", err)
		return nil, err
	}
	s.recorder.Login(true)

	if err := s.accounts.TouchLastSeen(ctx, account.ID); err != nil {
		s.logger.Warn(ctx, "last seen update failed", "account_id", account.ID, "error", err)
	}

	return &LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		AccountID:    account.ID,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		Email:        account.Email,
	}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	pair, err := s.tokens.Refresh(ctx, refreshToken)
	s.recorder.TokenOperation("refresh", err == nil)
	return pair, err
}

// Verify accepts either token kind.
func (s *AuthService) Verify(ctx context.Context, token string) (*TokenInfo, error) {
	claims, err := s.tokens.Verify(ctx, token, common.TokenTypeAccess)
	if errors.Is(err, common.ErrTokenWrongType) {
		claims, err = s.tokens.Verify(ctx, token, common.TokenTypeRefresh)
	}
	s.recorder.TokenOperation("verify", err == nil)
	if err != nil {
		return nil, err
	}

	id, err := claims.Account()
	if err != nil {
		return nil, err
	}
	return &TokenInfo{AccountID: id, TokenType: claims.TokenType, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Logout revokes the refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.tokens.Revoke(ctx, refreshToken)
	s.recorder.TokenOperation("revoke", err == nil)
	return err
}

// Authorize resolves an access token to the account id it was issued for.
func (s *AuthService) Authorize(ctx context.Context, accessToken string) (uuid.UUID, error) {
	claims, err := s.tokens.Verify(ctx, accessToken, common.TokenTypeAccess)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.Account()
}

func (s *AuthService) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.accounts.GetAccount(ctx, id)
}

func (s *AuthService) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.accounts.GetAccountByEmail(ctx, email)
}

// UpdateMe validates a partial update against the current account and
// applies it.
func (s *AuthService) UpdateMe(ctx context.Context, id uuid.UUID, in validation.AccountUpdate) (*models.Account, error) {
	existing, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	valid, err := s.validator.ValidateUpdate(ctx, existing, in)
	if err != nil {
		return nil, err
	}
	return s.accounts.UpdateAccount(ctx, id, valid)
}

func (s *AuthService) DeleteMe(ctx context.Context, id uuid.UUID) error {
	return s.accounts.DeleteAccount(ctx, id)
}

func (s *AuthService) Profile(ctx context.Context, id uuid.UUID) (*ProfileView, error) {
	p, err := s.accounts.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p), nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, in validation.ProfileUpdate) (*ProfileView, error) {
	if err := s.validator.ValidateProfile(in); err != nil {
		return nil, err
	}
	p, err := s.accounts.UpdateProfile(ctx, id, in)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p), nil
}

// AvatarUploadURL reserves a new object key for the account's picture,
// records it on the profile and returns a presigned PUT URL for it.
func (s *AuthService) AvatarUploadURL(ctx context.Context, id uuid.UUID) (*AvatarUpload, error) {
	key, url, err := s.avatars.PresignUpload(ctx, id)
	if err != nil {
		s.logger.Error(ctx, "avatar presign failed", "account_id", id, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}
	if _, err := s.accounts.SetAvatar(ctx, id, key); err != nil {
		return nil, err
	}
	return &AvatarUpload{Key: key, UploadURL: url, ExpiresIn: AvatarURLValidity}, nil
}

// view attaches a download link. A presign failure only drops the link.
func (s *AuthService) view(ctx context.Context, p *models.Profile) *ProfileView {
	v := &ProfileView{Profile: p}
	if p.AvatarKey == nil {
		return v
	}
	url, err := s.avatars.PresignDownload(ctx, *p.AvatarKey)
	if err != nil {
		s.logger.Warn(ctx, "avatar presign failed", "account_id", p.AccountID, "error", err)
		return v
	}
	v.AvatarURL = url
	return v
}
