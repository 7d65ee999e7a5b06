// Package services contains server-side business logic: the identity store
// (AccountService), the session token service (TokenService), avatar
// storage and the AuthService gateway the transports talk to.
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
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/events"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/google/uuid"
)

// AccountService owns Accounts and their Profiles. Every method that touches
// both runs them in one transaction, so a Profile exists exactly when its
// Account does.
type AccountService struct {
	db           dbx.DB
	repomanager  repomanager.RepositoryManager
	bcryptCost   int
	storeTimeout time.Duration
	publisher    events.Publisher
	logger       logging.Logger
	now          func() time.Time
}

func NewAccountService(db dbx.DB, m repomanager.RepositoryManager, cfg *config.Config, p events.Publisher, l logging.Logger) *AccountService {
	if p == nil {
		p = events.NopPublisher{}
	}
	if l == nil {
		l = logging.NopLogger{}
	}
	return &AccountService{
		db:           db,
		repomanager:  m,
		bcryptCost:   cfg.BcryptCost,
		storeTimeout: cfg.StoreTimeout,
		publisher:    p,
		logger:       l.With("module", "account_service"),
		now:          time.Now,
	}
}

// EmailExists implements validation.EmailChecker.
func (s *AccountService) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		exists, err = s.repomanager.Accounts(s.db).EmailExists(ctx, email)
		return err
	})
	return exists, err
}

// CreateAccount stores a new active account and its empty profile.
// A duplicate email is reported as a *validation.ValidationError on "email",
// also when the store only detects it at commit.
func (s *AccountService) CreateAccount(ctx context.Context, in validation.ValidRegistration) (*models.Account, error) {
	return s.create(ctx, in, false)
}

// CreateStaff is CreateAccount with the staff flag set.
func (s *AccountService) CreateStaff(ctx context.Context, in validation.ValidRegistration) (*models.Account, error) {
	return s.create(ctx, in, true)
}

func (s *AccountService) create(ctx context.Context, in validation.ValidRegistration, staff bool) (*models.Account, error) {
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	account := models.NewAccount(in.Email, hash, in.FirstName, in.LastName, in.PhoneNumber)
	account.IsStaff = staff

	var created *models.Account
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			a, err := s.repomanager.Accounts(tx).Create(ctx, account)
			if err != nil {
				return err
			}
			if _, err := s.repomanager.Profiles(tx).Create(ctx, &models.Profile{AccountID: a.ID}); err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
			created = a
			return nil
		})
	})
	if err != nil {
		if isDuplicate(err) {
			s.logger.Info(ctx, "registration rejected, email taken")
			return nil, validation.EmailTaken()
		}
		s.logger.Error(ctx, "create account failed", "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "account created", "account_id", created.ID, "staff", staff)
	s.publish(ctx, common.SubjectAccountCreated, created.ID)
	return created, nil
}

// UpdateAccount applies a partial update and touches the profile's
// updated_at in the same transaction. The account row stays locked from the
// read until commit. The password is re-hashed only when a new one is supplied.
func (s *AccountService) UpdateAccount(ctx context.Context, id uuid.UUID, in validation.ValidUpdate) (*models.Account, error) {
	var hash string
	if in.Password != nil {
		var err error
		if hash, err = s.hash(*in.Password); err != nil {
			return nil, err
		}
	}

	var updated *models.Account
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Accounts(tx)

			a, err := repo.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			applyUpdate(a, in, hash)

			if updated, err = repo.Update(ctx, a); err != nil {
				return err
			}

			err = s.repomanager.Profiles(tx).Touch(ctx, id)
			if errors.Is(err, common.ErrNotFound) {
				s.logger.Warn(ctx, "profile missing on account update", "account_id", id)
				return nil
			}
			return err
		})
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, validation.EmailTaken()
		}
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error(ctx, "update account failed", "account_id", id, "error", err)
		}
		return nil, err
	}

	s.logger.Info(ctx, "account updated", "account_id", id, "password_changed", in.Password != nil)
	return updated, nil
}

// DeleteAccount removes the profile and then the account in one transaction.
// A missing profile is treated as already consistent; a missing account is
// common.ErrNotFound.
func (s *AccountService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			err := s.repomanager.Profiles(tx).DeleteByAccountID(ctx, id)
			switch {
			case errors.Is(err, common.ErrNotFound):
				s.logger.Info(ctx, "profile already gone", "account_id", id)
			case err != nil:
				return fmt.Errorf("delete profile: %w", err)
			}
			return s.repomanager.Accounts(tx).Delete(ctx, id)
		})
	})
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error(ctx, "delete account failed", "account_id", id, "error", err)
		}
		return err
	}

	s.logger.Info(ctx, "account deleted", "account_id", id)
	s.publish(ctx, common.SubjectAccountDeleted, id)
	return nil
}

// Authenticate returns the account for a matching email and password.
// Unknown email, wrong password and inactive account are all
// common.ErrUnauthorized; a dummy hash comparison keeps the timing of the
// unknown-email path in line with the others.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	email = validation.NormalizeEmail(email)

	var account *models.Account
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.repomanager.Accounts(s.db).GetByEmail(ctx, email)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			cryptox.DummyCheck(password, s.bcryptCost)
			return nil, common.ErrUnauthorized
		}
		s.logger.Error(ctx, "account lookup failed", "error", err)
		return nil, err
	}

	if !cryptox.CheckPassword(account.PasswordHash, password) {
		s.logger.Info(ctx, "login rejected", "account_id", account.ID)
		return nil, common.ErrUnauthorized
	}
	if !account.IsActive {
		s.logger.Info(ctx, "login rejected, account inactive", "account_id", account.ID)
		return nil, common.ErrUnauthorized
	}
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account *models.Account
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.repomanager.Accounts(s.db).GetByID(ctx, id)
		return err
	})
	return account, err
}

func (s *AccountService) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account *models.Account
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.repomanager.Accounts(s.db).GetByEmail(ctx, validation.NormalizeEmail(email))
		return err
	})
	return account, err
}

func (s *AccountService) GetProfile(ctx context.Context, accountID uuid.UUID) (*models.Profile, error) {
	var profile *models.Profile
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.repomanager.Profiles(s.db).GetByAccountID(ctx, accountID)
		return err
	})
	return profile, err
}

// UpdateProfile applies a partial profile change. An empty website clears it.
// The input must already have passed validation.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID uuid.UUID, in validation.ProfileUpdate) (*models.Profile, error) {
	return s.modifyProfile(ctx, accountID, func(p *models.Profile) {
		if in.Bio != nil {
			p.Bio = *in.Bio
		}
		if in.DateOfBirth != nil {
			dob := *in.DateOfBirth
			p.DateOfBirth = &dob
		}
		if in.Address != nil {
			p.Address = *in.Address
		}
		if in.Country != nil {
			p.Country = *in.Country
		}
		if in.Website != nil {
			p.Website = emptyToNil(*in.Website)
		}
	})
}

// SetAvatar records the object storage key of the account's picture.
func (s *AccountService) SetAvatar(ctx context.Context, accountID uuid.UUID, key string) (*models.Profile, error) {
	return s.modifyProfile(ctx, accountID, func(p *models.Profile) {
		p.AvatarKey = emptyToNil(key)
	})
}

// TouchLastSeen stamps the profile after a successful login. A missing
// profile is logged and ignored.
func (s *AccountService) TouchLastSeen(ctx context.Context, accountID uuid.UUID) error {
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repomanager.Profiles(s.db).SetLastSeen(ctx, accountID, s.now())
	})
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Warn(ctx, "profile missing on last seen update", "account_id", accountID)
		return nil
	}
	return err
}

func (s *AccountService) modifyProfile(ctx context.Context, accountID uuid.UUID, apply func(*models.Profile)) (*models.Profile, error) {
	var updated *models.Profile
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.repomanager.Profiles(tx)
			p, err := repo.GetByAccountID(ctx, accountID)
			if err != nil {
				return err
			}
			apply(p)
			updated, err = repo.Update(ctx, p)
			return err
		})
	})
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error(ctx, "update profile failed", "account_id", accountID, "error", err)
		}
		return nil, err
	}
	return updated, nil
}

func (s *AccountService) hash(password string) (string, error) {
	h, err := cryptox.HashPassword(password, s.bcryptCost)
	if err != nil {
		if cryptox.IsPasswordTooLong(err) {
			return "", validation.NewFieldError("password", "ensure this field has no more than 72 bytes")
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

func (s *AccountService) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbx.WithTimeout(ctx, s.storeTimeout, fn)
}

// publish is best effort: the change is already committed.
func (s *AccountService) publish(ctx context.Context, subject string, id uuid.UUID) {
	ev := events.AccountEvent{AccountID: id, OccurredAt: s.now().UTC()}
	if err := s.publisher.Publish(ctx, subject, ev); err != nil {
		s.logger.Warn(ctx, "event publish failed", "subject", subject, "account_id", id, "error", err)
	}
}

func applyUpdate(a *models.Account, in validation.ValidUpdate, hash string) {
	if in.Email != nil {
		a.Email = *in.Email
	}
	if in.FirstName != nil {
		a.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		a.PhoneNumber = emptyToNil(*in.PhoneNumber)
	}
	if hash != "" {
		a.PasswordHash = hash
	}
}

func isDuplicate(err error) bool {
	return errors.Is(err, common.ErrConflict) || dbx.IsUniqueViolation(err)
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
