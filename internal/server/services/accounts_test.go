package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/events"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountSvc(t *testing.T) (*AccountService, sqlmock.Sqlmock, *fakeRepoManager, *recordingPublisher) {
	t.Helper()
	db, mock := newMockDB(t)
	rm := newFakeRepoManager()
	pub := &recordingPublisher{}
	return NewAccountService(db, rm, testConfig(), pub, logging.NopLogger{}), mock, rm, pub
}

func validReg(email string) validation.ValidRegistration {
	return validation.ValidRegistration{
		Email:     email,
		Password:  "Str0ng!pass",
		FirstName: "Ann",
		LastName:  "Lee",
	}
}

func TestCreateAccount_CreatesProfileAndHashes(t *testing.T) {
	svc, mock, rm, pub := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.True(t, a.IsActive)
	assert.False(t, a.IsStaff)
	assert.NotEqual(t, "Str0ng!pass", a.PasswordHash)
	assert.True(t, cryptox.CheckPassword(a.PasswordHash, "Str0ng!pass"))

	p, err := svc.GetProfile(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, p.AccountID)
	assert.Len(t, rm.profiles.rows, 1)

	require.Equal(t, []string{common.SubjectAccountCreated}, pub.subjects)
	assert.Equal(t, a.ID, pub.events[0].(events.AccountEvent).AccountID)
}

func TestCreateStaff(t *testing.T) {
	svc, mock, _, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := svc.CreateStaff(context.Background(), validReg("root@example.com"))
	require.NoError(t, err)
	assert.True(t, a.IsStaff)
}

func TestCreateAccount_DuplicateEmailIsValidationError(t *testing.T) {
	svc, mock, rm, pub := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	first, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)

	_, err = svc.CreateAccount(context.Background(), validReg("ANN@example.com"))
	require.ErrorIs(t, err, common.ErrValidation)
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, rm.accounts.rows, 1)
	_, err = svc.GetAccount(context.Background(), first.ID)
	require.NoError(t, err, "first registration is unaffected")
	assert.Len(t, pub.subjects, 1)
}

func TestCreateAccount_UniqueViolationAtCommit(t *testing.T) {
	svc, mock, _, pub := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	_, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, pub.subjects)
}

func TestCreateAccount_ProfileFailureRollsBack(t *testing.T) {
	svc, mock, rm, pub := newAccountSvc(t)
	rm.profiles.createErr = errors.New("db error: disk full")
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.Error(t, err)
	require.NotErrorIs(t, err, common.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, pub.subjects)
}

func TestCreateAccount_BeginFails(t *testing.T) {
	svc, mock, _, _ := newAccountSvc(t)
	mock.ExpectBegin().WillReturnError(errors.New("conn refused"))

	_, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

func TestCreateAccount_PublishFailureIsNotReturned(t *testing.T) {
	svc, mock, _, pub := newAccountSvc(t)
	pub.err = errors.New("nats down")
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)
}

func TestDeleteAccount_RemovesProfile(t *testing.T) {
	svc, mock, rm, pub := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(context.Background(), a.ID))
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = svc.GetProfile(context.Background(), a.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.GetAccount(context.Background(), a.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, rm.profiles.rows)
	assert.Equal(t, []string{common.SubjectAccountCreated, common.SubjectAccountDeleted}, pub.subjects)
}

func TestDeleteAccount_MissingProfileIsConsistent(t *testing.T) {
	svc, mock, rm, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)
	delete(rm.profiles.rows, a.ID)

	require.NoError(t, svc.DeleteAccount(context.Background(), a.ID))
	assert.Empty(t, rm.accounts.rows)
}

func TestDeleteAccount_Unknown(t *testing.T) {
	svc, mock, _, pub := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := svc.DeleteAccount(context.Background(), uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, pub.subjects)
}

func TestDeleteAccount_ProfileErrorRollsBack(t *testing.T) {
	svc, mock, rm, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	a, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)

	rm.profiles.deleteErr = errors.New("db error: lock timeout")
	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Error(t, svc.DeleteAccount(context.Background(), a.ID))
	assert.Len(t, rm.accounts.rows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAccount_Partial(t *testing.T) {
	svc, mock, rm, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	phone := "+15551234567"
	reg := validReg("ann@example.com")
	reg.PhoneNumber = &phone
	a, err := svc.CreateAccount(context.Background(), reg)
	require.NoError(t, err)
	oldHash := a.PasswordHash

	first := "Anna"
	empty := ""
	u, err := svc.UpdateAccount(context.Background(), a.ID, validation.ValidUpdate{FirstName: &first, PhoneNumber: &empty})
	require.NoError(t, err)

	assert.Equal(t, "Anna", u.FirstName)
	assert.Equal(t, "Lee", u.LastName)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Nil(t, u.PhoneNumber)
	assert.Equal(t, oldHash, u.PasswordHash, "hash untouched without a new password")
	assert.Equal(t, 1, rm.profiles.touched[a.ID])
	assert.Equal(t, 1, rm.accounts.locks, "account read with a row lock")
}

func TestUpdateAccount_Password(t *testing.T) {
	svc, mock, _, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)

	pw := "N3w!password"
	u, err := svc.UpdateAccount(context.Background(), a.ID, validation.ValidUpdate{Password: &pw})
	require.NoError(t, err)
	assert.True(t, cryptox.CheckPassword(u.PasswordHash, pw))
	assert.False(t, cryptox.CheckPassword(u.PasswordHash, "Str0ng!pass"))
}

func TestUpdateAccount_MissingProfileIsWarning(t *testing.T) {
	svc, mock, rm, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)
	delete(rm.profiles.rows, a.ID)

	last := "Ray"
	_, err = svc.UpdateAccount(context.Background(), a.ID, validation.ValidUpdate{LastName: &last})
	require.NoError(t, err)
}

func TestUpdateAccount_EmailConflict(t *testing.T) {
	svc, mock, _, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)
	b, err := svc.CreateAccount(context.Background(), validReg("bob@example.com"))
	require.NoError(t, err)

	email := "ann@example.com"
	_, err = svc.UpdateAccount(context.Background(), b.ID, validation.ValidUpdate{Email: &email})
	require.ErrorIs(t, err, common.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAccount_Unknown(t *testing.T) {
	svc, mock, _, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	first := "X"
	_, err := svc.UpdateAccount(context.Background(), uuid.New(), validation.ValidUpdate{FirstName: &first})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	svc, mock, rm, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	a, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)
	ctx := context.Background()

	got, err := svc.Authenticate(ctx, " Ann@Example.com", "Str0ng!pass")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, wrongPw := svc.Authenticate(ctx, "ann@example.com", "Wr0ng!pass")
	_, unknown := svc.Authenticate(ctx, "nobody@example.com", "Str0ng!pass")
	require.ErrorIs(t, wrongPw, common.ErrUnauthorized)
	require.ErrorIs(t, unknown, common.ErrUnauthorized)
	assert.Equal(t, wrongPw.Error(), unknown.Error(), "errors must not reveal which part failed")

	row := rm.accounts.rows[a.ID]
	row.IsActive = false
	rm.accounts.rows[a.ID] = row
	_, err = svc.Authenticate(ctx, "ann@example.com", "Str0ng!pass")
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthenticate_StoreErrorIsNotUnauthorized(t *testing.T) {
	svc, _, rm, _ := newAccountSvc(t)
	rm.accounts.getErr = errors.New("db error: conn reset")

	_, err := svc.Authenticate(context.Background(), "ann@example.com", "Str0ng!pass")
	require.Error(t, err)
	require.NotErrorIs(t, err, common.ErrUnauthorized)
}

func TestEmailExists(t *testing.T) {
	svc, mock, _, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)

	ok, err := svc.EmailExists(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.EmailExists(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateProfile_AndAvatar(t *testing.T) {
	svc, mock, _, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)

	bio, site := "hello", "https://ann.example.com"
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	p, err := svc.UpdateProfile(context.Background(), a.ID, validation.ProfileUpdate{Bio: &bio, Website: &site, DateOfBirth: &dob})
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Bio)
	require.NotNil(t, p.Website)
	assert.Equal(t, site, *p.Website)
	assert.True(t, p.DateOfBirth.Equal(dob))

	none := ""
	p, err = svc.UpdateProfile(context.Background(), a.ID, validation.ProfileUpdate{Website: &none})
	require.NoError(t, err)
	assert.Nil(t, p.Website)
	assert.Equal(t, "hello", p.Bio, "absent fields keep their value")

	p, err = svc.SetAvatar(context.Background(), a.ID, "avatars/x")
	require.NoError(t, err)
	require.NotNil(t, p.AvatarKey)
	assert.Equal(t, "avatars/x", *p.AvatarKey)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfile_Unknown(t *testing.T) {
	svc, mock, _, _ := newAccountSvc(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	bio := "x"
	_, err := svc.UpdateProfile(context.Background(), uuid.New(), validation.ProfileUpdate{Bio: &bio})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTouchLastSeen(t *testing.T) {
	svc, mock, rm, _ := newAccountSvc(t)
	seen := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return seen }
	mock.ExpectBegin()
	mock.ExpectCommit()

	a, err := svc.CreateAccount(context.Background(), validReg("ann@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.TouchLastSeen(context.Background(), a.ID))
	require.NotNil(t, rm.profiles.rows[a.ID].LastSeen)
	assert.True(t, rm.profiles.rows[a.ID].LastSeen.Equal(seen))

	require.NoError(t, svc.TouchLastSeen(context.Background(), uuid.New()), "missing profile is ignored")
}

func TestNewAccountService_Defaults(t *testing.T) {
	db, _ := newMockDB(t)
	svc := NewAccountService(db, newFakeRepoManager(), testConfig(), nil, nil)
	assert.IsType(t, events.NopPublisher{}, svc.publisher)
	assert.NotNil(t, svc.logger)
}
