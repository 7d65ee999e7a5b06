// Package validation checks registration, account update and profile input
// before anything reaches the store. Every violated rule is reported, not
// just the first.
package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// EmailChecker answers whether a normalized email is already registered.
type EmailChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// EmailCheckerFunc adapts a function to EmailChecker.
type EmailCheckerFunc func(ctx context.Context, email string) (bool, error)

func (f EmailCheckerFunc) EmailExists(ctx context.Context, email string) (bool, error) {
	return f(ctx, email)
}

type RegistrationInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
	FirstName            string
	LastName             string
	PhoneNumber          *string
}

// ValidRegistration is registration input that passed every rule.
// Email is normalized; the confirmation is dropped.
type ValidRegistration struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber *string
}

// AccountUpdate carries a partial change. Nil fields are left untouched.
// An empty PhoneNumber clears the stored phone.
type AccountUpdate struct {
	Email                *string
	Password             *string
	PasswordConfirmation *string
	FirstName            *string
	LastName             *string
	PhoneNumber          *string
}

type ValidUpdate struct {
	Email       *string
	Password    *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
}

// ProfileUpdate is a partial change to the optional profile attributes.
type ProfileUpdate struct {
	Bio         *string
	DateOfBirth *time.Time
	Address     *string
	Country     *string
	Website     *string
}

type Validator struct {
	emails EmailChecker
	now    func() time.Time
}

func NewValidator(emails EmailChecker) *Validator {
	return &Validator{emails: emails, now: time.Now}
}

// ValidateRegistration applies all registration rules. A failed rule yields a
// *ValidationError; a failed email lookup is returned as is.
func (v *Validator) ValidateRegistration(ctx context.Context, in RegistrationInput) (ValidRegistration, error) {
	verr := &ValidationError{}
	email := NormalizeEmail(in.Email)

	if err := v.checkEmail(ctx, verr, email, ""); err != nil {
		return ValidRegistration{}, err
	}

	switch {
	case in.Password == "":
		verr.Add("password", msgRequired)
	default:
		for _, msg := range PasswordViolations(in.Password) {
			verr.Add("password", msg)
		}
	}
	switch {
	case in.PasswordConfirmation == "":
		verr.Add("password_confirmation", msgRequired)
	case in.Password != "" && in.Password != in.PasswordConfirmation:
		verr.Add("password_confirmation", msgPasswordsDiffer)
	}

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	checkName(verr, "first_name", firstName)
	checkName(verr, "last_name", lastName)

	phone := trimPtr(in.PhoneNumber)
	if phone != nil && *phone == "" {
		phone = nil
	}
	if phone != nil && !validPhone(*phone) {
		verr.Add("phone_number", msgPhoneInvalid)
	}

	if err := verr.Err(); err != nil {
		return ValidRegistration{}, err
	}
	return ValidRegistration{
		Email:       email,
		Password:    in.Password,
		FirstName:   firstName,
		LastName:    lastName,
		PhoneNumber: phone,
	}, nil
}

// ValidateUpdate checks only the supplied fields. The uniqueness rule skips
// the account's own current email.
func (v *Validator) ValidateUpdate(ctx context.Context, existing *models.Account, in AccountUpdate) (ValidUpdate, error) {
	verr := &ValidationError{}
	out := ValidUpdate{}

	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if err := v.checkEmail(ctx, verr, email, existing.Email); err != nil {
			return ValidUpdate{}, err
		}
		out.Email = &email
	}

	if in.Password != nil || in.PasswordConfirmation != nil {
		switch {
		case in.Password == nil || *in.Password == "":
			verr.Add("password", msgRequired)
		default:
			for _, msg := range PasswordViolations(*in.Password) {
				verr.Add("password", msg)
			}
		}
		switch {
		case in.PasswordConfirmation == nil || *in.PasswordConfirmation == "":
			verr.Add("password_confirmation", msgRequired)
		case in.Password != nil && *in.Password != *in.PasswordConfirmation:
			verr.Add("password_confirmation", msgPasswordsDiffer)
		}
		out.Password = in.Password
	}

	if in.FirstName != nil {
		out.FirstName = trimPtr(in.FirstName)
		checkName(verr, "first_name", *out.FirstName)
	}
	if in.LastName != nil {
		out.LastName = trimPtr(in.LastName)
		checkName(verr, "last_name", *out.LastName)
	}
	if in.PhoneNumber != nil {
		out.PhoneNumber = trimPtr(in.PhoneNumber)
		if *out.PhoneNumber != "" && !validPhone(*out.PhoneNumber) {
			verr.Add("phone_number", msgPhoneInvalid)
		}
	}

	if err := verr.Err(); err != nil {
		return ValidUpdate{}, err
	}
	return out, nil
}

// ValidateProfile checks the supplied profile attributes.
func (v *Validator) ValidateProfile(in ProfileUpdate) error {
	verr := &ValidationError{}

	if in.DateOfBirth != nil && in.DateOfBirth.After(v.now()) {
		verr.Add("date_of_birth", "date of birth cannot be in the future")
	}
	if in.Address != nil && tooLong(*in.Address, MaxAddressLength) {
		verr.Add("address", fmt.Sprintf("ensure this field has no more than %d characters", MaxAddressLength))
	}
	if in.Country != nil && tooLong(*in.Country, MaxCountryLength) {
		verr.Add("country", fmt.Sprintf("ensure this field has no more than %d characters", MaxCountryLength))
	}
	if in.Website != nil && *in.Website != "" && !validWebsite(*in.Website) {
		verr.Add("website", "enter a valid URL")
	}

	return verr.Err()
}

// checkEmail records format and uniqueness violations. current is the
// account's own email on update, "" on registration.
func (v *Validator) checkEmail(ctx context.Context, verr *ValidationError, email, current string) error {
	if email == "" {
		verr.Add("email", msgRequired)
		return nil
	}
	if !validEmailFormat(email) {
		verr.Add("email", msgEmailInvalid)
		return nil
	}
	if current != "" && email == NormalizeEmail(current) {
		return nil
	}

	taken, err := v.emails.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("email lookup: %w", err)
	}
	if taken {
		verr.Add("email", msgEmailTaken)
	}
	return nil
}

func checkName(verr *ValidationError, field, value string) {
	if tooLong(value, MaxNameLength) {
		verr.Add(field, fmt.Sprintf("ensure this field has no more than %d characters", MaxNameLength))
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
