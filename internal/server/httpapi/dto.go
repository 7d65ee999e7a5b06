package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"github.com/google/uuid"
)

type registerRequest struct {
	Email                string  `json:"email"`
	Password             string  `json:"password"`
	PasswordConfirmation string  `json:"password_confirmation"`
	FirstName            string  `json:"first_name"`
	LastName             string  `json:"last_name"`
	PhoneNumber          *string `json:"phone_number"`
}

func (r registerRequest) input() validation.RegistrationInput {
	return validation.RegistrationInput{
		Email:                r.Email,
		Password:             r.Password,
		PasswordConfirmation: r.PasswordConfirmation,
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		PhoneNumber:          r.PhoneNumber,
	}
}

type registerResponse struct {
	AccountID   uuid.UUID `json:"account_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// required reports missing fields the way the validator does.
func (r loginRequest) required() error {
	verr := &validation.ValidationError{}
	if strings.TrimSpace(r.Email) == "" {
		verr.Add("email", "this field is required")
	}
	if r.Password == "" {
		verr.Add("password", "this field is required")
	}
	return verr.Err()
}

type loginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccountID    uuid.UUID `json:"account_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type tokenInfoResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type accountUpdateRequest struct {
	Email                *string `json:"email"`
	Password             *string `json:"password"`
	PasswordConfirmation *string `json:"password_confirmation"`
	FirstName            *string `json:"first_name"`
	LastName             *string `json:"last_name"`
	PhoneNumber          *string `json:"phone_number"`
}

func (r accountUpdateRequest) input() validation.AccountUpdate {
	return validation.AccountUpdate{
		Email:                r.Email,
		Password:             r.Password,
		PasswordConfirmation: r.PasswordConfirmation,
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		PhoneNumber:          r.PhoneNumber,
	}
}

type accountResponse struct {
	AccountID   uuid.UUID `json:"account_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	PhoneNumber *string   `json:"phone_number"`
	IsActive    bool      `json:"is_active"`
	IsStaff     bool      `json:"is_staff"`
	DateJoined  time.Time `json:"date_joined"`
}

func newAccountResponse(a *models.Account) accountResponse {
	return accountResponse{
		AccountID:   a.ID,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		PhoneNumber: a.PhoneNumber,
		IsActive:    a.IsActive,
		IsStaff:     a.IsStaff,
		DateJoined:  a.CreatedAt,
	}
}

type profileUpdateRequest struct {
	Bio         *string `json:"bio"`
	DateOfBirth *string `json:"date_of_birth"`
	Address     *string `json:"address"`
	Country     *string `json:"country"`
	Website     *string `json:"website"`
}

// input parses date_of_birth as YYYY-MM-DD.
func (r profileUpdateRequest) input() (validation.ProfileUpdate, error) {
	in := validation.ProfileUpdate{
		Bio:     r.Bio,
		Address: r.Address,
		Country: r.Country,
		Website: r.Website,
	}
	if r.DateOfBirth != nil {
		dob, err := time.Parse(time.DateOnly, *r.DateOfBirth)
		if err != nil {
			return in, validation.NewFieldError("date_of_birth", "date has wrong format, use YYYY-MM-DD")
		}
		in.DateOfBirth = &dob
	}
	return in, nil
}

type profileResponse struct {
	AccountID   uuid.UUID  `json:"account_id"`
	Bio         string     `json:"bio"`
	DateOfBirth *string    `json:"date_of_birth"`
	Address     string     `json:"address"`
	Country     string     `json:"country"`
	Website     *string    `json:"website"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	LastSeen    *time.Time `json:"last_seen"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newProfileResponse(v *services.ProfileView) profileResponse {
	p := v.Profile
	resp := profileResponse{
		AccountID: p.AccountID,
		Bio:       p.Bio,
		Address:   p.Address,
		Country:   p.Country,
		Website:   p.Website,
		AvatarURL: v.AvatarURL,
		LastSeen:  p.LastSeen,
		UpdatedAt: p.UpdatedAt,
	}
	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format(time.DateOnly)
		resp.DateOfBirth = &dob
	}
	return resp
}

type avatarUploadResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
	ExpiresIn int    `json:"expires_in"`
}
