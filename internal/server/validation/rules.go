package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 150
	MaxEmailLength    = 254
	MaxAddressLength  = 255
	MaxCountryLength  = 50
	MaxWebsiteLength  = 200

	// symbols accepted by the password policy
	passwordSymbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

const (
	msgRequired        = "this field is required"
	msgEmailInvalid    = "enter a valid email address"
	msgEmailTaken      = "account with this email already exists"
	msgPhoneInvalid    = "phone number must be entered in the format: '+999999999'. Up to 15 digits allowed."
	msgPasswordsDiffer = "passwords do not match"
)

var phoneRe = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// NormalizeEmail trims and lower-cases an address so that lookups and the
// uniqueness rule are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmailFormat(email string) bool {
	if email == "" || len(email) > MaxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// PasswordViolations returns every policy rule pw breaks, in a fixed order.
func PasswordViolations(pw string) []string {
	var (
		out                          []string
		hasUpper, hasLower, hasDigit bool
		hasSymbol                    bool
	)

	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if utf8.RuneCountInString(pw) < MinPasswordLength {
		out = append(out, fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}
	if len(pw) > cryptox.MaxPasswordBytes {
		out = append(out, fmt.Sprintf("password must be at most %d bytes long", cryptox.MaxPasswordBytes))
	}
	if !hasUpper {
		out = append(out, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		out = append(out, "password must contain at least one lowercase letter")
	}
	if !hasDigit {
		out = append(out, "password must contain at least one digit")
	}
	if !hasSymbol {
		out = append(out, "password must contain at least one special character")
	}
	return out
}

func validPhone(p string) bool {
	return phoneRe.MatchString(p)
}

func validWebsite(raw string) bool {
	if len(raw) > MaxWebsiteLength {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}
