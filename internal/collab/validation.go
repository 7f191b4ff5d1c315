package collab

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/voralek/sessguard/internal/core/domain"
)

// Validator screens registration and login input before it reaches
// the stores.
type Validator interface {
	ValidateUsername(username string) error
	ValidateEmail(email string) error
	ValidatePassword(password string) error
}

const (
	minUsernameLength = 3
	maxUsernameLength = 32
	minPasswordLength = 10
	maxPasswordLength = 128
)

// CredentialPolicy is the default Validator.
type CredentialPolicy struct{}

// NewCredentialPolicy returns the default credential policy.
func NewCredentialPolicy() *CredentialPolicy {
	return &CredentialPolicy{}
}

// ValidateUsername accepts 3-32 characters of letters, digits,
// dots, dashes and underscores, starting with a letter or digit.
func (CredentialPolicy) ValidateUsername(username string) error {
	if username == "" {
		return domain.ErrMissingArgument.WithDetails("username")
	}
	if len(username) < minUsernameLength || len(username) > maxUsernameLength {
		return domain.ErrUserValidation.WithDetails("username must be 3-32 characters")
	}

	for i, r := range username {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
		case i > 0 && (r == '.' || r == '-' || r == '_'):
		default:
			return domain.ErrUserValidation.WithDetails("username contains invalid characters")
		}
	}
	return nil
}

// ValidateEmail requires a single RFC 5322 address with no display name.
func (CredentialPolicy) ValidateEmail(email string) error {
	if email == "" {
		return domain.ErrMissingArgument.WithDetails("email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.ErrUserValidation.WithDetails("invalid email address")
	}
	return nil
}

// ValidatePassword requires length bounds plus at least one letter
// and one digit. Character-class zoo rules are deliberately avoided;
// length does most of the work.
func (CredentialPolicy) ValidatePassword(password string) error {
	if password == "" {
		return domain.ErrMissingArgument.WithDetails("password")
	}
	if len(password) < minPasswordLength {
		return domain.ErrUserValidation.WithDetails("password must be at least 10 characters")
	}
	if len(password) > maxPasswordLength {
		return domain.ErrUserValidation.WithDetails("password must be at most 128 characters")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return domain.ErrUserValidation.WithDetails("password needs at least one letter and one digit")
	}
	if strings.TrimSpace(password) != password {
		return domain.ErrUserValidation.WithDetails("password may not start or end with whitespace")
	}
	return nil
}
