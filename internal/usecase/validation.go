package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/security"
	"github.com/victor-wayward/ironode/internal/repository"
)

const minFieldLength = 6

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Per-field rejection reasons. The live validation channel surfaces these
// verbatim; submit paths only count them.
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooShort = fmt.Errorf("username must be longer than %d characters", minFieldLength-1)
	ErrUsernameInvalid  = errors.New("username may contain only lowercase letters, digits, and underscores")
	ErrUsernameTaken    = errors.New("username is already taken")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email address is not valid")
	ErrEmailTaken       = errors.New("email is already registered")
	ErrEmailUnknown     = errors.New("email is not registered")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = fmt.Errorf("password must be longer than %d characters", minFieldLength-1)
	ErrVerifyMismatch   = errors.New("passwords do not match")
	ErrNameRequired     = errors.New("name is required")
	ErrMessageRequired  = errors.New("message is required")
)

// AccountValidator checks individual form fields. Uniqueness checks go to the
// account store; everything else is pure. The live validation endpoint calls
// these directly for per-field feedback, submit flows aggregate them into a
// fault count.
type AccountValidator struct {
	accounts port.AccountRepository
}

// NewAccountValidator constructs an AccountValidator.
func NewAccountValidator(accounts port.AccountRepository) *AccountValidator {
	return &AccountValidator{accounts: accounts}
}

// Username checks format and uniqueness. selfID exempts the account's own
// current username so unchanged profile submissions pass.
func (v *AccountValidator) Username(ctx context.Context, username, selfID string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameRequired
	}
	if len(username) < minFieldLength {
		return ErrUsernameTooShort
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}

	existing, err := v.accounts.FindByUsernameOrEmail(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check username uniqueness: %w", err)
	}
	if existing.ID != selfID {
		return ErrUsernameTaken
	}
	return nil
}

// Email checks format and uniqueness, with the same self exemption.
func (v *AccountValidator) Email(ctx context.Context, email, selfID string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}

	existing, err := v.accounts.FindByUsernameOrEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check email uniqueness: %w", err)
	}
	// A federated placeholder holding this address does not block: the two
	// accounts converge when the registration token is consumed.
	if existing.ID != selfID && !existing.IsFederatedPlaceholder() {
		return ErrEmailTaken
	}
	return nil
}

// ResetEmail checks format and requires the address to be registered.
func (v *AccountValidator) ResetEmail(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}

	if _, err := v.accounts.FindByUsernameOrEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailUnknown
		}
		return fmt.Errorf("check email existence: %w", err)
	}
	return nil
}

// Password checks presence and minimum length. Strength scoring is advisory
// and reported separately via PasswordStrength.
func (v *AccountValidator) Password(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < minFieldLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Verify checks the confirmation field matches the password.
func (v *AccountValidator) Verify(password, verify string) error {
	if verify == "" || verify != password {
		return ErrVerifyMismatch
	}
	return nil
}

// PasswordStrength scores a candidate password from 0 (trivial) to 4.
func (v *AccountValidator) PasswordStrength(password string, userInputs ...string) int {
	return security.PasswordScore(password, userInputs...)
}

// ContactName checks the contact form's name field.
func (v *AccountValidator) ContactName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	return nil
}

// ContactEmail checks the contact form's email field. Format only: contact
// submissions need no account.
func (v *AccountValidator) ContactEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(strings.ToLower(email)) {
		return ErrEmailInvalid
	}
	return nil
}

// ContactMessage checks the contact form's message body.
func (v *AccountValidator) ContactMessage(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrMessageRequired
	}
	return nil
}
