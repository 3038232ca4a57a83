package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/security"
)

var (
	// ErrTokenUnknownKind indicates the token carries an unrecognized prefix.
	ErrTokenUnknownKind = errors.New("unknown token kind")
	// ErrTokenMismatch indicates the token does not equal the outstanding one.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrTokenExpired indicates the outstanding token's window has elapsed.
	ErrTokenExpired = errors.New("token expired")
)

// TokenService issues and validates single-use account tokens. Each kind has
// exactly one outstanding slot on the account; issuing overwrites the previous
// token and validation compares against the stored value only.
type TokenService struct {
	accounts port.AccountRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(accounts port.AccountRepository, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		accounts: accounts,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *TokenService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Issue generates a fresh token of the given kind, stores it on the account's
// matching slot with the issue timestamp, persists the account, and returns
// the raw token for embedding in an email link.
func (s *TokenService) Issue(ctx context.Context, account *domain.Account, kind domain.TokenKind) (string, error) {
	if account == nil {
		return "", fmt.Errorf("account is required")
	}

	token, err := security.NewAccountToken(kind, account.Email)
	if err != nil {
		return "", fmt.Errorf("generate %s token: %w", kind, err)
	}

	now := s.now().UTC()
	switch kind {
	case domain.TokenRegistration:
		// Expiry anchors on Login.CreatedAt, which account creation and
		// Enable own. A resend path must restamp it before issuing.
		account.Login.AuthToken = &token
	case domain.TokenReset:
		account.Reset.AuthToken = &token
		account.Reset.CreatedAt = now
	case domain.TokenEmailChange:
		if account.NewEmail == nil {
			return "", ErrNoPendingEmail
		}
		account.NewEmail.AuthToken = &token
		account.NewEmail.CreatedAt = now
	default:
		return "", ErrTokenUnknownKind
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		return "", fmt.Errorf("save %s token: %w", kind, err)
	}

	return token, nil
}

// Validate checks a presented token against the account's outstanding token
// of the same kind. It never consumes: the flows that act on a valid token
// clear the slot themselves.
func (s *TokenService) Validate(account *domain.Account, token string) (domain.TokenKind, error) {
	kind, ok := domain.KindOfToken(token)
	if !ok {
		return 0, ErrTokenUnknownKind
	}

	var (
		stored    *string
		createdAt time.Time
	)
	switch kind {
	case domain.TokenRegistration:
		stored = account.Login.AuthToken
		createdAt = account.Login.CreatedAt
	case domain.TokenReset:
		stored = account.Reset.AuthToken
		createdAt = account.Reset.CreatedAt
	case domain.TokenEmailChange:
		if account.NewEmail == nil {
			return kind, ErrTokenMismatch
		}
		stored = account.NewEmail.AuthToken
		createdAt = account.NewEmail.CreatedAt
	}

	if stored == nil || *stored != token {
		return kind, ErrTokenMismatch
	}
	if s.now().UTC().Sub(createdAt) > domain.TokenTTL {
		return kind, ErrTokenExpired
	}

	return kind, nil
}
