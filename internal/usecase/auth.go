package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/logger"
	"github.com/victor-wayward/ironode/internal/infra/security"
	"github.com/victor-wayward/ironode/internal/repository"
)

// AuthService authenticates local credentials and maintains the per-account
// login and fault bookkeeping.
type AuthService struct {
	accounts port.AccountRepository
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(accounts port.AccountRepository, events port.EventPublisher, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		accounts: accounts,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// AuthenticateLocal resolves the identifier and checks the password. The
// outcome is persisted before it is reported: success updates the login
// bookkeeping, failure bumps the fault counters and may disable the account
// when the lockout threshold is crossed.
func (s *AuthService) AuthenticateLocal(ctx context.Context, identifier, password string) (*domain.Account, error) {
	account, err := s.accounts.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if !account.Login.Enabled {
		return nil, ErrAccountDisabled
	}
	if account.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	matches, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !matches {
		lockedOut := account.RecordLoginFailure(now)
		if err := s.accounts.Save(ctx, account); err != nil {
			return nil, fmt.Errorf("save login failure: %w", err)
		}
		if lockedOut {
			s.logger.Warn("account locked after repeated login failures",
				zap.String("account_id", account.ID),
				zap.Int("failures", account.Login.Fault.Counter),
			)
			s.publishAccountLocked(ctx, account, now)
		}
		return nil, ErrInvalidCredentials
	}

	account.RecordLogin(now)
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save login: %w", err)
	}

	s.logger.Info("local login",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
	)

	return account, nil
}

func (s *AuthService) publishAccountLocked(ctx context.Context, account *domain.Account, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.AccountLockedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		Failures:  account.Login.Fault.Counter,
		LockedAt:  at,
	}
	if err := s.events.PublishAccountLocked(ctx, event); err != nil {
		s.logger.Warn("publish account locked event failed",
			zap.String("account_id", account.ID), zap.Error(err))
	}
}
