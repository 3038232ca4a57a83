package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/config"
	"github.com/victor-wayward/ironode/internal/infra/logger"
	"github.com/victor-wayward/ironode/internal/infra/security"
	"github.com/victor-wayward/ironode/internal/repository"
)

const (
	// maxResetRequests caps outstanding reset requests until one is consumed.
	maxResetRequests = 10
	// resetBackoffStep is the linear backoff unit: after the nth request, the
	// next one is accepted no earlier than n*step later.
	resetBackoffStep = 60 * time.Second
)

// ResetService orchestrates the forgotten-password flow: throttled token
// issuance and completion with a new password.
type ResetService struct {
	cfg       *config.AppConfig
	accounts  port.AccountRepository
	validator *AccountValidator
	tokens    *TokenService
	mailer    port.Mailer
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewResetService constructs a ResetService.
func NewResetService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	validator *AccountValidator,
	tokens *TokenService,
	mailer port.Mailer,
	events port.EventPublisher,
	log *zap.Logger,
) *ResetService {
	if validator == nil {
		validator = NewAccountValidator(accounts)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ResetService{
		cfg:       cfg,
		accounts:  accounts,
		validator: validator,
		tokens:    tokens,
		mailer:    mailer,
		events:    events,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *ResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Request issues a reset token for the address and mails the link. Requests
// are throttled per account: at most maxResetRequests outstanding, and each
// request pushes the next one out by another backoff step. The counter only
// resets when a token is consumed.
func (s *ResetService) Request(ctx context.Context, email, locale string) error {
	if err := s.validator.ResetEmail(ctx, email); err != nil {
		return err
	}

	account, err := s.accounts.FindByUsernameOrEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if !account.Login.Enabled {
		return ErrAccountDisabled
	}

	now := s.now().UTC()
	if account.Reset.Counter > maxResetRequests {
		s.logger.Warn("password reset budget exhausted",
			zap.String("account_id", account.ID),
			zap.Int("requests", account.Reset.Counter),
		)
		return ErrTooManyResets
	}
	if account.Reset.Counter > 0 {
		wait := time.Duration(account.Reset.Counter) * resetBackoffStep
		if elapsed := now.Sub(account.Reset.CreatedAt); elapsed < wait {
			return ErrResetTooSoon
		}
	}

	account.Reset.Counter++
	if _, err := s.tokens.Issue(ctx, account, domain.TokenReset); err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	if err := s.mailer.Send(ctx, account, port.TemplateReset, locale); err != nil {
		s.logger.Error("reset email dispatch failed",
			zap.String("account_id", account.ID),
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err),
		)
		return ErrEmailDispatch
	}

	s.logger.Info("password reset requested",
		zap.String("account_id", account.ID),
		zap.Int("request_count", account.Reset.Counter),
	)
	s.publishResetRequested(ctx, account, now)

	return nil
}

// CompletePassword stores a new password for the account, consuming the
// outstanding reset token and zeroing the request counter. An account that
// gathered its last missing credential here is flipped to enabled.
func (s *ResetService) CompletePassword(ctx context.Context, username, password, verify string) (*domain.Account, error) {
	faults := 0
	for _, err := range []error{
		s.validator.Password(password),
		s.validator.Verify(password, verify),
	} {
		if err != nil {
			faults++
		}
	}
	if faults > 0 {
		return nil, ErrValidation
	}

	account, err := s.accounts.FindByUsernameOrEmail(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := security.HashPassword(password, s.cfg.Register.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account.SetPassword(hash)
	account.LateEnable(now)

	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save new password: %w", err)
	}

	s.logger.Info("password reset completed", zap.String("account_id", account.ID))
	s.publishPasswordChanged(ctx, account, now, true)

	return account, nil
}

func (s *ResetService) publishResetRequested(ctx context.Context, account *domain.Account, at time.Time) {
	if s.events == nil {
		return
	}
	event := domain.PasswordResetRequestedEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		RequestedAt:  at,
		RequestCount: account.Reset.Counter,
		MaskedEmail:  logger.MaskEmail(account.Email),
		ExpiresAt:    at.Add(domain.TokenTTL),
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("publish reset requested event failed",
			zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *ResetService) publishPasswordChanged(ctx context.Context, account *domain.Account, at time.Time, viaToken bool) {
	if s.events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		ChangedAt: at,
		ViaToken:  viaToken,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed",
			zap.String("account_id", account.ID), zap.Error(err))
	}
}
