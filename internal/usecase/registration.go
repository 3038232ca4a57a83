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

// RegistrationService orchestrates account creation and activation.
type RegistrationService struct {
	cfg       *config.AppConfig
	accounts  port.AccountRepository
	validator *AccountValidator
	tokens    *TokenService
	identity  *IdentityService
	mailer    port.Mailer
	captcha   port.CaptchaVerifier
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
	ids       func() string
}

// RegisterInput carries a registration form submission.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	Verify          string
	CaptchaResponse string
	Locale          string
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	validator *AccountValidator,
	tokens *TokenService,
	identity *IdentityService,
	mailer port.Mailer,
	captcha port.CaptchaVerifier,
	events port.EventPublisher,
	log *zap.Logger,
) *RegistrationService {
	if validator == nil {
		validator = NewAccountValidator(accounts)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		cfg:       cfg,
		accounts:  accounts,
		validator: validator,
		tokens:    tokens,
		identity:  identity,
		mailer:    mailer,
		captcha:   captcha,
		events:    events,
		logger:    log,
		now:       time.Now,
		ids:       uuid.NewString,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithIDGenerator allows tests to override account id generation.
func (s *RegistrationService) WithIDGenerator(ids func() string) {
	if ids != nil {
		s.ids = ids
	}
}

// Register validates the submission and creates the account. With email
// confirmation on, the account stays disabled and a registration token is
// mailed; the account becomes usable only when the token is consumed. With
// confirmation off, the account is enabled immediately.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if username == "" && email == "" && input.Password == "" && input.Verify == "" {
		return nil, ErrBlankForm
	}

	faults := 0
	for _, err := range []error{
		s.validator.Username(ctx, username, ""),
		s.validator.Email(ctx, email, ""),
		s.validator.Password(input.Password),
		s.validator.Verify(input.Password, input.Verify),
	} {
		if err != nil {
			faults++
		}
	}
	if faults > 0 {
		s.logger.Debug("registration rejected", zap.Int("faults", faults))
		return nil, ErrValidation
	}

	if err := s.verifyCaptcha(ctx, input.CaptchaResponse); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.cfg.Register.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.NewAccount(s.ids(), username, email, hash, now)
	confirm := s.cfg.Register.ConfirmEmail
	account.Login.Enabled = !confirm

	if err := s.accounts.Save(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrValidation
		}
		return nil, fmt.Errorf("save account: %w", err)
	}

	if confirm {
		if _, err := s.tokens.Issue(ctx, account, domain.TokenRegistration); err != nil {
			return nil, fmt.Errorf("issue registration token: %w", err)
		}
		if err := s.mailer.Send(ctx, account, port.TemplateRegister, input.Locale); err != nil {
			s.logger.Error("registration email dispatch failed",
				zap.String("account_id", account.ID),
				zap.String("email", logger.MaskEmail(account.Email)),
				zap.Error(err),
			)
			return nil, ErrEmailDispatch
		}
	}

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("username", account.Username),
		zap.Bool("confirmation_pending", confirm),
	)
	s.publishRegistered(ctx, account, confirm, now)

	return account, nil
}

// Activate consumes a validated registration token: the account is enabled,
// any federated placeholder with the same email is folded in, and the result
// is persisted before success is reported.
func (s *RegistrationService) Activate(ctx context.Context, account *domain.Account) error {
	merged, err := s.identity.Enable(ctx, account)
	if err != nil {
		return err
	}

	s.logger.Info("account activated",
		zap.String("account_id", account.ID),
		zap.Bool("merged", merged),
	)
	s.publishActivated(ctx, account, merged)

	return nil
}

func (s *RegistrationService) verifyCaptcha(ctx context.Context, response string) error {
	if s.captcha == nil || !s.cfg.Captcha.Enabled {
		return nil
	}
	if err := s.captcha.Verify(ctx, response); err != nil {
		s.logger.Debug("captcha verification failed", zap.Error(err))
		return ErrCaptchaRejected
	}
	return nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, account *domain.Account, confirm bool, at time.Time) {
	if s.events == nil {
		return
	}
	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Username:     account.Username,
		Email:        logger.MaskEmail(account.Email),
		Confirmation: confirm,
		RegisteredAt: at,
		Method:       "local",
	}
	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("publish account registered event failed",
			zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *RegistrationService) publishActivated(ctx context.Context, account *domain.Account, merged bool) {
	if s.events == nil {
		return
	}
	event := domain.AccountActivatedEvent{
		EventID:     uuid.NewString(),
		AccountID:   account.ID,
		Username:    account.Username,
		ActivatedAt: s.now().UTC(),
		Merged:      merged,
	}
	if err := s.events.PublishAccountActivated(ctx, event); err != nil {
		s.logger.Warn("publish account activated event failed",
			zap.String("account_id", account.ID), zap.Error(err))
	}
}
