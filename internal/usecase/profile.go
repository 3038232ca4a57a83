package usecase

import (
	"context"
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
)

// ProfileService mutates an authenticated account: identity fields, password,
// display profile, address, and avatar.
type ProfileService struct {
	cfg       *config.AppConfig
	accounts  port.AccountRepository
	validator *AccountValidator
	tokens    *TokenService
	mailer    port.Mailer
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	validator *AccountValidator,
	tokens *TokenService,
	mailer port.Mailer,
	events port.EventPublisher,
	log *zap.Logger,
) *ProfileService {
	if validator == nil {
		validator = NewAccountValidator(accounts)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileService{
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
func (s *ProfileService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// UpdateAccount changes username and email. A username change keeps the old
// value in history. With email confirmation on, an email change is parked as
// pending and a confirmation token is mailed to the new address; with it off,
// the change applies immediately. Either path may complete a partially
// registered account and flip it to enabled.
func (s *ProfileService) UpdateAccount(ctx context.Context, account *domain.Account, username, email, locale string) error {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	faults := 0
	for _, err := range []error{
		s.validator.Username(ctx, username, account.ID),
		s.validator.Email(ctx, email, account.ID),
	} {
		if err != nil {
			faults++
		}
	}
	if faults > 0 {
		return ErrValidation
	}

	now := s.now().UTC()
	account.RenameUsername(username)

	emailChanged := email != account.Email
	confirm := emailChanged && s.cfg.Register.ConfirmEmail

	if emailChanged && !confirm {
		account.ChangeEmailNow(email)
	}

	if confirm {
		counter := 0
		if account.NewEmail != nil {
			counter = account.NewEmail.Counter
		}
		account.NewEmail = &domain.PendingEmailChange{
			Email:   email,
			Counter: counter + 1,
		}
	}

	account.LateEnable(now)

	if confirm {
		// Issue persists the whole account, covering the rename as well.
		if _, err := s.tokens.Issue(ctx, account, domain.TokenEmailChange); err != nil {
			return fmt.Errorf("issue email change token: %w", err)
		}
		if err := s.mailer.Send(ctx, account, port.TemplateNewEmail, locale); err != nil {
			s.logger.Error("email change dispatch failed",
				zap.String("account_id", account.ID),
				zap.String("email", logger.MaskEmail(email)),
				zap.Error(err),
			)
			return ErrEmailDispatch
		}
	} else {
		if err := s.accounts.Save(ctx, account); err != nil {
			return fmt.Errorf("save account: %w", err)
		}
	}

	if emailChanged && !confirm {
		s.publishEmailChanged(ctx, account, now, false)
	}

	s.logger.Info("account updated",
		zap.String("account_id", account.ID),
		zap.Bool("email_confirmation_pending", confirm),
	)
	return nil
}

// ApplyPendingEmail consumes a validated email change token: the pending
// address becomes primary, the old one goes into history, and a partially
// registered account may flip to enabled.
func (s *ProfileService) ApplyPendingEmail(ctx context.Context, account *domain.Account) error {
	if !account.ApplyPendingEmail() {
		return ErrNoPendingEmail
	}

	now := s.now().UTC()
	account.LateEnable(now)

	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save email change: %w", err)
	}

	s.logger.Info("email change applied", zap.String("account_id", account.ID))
	s.publishEmailChanged(ctx, account, now, true)
	return nil
}

// UpdatePassword stores a new password for an authenticated account.
func (s *ProfileService) UpdatePassword(ctx context.Context, account *domain.Account, password, verify string) error {
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
		return ErrValidation
	}

	hash, err := security.HashPassword(password, s.cfg.Register.HashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account.SetPassword(hash)
	account.LateEnable(now)

	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save new password: %w", err)
	}

	s.logger.Info("password updated", zap.String("account_id", account.ID))
	s.publishPasswordChanged(ctx, account, now)
	return nil
}

// UpdateProfile stores the display name fields.
func (s *ProfileService) UpdateProfile(ctx context.Context, account *domain.Account, givenName, familyName string) error {
	account.Profile.GivenName = strings.TrimSpace(givenName)
	account.Profile.FamilyName = strings.TrimSpace(familyName)

	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// UpdateAddress stores the postal address fields.
func (s *ProfileService) UpdateAddress(ctx context.Context, account *domain.Account, address domain.Address) error {
	account.Address = address

	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save address: %w", err)
	}
	return nil
}

// SetAvatar records the path of an uploaded avatar. The verification flag
// drops until moderation re-approves the new image.
func (s *ProfileService) SetAvatar(ctx context.Context, account *domain.Account, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = domain.DefaultAvatarPath
	}
	account.SetAvatar(path)

	if err := s.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save avatar: %w", err)
	}
	return nil
}

func (s *ProfileService) publishEmailChanged(ctx context.Context, account *domain.Account, at time.Time, confirmed bool) {
	if s.events == nil {
		return
	}
	event := domain.EmailChangedEvent{
		EventID:     uuid.NewString(),
		AccountID:   account.ID,
		MaskedEmail: logger.MaskEmail(account.Email),
		ChangedAt:   at,
		Confirmed:   confirmed,
	}
	if err := s.events.PublishEmailChanged(ctx, event); err != nil {
		s.logger.Warn("publish email changed event failed",
			zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *ProfileService) publishPasswordChanged(ctx context.Context, account *domain.Account, at time.Time) {
	if s.events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		ChangedAt: at,
		ViaToken:  false,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed",
			zap.String("account_id", account.ID), zap.Error(err))
	}
}
