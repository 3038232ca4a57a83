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
	"github.com/victor-wayward/ironode/internal/repository"
)

// IdentityService resolves federated assertions onto accounts and owns the
// enable transition, including the merge of placeholder accounts created by
// earlier federated logins against the same email.
type IdentityService struct {
	accounts port.AccountRepository
	logger   *zap.Logger
	now      func() time.Time
	ids      func() string
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(accounts port.AccountRepository, log *zap.Logger) *IdentityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityService{
		accounts: accounts,
		logger:   log,
		now:      time.Now,
		ids:      uuid.NewString,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *IdentityService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithIDGenerator allows tests to override account id generation.
func (s *IdentityService) WithIDGenerator(ids func() string) {
	if ids != nil {
		s.ids = ids
	}
}

// ResolveFederated maps a provider assertion to an account. An existing
// account (matched by provider id, primary email, or another provider's
// email) gets its sub-record refreshed; otherwise a disabled placeholder
// account is created. The second return reports creation.
func (s *IdentityService) ResolveFederated(ctx context.Context, profile domain.FederatedProfile) (*domain.Account, bool, error) {
	if profile.Provider == "" {
		return nil, false, fmt.Errorf("provider is required")
	}
	if profile.ExternalID == "" && profile.Email == "" {
		return nil, false, fmt.Errorf("assertion carries neither id nor email")
	}

	now := s.now().UTC()
	account, err := s.accounts.FindByFederatedIdentity(ctx, profile.Provider, profile.ExternalID, []string{profile.Email})
	if err == nil {
		account.RecordFederatedLogin(profile, now)
		if err := s.accounts.Save(ctx, account); err != nil {
			return nil, false, fmt.Errorf("save federated login: %w", err)
		}
		s.logger.Info("federated login",
			zap.String("account_id", account.ID),
			zap.String("provider", string(profile.Provider)),
		)
		return account, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup federated identity: %w", err)
	}

	account = domain.NewFederatedAccount(s.ids(), profile, now)
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, false, fmt.Errorf("save federated placeholder: %w", err)
	}
	s.logger.Info("federated placeholder created",
		zap.String("account_id", account.ID),
		zap.String("provider", string(profile.Provider)),
		zap.String("email", logger.MaskEmail(account.Email)),
	)
	return account, true, nil
}

// Enable activates local login on the account, folding in any placeholder
// account another provider created for the same email. The merge lookup and
// the save both complete before success is reported. The return reports
// whether a placeholder was merged.
func (s *IdentityService) Enable(ctx context.Context, account *domain.Account) (bool, error) {
	account.Enable(s.now().UTC())

	merged := false
	if account.Email != "" {
		placeholder, err := s.accounts.RemoveFederatedPlaceholder(ctx, account.Email, account.ID)
		switch {
		case err == nil:
			account.AbsorbSocial(placeholder)
			merged = true
			s.logger.Info("federated placeholder merged",
				zap.String("account_id", account.ID),
				zap.String("placeholder_id", placeholder.ID),
			)
		case errors.Is(err, repository.ErrNotFound):
		default:
			return false, fmt.Errorf("merge federated placeholder: %w", err)
		}
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		return false, fmt.Errorf("save enabled account: %w", err)
	}

	return merged, nil
}
