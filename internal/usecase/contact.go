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
)

// ContactService accepts contact form submissions into an append-only log.
type ContactService struct {
	cfg       *config.AppConfig
	messages  port.MessageRepository
	validator *AccountValidator
	captcha   port.CaptchaVerifier
	logger    *zap.Logger
	now       func() time.Time
	ids       func() string
}

// ContactInput carries a contact form submission.
type ContactInput struct {
	Name            string
	Email           string
	Message         string
	CaptchaResponse string
}

// NewContactService constructs a ContactService.
func NewContactService(
	cfg *config.AppConfig,
	messages port.MessageRepository,
	validator *AccountValidator,
	captcha port.CaptchaVerifier,
	log *zap.Logger,
) *ContactService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactService{
		cfg:       cfg,
		messages:  messages,
		validator: validator,
		captcha:   captcha,
		logger:    log,
		now:       time.Now,
		ids:       uuid.NewString,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *ContactService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Submit validates and records a contact message. Entirely blank submissions
// are dropped without touching the store.
func (s *ContactService) Submit(ctx context.Context, input ContactInput) error {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	body := strings.TrimSpace(input.Message)

	if name == "" && email == "" && body == "" {
		return ErrBlankForm
	}

	faults := 0
	for _, err := range []error{
		s.validator.ContactName(name),
		s.validator.ContactEmail(email),
		s.validator.ContactMessage(body),
	} {
		if err != nil {
			faults++
		}
	}
	if faults > 0 {
		return ErrValidation
	}

	if s.captcha != nil && s.cfg.Captcha.Enabled {
		if err := s.captcha.Verify(ctx, input.CaptchaResponse); err != nil {
			s.logger.Debug("contact captcha verification failed", zap.Error(err))
			return ErrCaptchaRejected
		}
	}

	message := domain.ContactMessage{
		ID:        s.ids(),
		Name:      name,
		Email:     strings.ToLower(email),
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.Append(ctx, message); err != nil {
		return fmt.Errorf("append contact message: %w", err)
	}

	s.logger.Info("contact message recorded", zap.String("message_id", message.ID))
	return nil
}
