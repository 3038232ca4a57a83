package email

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/logger"
)

// ErrUnknownTemplate indicates an unsupported template kind.
var ErrUnknownTemplate = errors.New("email: unknown template kind")

// ErrNoToken indicates the account has no outstanding token for the template.
var ErrNoToken = errors.New("email: no outstanding token for template")

// Dispatch is the resolved payload handed to delivery: which address gets
// which token link. Delivery mechanics live outside the core.
type Dispatch struct {
	Recipient string
	Username  string
	Link      string
	Template  port.TemplateKind
	Locale    string
}

// Resolve maps a template kind to the account's token field and recipient
// address: newemail goes to the pending address, register and reset to the
// primary email. The link embeds the token as /token/:username/:token.
func Resolve(account *domain.Account, kind port.TemplateKind, siteURL, locale string) (Dispatch, error) {
	var token *string
	recipient := account.Email

	switch kind {
	case port.TemplateRegister:
		token = account.Login.AuthToken
	case port.TemplateReset:
		token = account.Reset.AuthToken
	case port.TemplateNewEmail:
		if account.NewEmail == nil {
			return Dispatch{}, ErrNoToken
		}
		token = account.NewEmail.AuthToken
		recipient = account.NewEmail.Email
	default:
		return Dispatch{}, ErrUnknownTemplate
	}

	if token == nil || *token == "" {
		return Dispatch{}, ErrNoToken
	}

	return Dispatch{
		Recipient: recipient,
		Username:  account.Username,
		Link:      fmt.Sprintf("%s/token/%s/%s", siteURL, account.Username, *token),
		Template:  kind,
		Locale:    locale,
	}, nil
}

// LoggingMailer records dispatch events through structured logging without
// delivering them. Used in development and as the default when no delivery
// backend is configured.
type LoggingMailer struct {
	siteURL string
	logger  *zap.Logger
}

// NewLoggingMailer constructs a mailer backed by structured logging.
func NewLoggingMailer(siteURL string, log *zap.Logger) *LoggingMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingMailer{siteURL: siteURL, logger: log}
}

// Send implements port.Mailer.
func (m *LoggingMailer) Send(_ context.Context, account *domain.Account, kind port.TemplateKind, locale string) error {
	dispatch, err := Resolve(account, kind, m.siteURL, locale)
	if err != nil {
		return err
	}

	m.logger.Info("dispatch email",
		zap.String("template", string(dispatch.Template)),
		zap.String("recipient", logger.MaskEmail(dispatch.Recipient)),
		zap.String("username", dispatch.Username),
		zap.String("locale", dispatch.Locale),
		zap.String("link", dispatch.Link),
	)

	return nil
}
