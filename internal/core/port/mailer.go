package port

import (
	"context"

	"github.com/victor-wayward/ironode/internal/core/domain"
)

// TemplateKind selects the outbound email template. It determines which token
// field and recipient address are used: newemail goes to the pending address,
// the others to the primary email.
type TemplateKind string

const (
	TemplateRegister TemplateKind = "register"
	TemplateReset    TemplateKind = "reset"
	TemplateNewEmail TemplateKind = "newemail"
)

// Mailer dispatches lifecycle emails. Delivery mechanics are external to the
// core; implementations embed the account's outstanding token in a
// /token/:username/:token link. Locale is request-scoped.
type Mailer interface {
	Send(ctx context.Context, account *domain.Account, kind TemplateKind, locale string) error
}
