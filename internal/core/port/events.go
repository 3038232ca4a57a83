package port

import (
	"context"

	"github.com/victor-wayward/ironode/internal/core/domain"
)

// EventPublisher publishes account lifecycle events to the message bus.
// Publish failures are observability losses, never flow failures.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishAccountActivated(ctx context.Context, event domain.AccountActivatedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishEmailChanged(ctx context.Context, event domain.EmailChangedEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
}
