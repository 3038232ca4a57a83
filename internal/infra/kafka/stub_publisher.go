package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/domain"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.logEvent("account.registered", event.AccountID, event.RegisteredAt, map[string]any{
		"username":              event.Username,
		"confirmation_required": event.Confirmation,
		"method":                event.Method,
	})
	return nil
}

func (p *StubPublisher) PublishAccountActivated(_ context.Context, event domain.AccountActivatedEvent) error {
	p.logEvent("account.activated", event.AccountID, event.ActivatedAt, map[string]any{
		"username":           event.Username,
		"placeholder_merged": event.Merged,
	})
	return nil
}

func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.logEvent("account.password.reset_requested", event.AccountID, event.RequestedAt, map[string]any{
		"request_count": event.RequestCount,
		"masked_email":  event.MaskedEmail,
		"expires_at":    event.ExpiresAt,
	})
	return nil
}

func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("account.password.changed", event.AccountID, event.ChangedAt, map[string]any{
		"via_token": event.ViaToken,
	})
	return nil
}

func (p *StubPublisher) PublishEmailChanged(_ context.Context, event domain.EmailChangedEvent) error {
	p.logEvent("account.email.changed", event.AccountID, event.ChangedAt, map[string]any{
		"masked_email": event.MaskedEmail,
		"confirmed":    event.Confirmed,
	})
	return nil
}

func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.logEvent("account.locked", event.AccountID, event.LockedAt, map[string]any{
		"failures": event.Failures,
	})
	return nil
}
