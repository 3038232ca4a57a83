package domain

import "time"

// AccountRegisteredEvent is emitted after a registration persists.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	Username     string
	Email        string
	Confirmation bool
	RegisteredAt time.Time
	Method       string
	Metadata     map[string]any
}

// AccountActivatedEvent is emitted when a registration token is consumed or
// lateEnable flips an account to enabled.
type AccountActivatedEvent struct {
	EventID     string
	AccountID   string
	Username    string
	ActivatedAt time.Time
	Merged      bool
	Metadata    map[string]any
}

// PasswordResetRequestedEvent is emitted when a reset token is issued.
type PasswordResetRequestedEvent struct {
	EventID      string
	AccountID    string
	RequestedAt  time.Time
	RequestCount int
	MaskedEmail  string
	ExpiresAt    time.Time
	Metadata     map[string]any
}

// PasswordChangedEvent is emitted after a new password hash persists.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	ChangedAt time.Time
	ViaToken  bool
	Metadata  map[string]any
}

// EmailChangedEvent is emitted after a pending email change is applied or an
// immediate change persists.
type EmailChangedEvent struct {
	EventID     string
	AccountID   string
	MaskedEmail string
	ChangedAt   time.Time
	Confirmed   bool
	Metadata    map[string]any
}

// AccountLockedEvent is emitted when the failure threshold disables login.
type AccountLockedEvent struct {
	EventID   string
	AccountID string
	LockedAt  time.Time
	Failures  int
	Metadata  map[string]any
}
