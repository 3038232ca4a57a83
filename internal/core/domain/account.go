package domain

import (
	"strings"
	"time"
)

// Provider enumerates the supported federated identity providers.
type Provider string

const (
	ProviderFacebook Provider = "facebook"
	ProviderGoogle   Provider = "google"
	ProviderLinkedIn Provider = "linkedin"
)

// Providers lists every supported provider in a stable order.
func Providers() []Provider {
	return []Provider{ProviderFacebook, ProviderGoogle, ProviderLinkedIn}
}

// ParseProvider maps a provider tag to a Provider.
func ParseProvider(tag string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(tag))) {
	case ProviderFacebook:
		return ProviderFacebook, true
	case ProviderGoogle:
		return ProviderGoogle, true
	case ProviderLinkedIn:
		return ProviderLinkedIn, true
	}
	return "", false
}

// FaultState tracks consecutive failed local logins.
type FaultState struct {
	LastAt  time.Time `json:"last_at"`
	Counter int       `json:"counter"`
}

// LoginState gates local authentication. CreatedAt anchors the registration
// token expiry window and is refreshed when the account is enabled.
type LoginState struct {
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"created_at"`
	LastAt    time.Time  `json:"last_at"`
	Counter   int        `json:"counter"`
	AuthToken *string    `json:"auth_token,omitempty"`
	Fault     FaultState `json:"fault"`
}

// ResetState tracks outstanding password reset tokens and request throttling.
// Counter is zeroed only when a reset token is successfully consumed.
type ResetState struct {
	AuthToken *string   `json:"auth_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Counter   int       `json:"counter"`
}

// PendingEmailChange holds an email change awaiting confirmation.
type PendingEmailChange struct {
	Email     string    `json:"email"`
	AuthToken *string   `json:"auth_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Counter   int       `json:"counter"`
}

// FederatedIdentity is one provider's assertion linked to the account.
type FederatedIdentity struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	GivenName  string    `json:"given_name"`
	FamilyName string    `json:"family_name"`
	LastAt     time.Time `json:"last_at"`
	Counter    int       `json:"counter"`
	CreatedAt  time.Time `json:"created_at"`
}

// FederatedProfile is the normalized result of an external consent flow.
type FederatedProfile struct {
	Provider   Provider
	ExternalID string
	Email      string
	GivenName  string
	FamilyName string
}

// Profile holds display fields.
type Profile struct {
	GivenName      string `json:"given_name"`
	FamilyName     string `json:"family_name"`
	AvatarPath     string `json:"avatar_path"`
	AvatarVerified bool   `json:"avatar_verified"`
}

// Address holds free-form postal fields.
type Address struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Postcode string `json:"postcode"`
}

const (
	// DefaultGroup is the role tag assigned to new accounts.
	DefaultGroup = "user"
	// DefaultAvatarPath is served until the user uploads their own.
	DefaultAvatarPath = "/img/avatar.jpg"
	// LockoutThreshold is the failed-login count beyond which local login is disabled.
	LockoutThreshold = 100
)

// Account is the aggregate root for one user, local and/or federated.
// Entity methods mutate in-memory state only; the account repository's Save
// is the sole durable write.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Group        string

	Login    LoginState
	Social   map[Provider]FederatedIdentity
	Reset    ResetState
	NewEmail *PendingEmailChange
	Profile  Profile
	Address  Address

	OldUsernames []string
	OldEmails    []string

	CreatedAt time.Time
	Version   int64
}

// NewAccount builds a local account. The caller decides whether login is
// enabled (email confirmation pending or not).
func NewAccount(id, username, email, passwordHash string, now time.Time) *Account {
	return &Account{
		ID:           id,
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Group:        DefaultGroup,
		Login:        LoginState{CreatedAt: now},
		Social:       map[Provider]FederatedIdentity{},
		Profile:      Profile{AvatarPath: DefaultAvatarPath},
		CreatedAt:    now,
	}
}

// NewFederatedAccount builds a placeholder account from a provider profile.
// Local login stays disabled until registration completes.
func NewFederatedAccount(id string, profile FederatedProfile, now time.Time) *Account {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	return &Account{
		ID:    id,
		Email: email,
		Group: DefaultGroup,
		Login: LoginState{CreatedAt: now},
		Social: map[Provider]FederatedIdentity{
			profile.Provider: {
				ID:         profile.ExternalID,
				Email:      email,
				GivenName:  profile.GivenName,
				FamilyName: profile.FamilyName,
				LastAt:     now,
				Counter:    1,
				CreatedAt:  now,
			},
		},
		Profile: Profile{
			GivenName:  profile.GivenName,
			FamilyName: profile.FamilyName,
			AvatarPath: DefaultAvatarPath,
		},
		CreatedAt: now,
	}
}

// RecordLogin updates local login bookkeeping after a successful
// credential check and clears the fault counters.
func (a *Account) RecordLogin(now time.Time) {
	a.Login.LastAt = now
	a.Login.Counter++
	a.Login.Fault = FaultState{}
}

// RecordLoginFailure bumps the fault counters. Crossing the lockout
// threshold disables local login; the flip is reported to the caller.
func (a *Account) RecordLoginFailure(now time.Time) (lockedOut bool) {
	a.Login.Fault.LastAt = now
	a.Login.Fault.Counter++
	if a.Login.Fault.Counter > LockoutThreshold && a.Login.Enabled {
		a.Login.Enabled = false
		return true
	}
	return false
}

// RecordFederatedLogin refreshes the provider sub-record from a fresh
// assertion. The external id is backfilled only when previously unset, and
// empty local profile names are backfilled from the provider.
func (a *Account) RecordFederatedLogin(profile FederatedProfile, now time.Time) {
	if a.Social == nil {
		a.Social = map[Provider]FederatedIdentity{}
	}
	ident, ok := a.Social[profile.Provider]
	if !ok {
		ident = FederatedIdentity{CreatedAt: now}
	}
	if ident.ID == "" {
		ident.ID = profile.ExternalID
	}
	ident.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	ident.GivenName = profile.GivenName
	ident.FamilyName = profile.FamilyName
	ident.LastAt = now
	ident.Counter++
	a.Social[profile.Provider] = ident

	if a.Profile.GivenName == "" {
		a.Profile.GivenName = profile.GivenName
	}
	if a.Profile.FamilyName == "" {
		a.Profile.FamilyName = profile.FamilyName
	}
}

// Enable activates local login and consumes any outstanding registration
// token. Login.CreatedAt is refreshed so stale registration links die.
func (a *Account) Enable(now time.Time) {
	a.Login.Enabled = true
	a.Login.CreatedAt = now
	a.Login.AuthToken = nil
}

// LateEnable flips the account to enabled once username, email, and password
// are all present. Reports whether the flip occurred; callers treat false as
// a no-op, not a failure.
func (a *Account) LateEnable(now time.Time) bool {
	if a.Login.Enabled {
		return false
	}
	if a.Username == "" || a.Email == "" || a.PasswordHash == "" {
		return false
	}
	a.Enable(now)
	return true
}

// SetPassword stores a new hash and consumes any outstanding reset token.
// The reset request counter resets only here, on successful consumption.
func (a *Account) SetPassword(hash string) {
	a.PasswordHash = hash
	a.Reset.AuthToken = nil
	a.Reset.Counter = 0
}

// RenameUsername replaces the username, keeping the prior value at the head
// of the history.
func (a *Account) RenameUsername(username string) {
	if username == a.Username {
		return
	}
	if a.Username != "" {
		a.OldUsernames = append([]string{a.Username}, a.OldUsernames...)
	}
	a.Username = username
}

// ChangeEmailNow applies a new address immediately, recording the prior one.
// Used when email confirmation is disabled system-wide.
func (a *Account) ChangeEmailNow(email string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == a.Email {
		return
	}
	if a.Email != "" {
		a.OldEmails = append([]string{a.Email}, a.OldEmails...)
	}
	a.Email = email
	a.NewEmail = nil
}

// ApplyPendingEmail promotes the confirmed pending address to the primary
// email, consuming the change token. Reports whether a change was pending.
func (a *Account) ApplyPendingEmail() bool {
	if a.NewEmail == nil || a.NewEmail.Email == "" {
		return false
	}
	pending := strings.ToLower(strings.TrimSpace(a.NewEmail.Email))
	if a.Email != "" && pending != a.Email {
		a.OldEmails = append([]string{a.Email}, a.OldEmails...)
	}
	a.Email = pending
	a.NewEmail = nil
	return true
}

// SetAvatar records an uploaded avatar path and resets the verification flag
// until moderation re-approves it.
func (a *Account) SetAvatar(path string) {
	a.Profile.AvatarPath = path
	a.Profile.AvatarVerified = false
}

// IsFederatedPlaceholder reports whether the account exists solely as the
// parking spot for federated sub-records: no local credential yet and login
// disabled. Placeholders are exempt from email uniqueness so a later local
// registration with the same address can proceed and merge on activation.
func (a *Account) IsFederatedPlaceholder() bool {
	return !a.Login.Enabled && a.PasswordHash == "" && len(a.Social) > 0
}

// AbsorbSocial folds another account's federated sub-records into this one.
// Providers already linked here win; only missing providers are copied.
func (a *Account) AbsorbSocial(other *Account) {
	if other == nil || len(other.Social) == 0 {
		return
	}
	if a.Social == nil {
		a.Social = map[Provider]FederatedIdentity{}
	}
	for provider, ident := range other.Social {
		if _, exists := a.Social[provider]; !exists {
			a.Social[provider] = ident
		}
	}
}

// FederatedEmails returns the distinct lowercased emails asserted by linked
// providers, used for cross-provider account matching.
func (a *Account) FederatedEmails() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(a.Social))
	for _, provider := range Providers() {
		ident, ok := a.Social[provider]
		if !ok || ident.Email == "" {
			continue
		}
		email := strings.ToLower(ident.Email)
		if !seen[email] {
			seen[email] = true
			out = append(out, email)
		}
	}
	return out
}
