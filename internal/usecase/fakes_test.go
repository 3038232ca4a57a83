package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/config"
	"github.com/victor-wayward/ironode/internal/repository"
)

// fakeAccountStore mirrors the PostgreSQL repository semantics in memory:
// version CAS on Save, uniqueness on username and email, and the three-rung
// federated match order.
type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	saveErr  error
	saves    int
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[string]*domain.Account{}}
}

func cloneAccount(account *domain.Account) *domain.Account {
	out := *account
	if account.Social != nil {
		out.Social = make(map[domain.Provider]domain.FederatedIdentity, len(account.Social))
		for provider, ident := range account.Social {
			out.Social[provider] = ident
		}
	}
	if account.NewEmail != nil {
		pending := *account.NewEmail
		out.NewEmail = &pending
	}
	if account.Login.AuthToken != nil {
		token := *account.Login.AuthToken
		out.Login.AuthToken = &token
	}
	if account.Reset.AuthToken != nil {
		token := *account.Reset.AuthToken
		out.Reset.AuthToken = &token
	}
	out.OldUsernames = append([]string(nil), account.OldUsernames...)
	out.OldEmails = append([]string(nil), account.OldEmails...)
	return &out
}

func (f *fakeAccountStore) Save(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}

	for id, other := range f.accounts {
		if id == account.ID {
			continue
		}
		if account.Username != "" && other.Username == account.Username {
			return repository.ErrDuplicate
		}
		if account.Email != "" && other.Email == account.Email &&
			!other.IsFederatedPlaceholder() && !account.IsFederatedPlaceholder() {
			return repository.ErrDuplicate
		}
	}

	stored, exists := f.accounts[account.ID]
	if account.Version == 0 {
		if exists {
			return repository.ErrDuplicate
		}
		account.Version = 1
	} else {
		if !exists || stored.Version != account.Version {
			return repository.ErrConflict
		}
		account.Version++
	}

	f.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (f *fakeAccountStore) FindByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (f *fakeAccountStore) FindByUsernameOrEmail(_ context.Context, identifier string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	identifier = strings.TrimSpace(identifier)
	byEmail := strings.Contains(identifier, "@")
	if byEmail {
		identifier = strings.ToLower(identifier)
	}
	var placeholder *domain.Account
	for _, account := range f.accounts {
		if byEmail && account.Email == identifier {
			// A local account outranks a placeholder on the same address.
			if account.IsFederatedPlaceholder() {
				placeholder = account
				continue
			}
			return cloneAccount(account), nil
		}
		if !byEmail && account.Username == identifier {
			return cloneAccount(account), nil
		}
	}
	if placeholder != nil {
		return cloneAccount(placeholder), nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountStore) FindByFederatedIdentity(_ context.Context, provider domain.Provider, externalID string, candidateEmails []string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if externalID != "" {
		for _, account := range f.accounts {
			if ident, ok := account.Social[provider]; ok && ident.ID == externalID {
				return cloneAccount(account), nil
			}
		}
	}

	emails := make([]string, 0, len(candidateEmails))
	for _, email := range candidateEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			emails = append(emails, email)
		}
	}

	for _, email := range emails {
		for _, account := range f.accounts {
			if account.Email == email {
				return cloneAccount(account), nil
			}
		}
	}
	for _, email := range emails {
		for _, account := range f.accounts {
			for _, ident := range account.Social {
				if strings.ToLower(ident.Email) == email {
					return cloneAccount(account), nil
				}
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountStore) RemoveFederatedPlaceholder(_ context.Context, email, excludeID string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for id, account := range f.accounts {
		if id == excludeID {
			continue
		}
		for _, ident := range account.Social {
			if strings.ToLower(ident.Email) == email {
				delete(f.accounts, id)
				return cloneAccount(account), nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountStore) stored(id string) *domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil
	}
	return cloneAccount(account)
}

type recordingMailer struct {
	sendErr error
	sent    []port.TemplateKind
	lastTo  string
}

func (m *recordingMailer) Send(_ context.Context, account *domain.Account, kind port.TemplateKind, _ string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, kind)
	m.lastTo = account.Email
	return nil
}

type stubCaptcha struct {
	err   error
	calls int
}

func (c *stubCaptcha) Verify(context.Context, string) error {
	c.calls++
	return c.err
}

type recordingPublisher struct {
	registered     []domain.AccountRegisteredEvent
	activated      []domain.AccountActivatedEvent
	resetRequested []domain.PasswordResetRequestedEvent
	passwordSet    []domain.PasswordChangedEvent
	emailChanged   []domain.EmailChangedEvent
	locked         []domain.AccountLockedEvent
}

func (p *recordingPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.registered = append(p.registered, event)
	return nil
}

func (p *recordingPublisher) PublishAccountActivated(_ context.Context, event domain.AccountActivatedEvent) error {
	p.activated = append(p.activated, event)
	return nil
}

func (p *recordingPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.resetRequested = append(p.resetRequested, event)
	return nil
}

func (p *recordingPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.passwordSet = append(p.passwordSet, event)
	return nil
}

func (p *recordingPublisher) PublishEmailChanged(_ context.Context, event domain.EmailChangedEvent) error {
	p.emailChanged = append(p.emailChanged, event)
	return nil
}

func (p *recordingPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	p.locked = append(p.locked, event)
	return nil
}

type fakeMessageStore struct {
	appendErr error
	messages  []domain.ContactMessage
}

func (f *fakeMessageStore) Append(_ context.Context, message domain.ContactMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.messages = append(f.messages, message)
	return nil
}

func testConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.Register.ConfirmEmail = true
	cfg.Register.HashCost = 4
	cfg.Captcha.Enabled = false
	return cfg
}

// fixedClock returns a deterministic clock that can be advanced by tests.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var (
	_ port.AccountRepository = (*fakeAccountStore)(nil)
	_ port.MessageRepository = (*fakeMessageStore)(nil)
	_ port.Mailer            = (*recordingMailer)(nil)
	_ port.CaptchaVerifier   = (*stubCaptcha)(nil)
	_ port.EventPublisher    = (*recordingPublisher)(nil)
)
