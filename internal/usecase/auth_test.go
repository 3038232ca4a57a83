package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/infra/security"
)

func seedLocalAccount(t *testing.T, store *fakeAccountStore, clock *fixedClock, password string) *domain.Account {
	t.Helper()

	hash, err := security.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	account := domain.NewAccount("acc-1", "walden", "walden@example.com", hash, clock.Now())
	account.Login.Enabled = true
	if err := store.Save(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func TestAuthenticateLocalSuccess(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	events := &recordingPublisher{}
	svc := NewAuthService(store, events, nil)
	svc.WithClock(clock.Now)

	seedLocalAccount(t, store, clock, "correct horse")

	for _, identifier := range []string{"walden", "Walden@Example.com"} {
		account, err := svc.AuthenticateLocal(context.Background(), identifier, "correct horse")
		if err != nil {
			t.Fatalf("authenticate via %q: %v", identifier, err)
		}
		if !account.Login.LastAt.Equal(clock.Now()) {
			t.Fatalf("login timestamp not recorded: %v", account.Login.LastAt)
		}
	}

	stored := store.stored("acc-1")
	if stored.Login.Counter != 2 {
		t.Fatalf("expected 2 recorded logins, got %d", stored.Login.Counter)
	}
}

func TestAuthenticateLocalWrongPassword(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewAuthService(store, &recordingPublisher{}, nil)
	svc.WithClock(clock.Now)

	seedLocalAccount(t, store, clock, "correct horse")

	_, err := svc.AuthenticateLocal(context.Background(), "walden", "battery staple")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stored := store.stored("acc-1")
	if stored.Login.Fault.Counter != 1 {
		t.Fatalf("fault counter not persisted, got %d", stored.Login.Fault.Counter)
	}
	if !stored.Login.Enabled {
		t.Fatal("one failure must not disable the account")
	}
}

func TestAuthenticateLocalSuccessClearsFaults(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewAuthService(store, &recordingPublisher{}, nil)
	svc.WithClock(clock.Now)

	seedLocalAccount(t, store, clock, "correct horse")

	for i := 0; i < 5; i++ {
		if _, err := svc.AuthenticateLocal(context.Background(), "walden", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := svc.AuthenticateLocal(context.Background(), "walden", "correct horse"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	stored := store.stored("acc-1")
	if stored.Login.Fault.Counter != 0 {
		t.Fatalf("fault counter not cleared, got %d", stored.Login.Fault.Counter)
	}
}

func TestAuthenticateLocalLockout(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	events := &recordingPublisher{}
	svc := NewAuthService(store, events, nil)
	svc.WithClock(clock.Now)

	seedLocalAccount(t, store, clock, "correct horse")

	for i := 0; i < domain.LockoutThreshold; i++ {
		if _, err := svc.AuthenticateLocal(context.Background(), "walden", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if stored := store.stored("acc-1"); !stored.Login.Enabled {
		t.Fatalf("%d failures must not disable the account", domain.LockoutThreshold)
	}
	if len(events.locked) != 0 {
		t.Fatal("lock event published before the threshold was crossed")
	}

	// The 101st failure crosses the threshold.
	if _, err := svc.AuthenticateLocal(context.Background(), "walden", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	stored := store.stored("acc-1")
	if stored.Login.Enabled {
		t.Fatal("account still enabled after crossing the lockout threshold")
	}
	if len(events.locked) != 1 {
		t.Fatalf("expected one lock event, got %d", len(events.locked))
	}
	if events.locked[0].Failures != domain.LockoutThreshold+1 {
		t.Fatalf("lock event failures = %d", events.locked[0].Failures)
	}

	// Once disabled, further attempts fail fast without touching counters.
	if _, err := svc.AuthenticateLocal(context.Background(), "walden", "correct horse"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if after := store.stored("acc-1"); after.Login.Fault.Counter != domain.LockoutThreshold+1 {
		t.Fatalf("disabled account's fault counter moved to %d", after.Login.Fault.Counter)
	}
}

func TestAuthenticateLocalUnknownAccount(t *testing.T) {
	store := newFakeAccountStore()
	svc := NewAuthService(store, &recordingPublisher{}, nil)

	_, err := svc.AuthenticateLocal(context.Background(), "nobody", "whatever")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAuthenticateLocalFederatedOnlyAccount(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewAuthService(store, &recordingPublisher{}, nil)
	svc.WithClock(clock.Now)

	placeholder := domain.NewFederatedAccount("acc-9", domain.FederatedProfile{
		Provider:   domain.ProviderGoogle,
		ExternalID: "g-1",
		Email:      "social@example.com",
	}, clock.Now())
	if err := store.Save(context.Background(), placeholder); err != nil {
		t.Fatalf("seed placeholder: %v", err)
	}

	_, err := svc.AuthenticateLocal(context.Background(), "social@example.com", "whatever")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}
