package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/victor-wayward/ironode/internal/core/domain"
)

func seedAccount(t *testing.T, store *fakeAccountStore, clock *fixedClock) *domain.Account {
	t.Helper()

	account := domain.NewAccount("acc-1", "walden", "walden@example.com", "$2a$04$hash", clock.Now())
	account.Login.Enabled = true
	if err := store.Save(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func TestTokenIssueValidateRoundTrip(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewTokenService(store, nil)
	svc.WithClock(clock.Now)

	kinds := []domain.TokenKind{domain.TokenRegistration, domain.TokenReset, domain.TokenEmailChange}
	for _, kind := range kinds {
		account := seedAccount(t, store, clock)
		if kind == domain.TokenEmailChange {
			account.NewEmail = &domain.PendingEmailChange{Email: "next@example.com"}
		}

		token, err := svc.Issue(context.Background(), account, kind)
		if err != nil {
			t.Fatalf("issue %s token: %v", kind, err)
		}
		if len(token) != 65 || token[0] != byte(kind) {
			t.Fatalf("malformed %s token: %q", kind, token)
		}

		clock.Advance(time.Second)
		got, err := svc.Validate(account, token)
		if err != nil {
			t.Fatalf("validate fresh %s token: %v", kind, err)
		}
		if got != kind {
			t.Fatalf("kind mismatch: got %s want %s", got, kind)
		}

		store.mu.Lock()
		delete(store.accounts, account.ID)
		store.mu.Unlock()
	}
}

func TestTokenValidateDoesNotConsume(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewTokenService(store, nil)
	svc.WithClock(clock.Now)

	account := seedAccount(t, store, clock)
	token, err := svc.Issue(context.Background(), account, domain.TokenReset)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Validate(account, token); err != nil {
			t.Fatalf("validate attempt %d: %v", i+1, err)
		}
	}
	if account.Reset.AuthToken == nil {
		t.Fatal("validate must not clear the token")
	}
}

func TestTokenValidateExpired(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewTokenService(store, nil)
	svc.WithClock(clock.Now)

	account := seedAccount(t, store, clock)
	token, err := svc.Issue(context.Background(), account, domain.TokenReset)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Advance(domain.TokenTTL - time.Second)
	if _, err := svc.Validate(account, token); err != nil {
		t.Fatalf("token inside the window rejected: %v", err)
	}

	clock.Advance(2 * time.Second)
	if _, err := svc.Validate(account, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenValidateRegistrationAnchorsOnLoginCreatedAt(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewTokenService(store, nil)
	svc.WithClock(clock.Now)

	account := seedAccount(t, store, clock)
	clock.Advance(50 * time.Minute)
	token, err := svc.Issue(context.Background(), account, domain.TokenRegistration)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// 70 minutes after account creation, even though the token itself is
	// only 20 minutes old.
	clock.Advance(20 * time.Minute)
	if _, err := svc.Validate(account, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenIssueStampsOnlyOwnedAnchors(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewTokenService(store, nil)
	svc.WithClock(clock.Now)

	account := seedAccount(t, store, clock)
	account.NewEmail = &domain.PendingEmailChange{Email: "next@example.com"}
	created := account.Login.CreatedAt

	clock.Advance(10 * time.Minute)
	issuedAt := clock.Now().UTC()

	for _, kind := range []domain.TokenKind{domain.TokenRegistration, domain.TokenReset, domain.TokenEmailChange} {
		if _, err := svc.Issue(context.Background(), account, kind); err != nil {
			t.Fatalf("issue %s: %v", kind, err)
		}
	}

	if !account.Login.CreatedAt.Equal(created) {
		t.Fatalf("registration issue moved the login anchor: %v", account.Login.CreatedAt)
	}
	if !account.Reset.CreatedAt.Equal(issuedAt) {
		t.Fatalf("reset issue must stamp its own anchor, got %v", account.Reset.CreatedAt)
	}
	if !account.NewEmail.CreatedAt.Equal(issuedAt) {
		t.Fatalf("email change issue must stamp its own anchor, got %v", account.NewEmail.CreatedAt)
	}
}

func TestTokenValidateMismatch(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewTokenService(store, nil)
	svc.WithClock(clock.Now)

	account := seedAccount(t, store, clock)
	if _, err := svc.Issue(context.Background(), account, domain.TokenReset); err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := "p" + "0000000000000000000000000000000000000000000000000000000000000000"
	if _, err := svc.Validate(account, other); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch, got %v", err)
	}

	// A reset-shaped token presented while only a registration token is
	// outstanding must also mismatch.
	fresh := seedAccountNamed(t, store, clock, "acc-2", "second", "second@example.com")
	if _, err := svc.Validate(fresh, other); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch for absent token, got %v", err)
	}
}

func seedAccountNamed(t *testing.T, store *fakeAccountStore, clock *fixedClock, id, username, email string) *domain.Account {
	t.Helper()

	account := domain.NewAccount(id, username, email, "$2a$04$hash", clock.Now())
	account.Login.Enabled = true
	if err := store.Save(context.Background(), account); err != nil {
		t.Fatalf("seed account %s: %v", id, err)
	}
	return account
}

func TestTokenValidateUnknownKind(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewTokenService(store, nil)
	svc.WithClock(clock.Now)

	account := seedAccount(t, store, clock)
	for _, token := range []string{"", "x123", "Zabcdef"} {
		if _, err := svc.Validate(account, token); !errors.Is(err, ErrTokenUnknownKind) {
			t.Fatalf("token %q: expected ErrTokenUnknownKind, got %v", token, err)
		}
	}
}

func TestTokenIssueOverwritesOutstanding(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewTokenService(store, nil)
	svc.WithClock(clock.Now)

	account := seedAccount(t, store, clock)
	first, err := svc.Issue(context.Background(), account, domain.TokenReset)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.Issue(context.Background(), account, domain.TokenReset)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if first == second {
		t.Fatal("tokens must be unique per issuance")
	}

	if _, err := svc.Validate(account, first); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("superseded token must mismatch, got %v", err)
	}
	if _, err := svc.Validate(account, second); err != nil {
		t.Fatalf("outstanding token rejected: %v", err)
	}
}

func TestTokenIssuePersists(t *testing.T) {
	store := newFakeAccountStore()
	clock := newFixedClock()
	svc := NewTokenService(store, nil)
	svc.WithClock(clock.Now)

	account := seedAccount(t, store, clock)
	token, err := svc.Issue(context.Background(), account, domain.TokenReset)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	stored := store.stored(account.ID)
	if stored.Reset.AuthToken == nil || *stored.Reset.AuthToken != token {
		t.Fatal("issued token not persisted")
	}
	if !stored.Reset.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("reset timestamp not persisted: %v", stored.Reset.CreatedAt)
	}
}
