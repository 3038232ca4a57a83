package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/infra/security"
)

type resetHarness struct {
	store  *fakeAccountStore
	clock  *fixedClock
	mailer *recordingMailer
	events *recordingPublisher
	tokens *TokenService
	svc    *ResetService
}

func newResetHarness(t *testing.T) *resetHarness {
	t.Helper()

	h := &resetHarness{
		store:  newFakeAccountStore(),
		clock:  newFixedClock(),
		mailer: &recordingMailer{},
		events: &recordingPublisher{},
	}
	h.tokens = NewTokenService(h.store, nil)
	h.tokens.WithClock(h.clock.Now)
	h.svc = NewResetService(testConfig(), h.store, nil, h.tokens, h.mailer, h.events, nil)
	h.svc.WithClock(h.clock.Now)

	hash, err := security.HashPassword("original pass", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	account := domain.NewAccount("acc-1", "walden", "walden@example.com", hash, h.clock.Now())
	account.Login.Enabled = true
	if err := h.store.Save(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return h
}

func TestResetRequestIssuesTokenAndMails(t *testing.T) {
	h := newResetHarness(t)

	if err := h.svc.Request(context.Background(), "walden@example.com", "en"); err != nil {
		t.Fatalf("request: %v", err)
	}

	stored := h.store.stored("acc-1")
	if stored.Reset.AuthToken == nil {
		t.Fatal("reset token not persisted")
	}
	if kind, ok := domain.KindOfToken(*stored.Reset.AuthToken); !ok || kind != domain.TokenReset {
		t.Fatalf("wrong token kind: %q", *stored.Reset.AuthToken)
	}
	if stored.Reset.Counter != 1 {
		t.Fatalf("request counter = %d, want 1", stored.Reset.Counter)
	}
	if len(h.mailer.sent) != 1 {
		t.Fatalf("expected one reset mail, got %d", len(h.mailer.sent))
	}
	if len(h.events.resetRequested) != 1 || h.events.resetRequested[0].RequestCount != 1 {
		t.Fatalf("reset event wrong: %+v", h.events.resetRequested)
	}
}

func TestResetRequestBackoff(t *testing.T) {
	h := newResetHarness(t)
	ctx := context.Background()

	if err := h.svc.Request(ctx, "walden@example.com", "en"); err != nil {
		t.Fatalf("first request: %v", err)
	}

	// Second request 30s later: counter is 1, backoff 60s, too soon.
	h.clock.Advance(30 * time.Second)
	if err := h.svc.Request(ctx, "walden@example.com", "en"); !errors.Is(err, ErrResetTooSoon) {
		t.Fatalf("expected ErrResetTooSoon, got %v", err)
	}

	// At 61s it goes through and sets counter=2.
	h.clock.Advance(31 * time.Second)
	if err := h.svc.Request(ctx, "walden@example.com", "en"); err != nil {
		t.Fatalf("second request: %v", err)
	}

	// Third request 90s after the second: backoff is 2*60=120s, too soon.
	h.clock.Advance(90 * time.Second)
	if err := h.svc.Request(ctx, "walden@example.com", "en"); !errors.Is(err, ErrResetTooSoon) {
		t.Fatalf("expected ErrResetTooSoon at 90s < 120s, got %v", err)
	}

	// 121s after the second it goes through.
	h.clock.Advance(31 * time.Second)
	if err := h.svc.Request(ctx, "walden@example.com", "en"); err != nil {
		t.Fatalf("third request: %v", err)
	}
	if stored := h.store.stored("acc-1"); stored.Reset.Counter != 3 {
		t.Fatalf("request counter = %d, want 3", stored.Reset.Counter)
	}
}

func TestResetRequestBudgetExhausted(t *testing.T) {
	h := newResetHarness(t)
	ctx := context.Background()

	for i := 1; i <= 11; i++ {
		h.clock.Advance(time.Duration(i) * time.Minute)
		if err := h.svc.Request(ctx, "walden@example.com", "en"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	// The 12th request exceeds the budget regardless of elapsed time.
	h.clock.Advance(24 * time.Hour)
	if err := h.svc.Request(ctx, "walden@example.com", "en"); !errors.Is(err, ErrTooManyResets) {
		t.Fatalf("expected ErrTooManyResets, got %v", err)
	}
}

func TestResetRequestUnknownEmail(t *testing.T) {
	h := newResetHarness(t)

	err := h.svc.Request(context.Background(), "nobody@example.com", "en")
	if !errors.Is(err, ErrEmailUnknown) {
		t.Fatalf("expected ErrEmailUnknown, got %v", err)
	}
}

func TestResetRequestDisabledAccount(t *testing.T) {
	h := newResetHarness(t)

	account := h.store.stored("acc-1")
	account.Login.Enabled = false
	if err := h.store.Save(context.Background(), account); err != nil {
		t.Fatalf("disable account: %v", err)
	}

	err := h.svc.Request(context.Background(), "walden@example.com", "en")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestCompletePasswordConsumesTokenAndZeroesCounter(t *testing.T) {
	h := newResetHarness(t)
	ctx := context.Background()

	if err := h.svc.Request(ctx, "walden@example.com", "en"); err != nil {
		t.Fatalf("request: %v", err)
	}

	account, err := h.svc.CompletePassword(ctx, "walden", "new password 9", "new password 9")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if account.Reset.AuthToken != nil {
		t.Fatal("reset token not consumed")
	}
	if account.Reset.Counter != 0 {
		t.Fatalf("request counter = %d, want 0 after consumption", account.Reset.Counter)
	}

	stored := h.store.stored("acc-1")
	if ok, err := security.VerifyPassword("new password 9", stored.PasswordHash); err != nil || !ok {
		t.Fatalf("new password does not verify: ok=%v err=%v", ok, err)
	}
	if len(h.events.passwordSet) != 1 || !h.events.passwordSet[0].ViaToken {
		t.Fatalf("password changed event wrong: %+v", h.events.passwordSet)
	}

	// The budget is fresh again after consumption.
	h.clock.Advance(time.Minute)
	if err := h.svc.Request(ctx, "walden@example.com", "en"); err != nil {
		t.Fatalf("request after consumption: %v", err)
	}
	if after := h.store.stored("acc-1"); after.Reset.Counter != 1 {
		t.Fatalf("request counter = %d, want 1", after.Reset.Counter)
	}
}

func TestCompletePasswordValidatesPair(t *testing.T) {
	h := newResetHarness(t)
	ctx := context.Background()

	cases := []struct{ password, verify string }{
		{"", ""},
		{"short", "short"},
		{"long enough pass", "different pass"},
	}
	for i, tc := range cases {
		if _, err := h.svc.CompletePassword(ctx, "walden", tc.password, tc.verify); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestCompletePasswordLateEnables(t *testing.T) {
	h := newResetHarness(t)
	ctx := context.Background()

	// A disabled account that only lacked its password flips to enabled.
	account := h.store.stored("acc-1")
	account.Login.Enabled = false
	account.PasswordHash = ""
	if err := h.store.Save(ctx, account); err != nil {
		t.Fatalf("reshape account: %v", err)
	}

	if _, err := h.svc.CompletePassword(ctx, "walden", "fresh password", "fresh password"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if stored := h.store.stored("acc-1"); !stored.Login.Enabled {
		t.Fatal("lateEnable did not flip the account")
	}
}
