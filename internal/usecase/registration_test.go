package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/security"
)

type registrationHarness struct {
	store   *fakeAccountStore
	clock   *fixedClock
	mailer  *recordingMailer
	captcha *stubCaptcha
	events  *recordingPublisher
	tokens  *TokenService
	svc     *RegistrationService
}

func newRegistrationHarness(t *testing.T, confirmEmail bool) *registrationHarness {
	t.Helper()

	h := &registrationHarness{
		store:   newFakeAccountStore(),
		clock:   newFixedClock(),
		mailer:  &recordingMailer{},
		captcha: &stubCaptcha{},
		events:  &recordingPublisher{},
	}

	cfg := testConfig()
	cfg.Register.ConfirmEmail = confirmEmail

	h.tokens = NewTokenService(h.store, nil)
	h.tokens.WithClock(h.clock.Now)

	identity := NewIdentityService(h.store, nil)
	identity.WithClock(h.clock.Now)

	h.svc = NewRegistrationService(cfg, h.store, nil, h.tokens, identity, h.mailer, h.captcha, h.events, nil)
	h.svc.WithClock(h.clock.Now)
	h.svc.WithIDGenerator(sequentialIDs("acc"))
	return h
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Username: "walden_pond",
		Email:    "Walden@Example.com",
		Password: "thoreau1854",
		Verify:   "thoreau1854",
	}
}

func TestRegisterWithConfirmationStaysDisabled(t *testing.T) {
	h := newRegistrationHarness(t, true)

	account, err := h.svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if account.Login.Enabled {
		t.Fatal("account must stay disabled until the token is consumed")
	}
	if account.Login.AuthToken == nil {
		t.Fatal("registration token not issued")
	}
	if kind, ok := domain.KindOfToken(*account.Login.AuthToken); !ok || kind != domain.TokenRegistration {
		t.Fatalf("wrong token kind: %q", *account.Login.AuthToken)
	}
	if len(h.mailer.sent) != 1 || h.mailer.sent[0] != port.TemplateRegister {
		t.Fatalf("expected one register mail, got %v", h.mailer.sent)
	}

	stored := h.store.stored(account.ID)
	if stored.Login.Enabled || stored.Login.AuthToken == nil {
		t.Fatal("pending state not persisted")
	}
	if len(h.events.registered) != 1 || !h.events.registered[0].Confirmation {
		t.Fatalf("registered event wrong: %+v", h.events.registered)
	}
}

func TestRegisterWithoutConfirmationEnablesImmediately(t *testing.T) {
	h := newRegistrationHarness(t, false)

	account, err := h.svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if !account.Login.Enabled {
		t.Fatal("account must be enabled when confirmation is off")
	}
	if account.Login.AuthToken != nil {
		t.Fatal("no token should be issued when confirmation is off")
	}
	if len(h.mailer.sent) != 0 {
		t.Fatalf("no mail expected, got %v", h.mailer.sent)
	}

	// The account can log in right away.
	auth := NewAuthService(h.store, h.events, nil)
	auth.WithClock(h.clock.Now)
	if _, err := auth.AuthenticateLocal(context.Background(), "walden_pond", "thoreau1854"); err != nil {
		t.Fatalf("immediate login failed: %v", err)
	}
}

func TestRegisterBlankFormShortCircuits(t *testing.T) {
	h := newRegistrationHarness(t, true)

	_, err := h.svc.Register(context.Background(), RegisterInput{})
	if !errors.Is(err, ErrBlankForm) {
		t.Fatalf("expected ErrBlankForm, got %v", err)
	}
	if h.store.saves != 0 {
		t.Fatal("blank form must not touch the store")
	}
}

func TestRegisterValidationAggregatesToGenericError(t *testing.T) {
	h := newRegistrationHarness(t, true)

	cases := []RegisterInput{
		{Username: "walden_pond", Email: "not-an-email", Password: "thoreau1854", Verify: "thoreau1854"},
		{Username: "up", Email: "walden@example.com", Password: "thoreau1854", Verify: "thoreau1854"},
		{Username: "UPPER", Email: "walden@example.com", Password: "thoreau1854", Verify: "thoreau1854"},
		{Username: "walden_pond", Email: "walden@example.com", Password: "short", Verify: "short"},
		{Username: "walden_pond", Email: "walden@example.com", Password: "thoreau1854", Verify: "different"},
	}
	for i, input := range cases {
		if _, err := h.svc.Register(context.Background(), input); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
	if h.store.saves != 0 {
		t.Fatal("rejected submissions must not create accounts")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	h := newRegistrationHarness(t, false)

	if _, err := h.svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	input := validRegistration()
	input.Email = "second@example.com"
	if _, err := h.svc.Register(context.Background(), input); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for taken username, got %v", err)
	}
}

func TestRegisterCaptchaRejected(t *testing.T) {
	h := newRegistrationHarness(t, true)
	h.svc.cfg.Captcha.Enabled = true
	h.captcha.err = errors.New("rejected")

	_, err := h.svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, ErrCaptchaRejected) {
		t.Fatalf("expected ErrCaptchaRejected, got %v", err)
	}
	if h.captcha.calls != 1 {
		t.Fatalf("captcha calls = %d", h.captcha.calls)
	}
}

func TestRegisterMailFailureKeepsAccountAndToken(t *testing.T) {
	h := newRegistrationHarness(t, true)
	h.mailer.sendErr = errors.New("smtp down")

	_, err := h.svc.Register(context.Background(), validRegistration())
	if !errors.Is(err, ErrEmailDispatch) {
		t.Fatalf("expected ErrEmailDispatch, got %v", err)
	}

	stored := h.store.stored("acc-1")
	if stored == nil {
		t.Fatal("account must survive the dispatch failure")
	}
	if stored.Login.AuthToken == nil {
		t.Fatal("token must survive the dispatch failure")
	}
}

func TestActivateEnablesAndConsumesToken(t *testing.T) {
	h := newRegistrationHarness(t, true)

	account, err := h.svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token := *account.Login.AuthToken

	if _, err := h.tokens.Validate(account, token); err != nil {
		t.Fatalf("validate registration token: %v", err)
	}
	if err := h.svc.Activate(context.Background(), account); err != nil {
		t.Fatalf("activate: %v", err)
	}

	stored := h.store.stored(account.ID)
	if !stored.Login.Enabled {
		t.Fatal("activation not persisted")
	}
	if stored.Login.AuthToken != nil {
		t.Fatal("registration token not consumed")
	}
	if len(h.events.activated) != 1 || h.events.activated[0].Merged {
		t.Fatalf("activated event wrong: %+v", h.events.activated)
	}

	// Login works after activation.
	auth := NewAuthService(h.store, h.events, nil)
	auth.WithClock(h.clock.Now)
	if _, err := auth.AuthenticateLocal(context.Background(), "walden_pond", "thoreau1854"); err != nil {
		t.Fatalf("post-activation login failed: %v", err)
	}
}

func TestActivateMergesFederatedPlaceholder(t *testing.T) {
	h := newRegistrationHarness(t, true)

	placeholder := domain.NewFederatedAccount("acc-ph", domain.FederatedProfile{
		Provider:   domain.ProviderLinkedIn,
		ExternalID: "li-3",
		Email:      "walden@example.com",
	}, h.clock.Now())
	if err := h.store.Save(context.Background(), placeholder); err != nil {
		t.Fatalf("seed placeholder: %v", err)
	}

	input := validRegistration()
	account, err := h.svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := h.svc.Activate(context.Background(), account); err != nil {
		t.Fatalf("activate: %v", err)
	}

	stored := h.store.stored(account.ID)
	if _, ok := stored.Social[domain.ProviderLinkedIn]; !ok {
		t.Fatal("placeholder sub-record not merged")
	}
	if h.store.stored("acc-ph") != nil {
		t.Fatal("placeholder row must be removed after the merge")
	}
	if len(h.events.activated) != 1 || !h.events.activated[0].Merged {
		t.Fatalf("activated event should report the merge: %+v", h.events.activated)
	}
}

func TestRegisterHashesWithConfiguredCost(t *testing.T) {
	h := newRegistrationHarness(t, false)

	account, err := h.svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	ok, err := security.VerifyPassword("thoreau1854", account.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}
