package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/infra/config"
	"github.com/victor-wayward/ironode/internal/repository"
)

type fakeAccountLookup struct {
	accounts map[string]*domain.Account
}

func (f *fakeAccountLookup) Save(ctx context.Context, account *domain.Account) error {
	return nil
}

func (f *fakeAccountLookup) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if account, ok := f.accounts[id]; ok {
		return account, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountLookup) FindByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Account, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeAccountLookup) FindByFederatedIdentity(ctx context.Context, provider domain.Provider, externalID string, candidateEmails []string) (*domain.Account, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeAccountLookup) RemoveFederatedPlaceholder(ctx context.Context, email string, excludeID string) (*domain.Account, error) {
	return nil, repository.ErrNotFound
}

func sessionSettings() config.SessionSettings {
	return config.SessionSettings{
		Secret:     "test-secret",
		TTL:        time.Hour,
		CookieName: "ironode_session",
	}
}

func sessionTestRouter(manager *SessionManager) *gin.Engine {
	router := gin.New()
	router.GET("/private", manager.RequireAccount(), func(c *gin.Context) {
		account, _ := AccountFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": account.ID})
	})
	return router
}

func issueCookie(t *testing.T, manager *SessionManager, accountID string) *http.Cookie {
	t.Helper()

	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)
	if err := manager.Issue(c, accountID); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	account := domain.NewAccount("acc-1", "walden", "walden@example.com", "hash", now)
	account.Login.Enabled = true

	lookup := &fakeAccountLookup{accounts: map[string]*domain.Account{"acc-1": account}}
	manager := NewSessionManager(sessionSettings(), lookup, zaptest.NewLogger(t))
	manager.WithClock(func() time.Time { return now })

	cookie := issueCookie(t, manager, "acc-1")
	if cookie.Name != "ironode_session" {
		t.Fatalf("unexpected cookie name %q", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Fatal("expected an http-only cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	sessionTestRouter(manager).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSessionRejectsMissingCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)

	lookup := &fakeAccountLookup{accounts: map[string]*domain.Account{}}
	manager := NewSessionManager(sessionSettings(), lookup, zaptest.NewLogger(t))

	rr := httptest.NewRecorder()
	sessionTestRouter(manager).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/private", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestSessionRejectsExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	issuedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	account := domain.NewAccount("acc-1", "walden", "walden@example.com", "hash", issuedAt)

	lookup := &fakeAccountLookup{accounts: map[string]*domain.Account{"acc-1": account}}
	manager := NewSessionManager(sessionSettings(), lookup, zaptest.NewLogger(t))
	manager.WithClock(func() time.Time { return issuedAt })

	cookie := issueCookie(t, manager, "acc-1")

	manager.WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) })

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	sessionTestRouter(manager).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired session, got %d", rr.Code)
	}
}

func TestSessionRejectsTamperedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	account := domain.NewAccount("acc-1", "walden", "walden@example.com", "hash", now)

	lookup := &fakeAccountLookup{accounts: map[string]*domain.Account{"acc-1": account}}
	manager := NewSessionManager(sessionSettings(), lookup, zaptest.NewLogger(t))
	manager.WithClock(func() time.Time { return now })

	cookie := issueCookie(t, manager, "acc-1")
	cookie.Value += "tampered"

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	sessionTestRouter(manager).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered session, got %d", rr.Code)
	}
}

func TestSessionRejectsDeletedAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	lookup := &fakeAccountLookup{accounts: map[string]*domain.Account{}}
	manager := NewSessionManager(sessionSettings(), lookup, zaptest.NewLogger(t))
	manager.WithClock(func() time.Time { return now })

	cookie := issueCookie(t, manager, "acc-gone")

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	sessionTestRouter(manager).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when account is gone, got %d", rr.Code)
	}
}
