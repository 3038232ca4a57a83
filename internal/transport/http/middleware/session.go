package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/infra/config"
)

const accountContextKey = "session_account"

var errNoSession = errors.New("no session")

// SessionManager issues and resolves the signed session cookie. The cookie
// payload is an HS256 JWT whose subject is the account id; the account itself
// is loaded fresh on every authenticated request so disabled accounts drop
// out immediately.
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	accounts   port.AccountRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionManager constructs a SessionManager from the session settings.
func NewSessionManager(cfg config.SessionSettings, accounts port.AccountRepository, log *zap.Logger) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{
		secret:     []byte(cfg.Secret),
		ttl:        cfg.TTL,
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		accounts:   accounts,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock allows tests to override the clock used by the manager.
func (m *SessionManager) WithClock(clock func() time.Time) {
	if clock != nil {
		m.now = clock
	}
}

// Issue signs a session token for the account and sets the cookie.
func (m *SessionManager) Issue(c *gin.Context, accountID string) error {
	now := m.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, signed, int(m.ttl.Seconds()), "/", "", m.secure, true)
	return nil
}

// Clear drops the session cookie.
func (m *SessionManager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}

func (m *SessionManager) resolve(c *gin.Context) (*domain.Account, error) {
	raw, err := c.Cookie(m.cookieName)
	if err != nil || raw == "" {
		return nil, errNoSession
	}

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, errNoSession
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, errNoSession
	}

	account, err := m.accounts.FindByID(c.Request.Context(), claims.Subject)
	if err != nil {
		return nil, errNoSession
	}
	return account, nil
}

// RequireAccount aborts with 401 unless a valid session resolves to an
// account. The resolved account is placed on the Gin context.
func (m *SessionManager) RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := m.resolve(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(accountContextKey, account)
		c.Next()
	}
}

// OptionalAccount resolves the session when present without requiring one.
func (m *SessionManager) OptionalAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if account, err := m.resolve(c); err == nil {
			c.Set(accountContextKey, account)
		}
		c.Next()
	}
}

// AccountFromContext retrieves the session's account, when resolved.
func AccountFromContext(c *gin.Context) (*domain.Account, bool) {
	value, exists := c.Get(accountContextKey)
	if !exists {
		return nil, false
	}
	account, ok := value.(*domain.Account)
	return account, ok
}
