package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/transport/http/middleware"
	"github.com/victor-wayward/ironode/internal/usecase"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 600
)

// Handler drives the external consent flows: a redirect endpoint that sends
// the browser to the provider, and a callback that exchanges the code,
// fetches the profile and starts a session.
type Handler struct {
	providers map[domain.Provider]*Provider
	identity  *usecase.IdentityService
	sessions  *middleware.SessionManager
	logger    *zap.Logger
	fetch     func(ctx context.Context, provider *Provider, code, state string) ([]byte, error)
}

// NewHandler builds an oauth Handler.
func NewHandler(
	providers map[domain.Provider]*Provider,
	identity *usecase.IdentityService,
	sessions *middleware.SessionManager,
	log *zap.Logger,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		providers: providers,
		identity:  identity,
		sessions:  sessions,
		logger:    log,
	}
	h.fetch = h.exchangeAndFetch
	return h
}

// WithExchanger overrides the code exchange for tests.
func (h *Handler) WithExchanger(fetch func(ctx context.Context, provider *Provider, code, state string) ([]byte, error)) {
	if fetch != nil {
		h.fetch = fetch
	}
}

func (h *Handler) provider(c *gin.Context) (*Provider, bool) {
	name, ok := domain.ParseProvider(c.Param("provider"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return nil, false
	}
	provider, configured := h.providers[name]
	if !configured {
		c.JSON(http.StatusNotFound, gin.H{"error": "provider is not configured"})
		return nil, false
	}
	return provider, true
}

// Redirect sends the browser to the provider's consent page. A random state
// nonce is pinned in a short-lived cookie and checked on the way back.
func (h *Handler) Redirect(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "consent flow failed"})
		return
	}
	state := base64.URLEncoding.EncodeToString(nonce)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, stateCookieTTL, "/", "", false, true)
	c.Redirect(http.StatusFound, provider.Config.AuthCodeURL(state))
}

// Callback completes the consent flow. The provider's assertion either logs
// into a linked account or creates a disabled placeholder awaiting local
// activation.
func (h *Handler) Callback(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}

	expected, err := c.Cookie(stateCookieName)
	if err != nil || expected == "" || c.Query("state") != expected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "consent was denied"})
		return
	}

	data, err := h.fetch(c.Request.Context(), provider, code, expected)
	if err != nil {
		h.logger.Error("consent exchange failed",
			zap.String("provider", string(provider.Name)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider did not answer"})
		return
	}

	profile, err := provider.MapProfile(data)
	if err != nil {
		h.logger.Error("profile mapping failed",
			zap.String("provider", string(provider.Name)), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider sent an unusable profile"})
		return
	}

	account, isNew, err := h.identity.ResolveFederated(c.Request.Context(), profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if !account.Login.Enabled {
		// Placeholder accounts cannot hold a session until a local
		// registration activates them.
		c.JSON(http.StatusOK, gin.H{
			"status":   "pending_activation",
			"provider": string(provider.Name),
			"new":      isNew,
		})
		return
	}

	if err := h.sessions.Issue(c, account.ID); err != nil {
		h.logger.Error("session issue failed", zap.String("account_id", account.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "authenticated",
		"provider": string(provider.Name),
		"new":      isNew,
	})
}

func (h *Handler) exchangeAndFetch(ctx context.Context, provider *Provider, code, _ string) ([]byte, error) {
	token, err := provider.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := provider.Config.Client(ctx, token).Get(provider.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
