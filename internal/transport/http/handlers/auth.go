package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/transport/http/middleware"
	"github.com/victor-wayward/ironode/internal/usecase"
)

// AuthHandler exposes local login, logout and the current-session view.
type AuthHandler struct {
	auth     *usecase.AuthService
	sessions *middleware.SessionManager
	logger   *zap.Logger
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, sessions *middleware.SessionManager, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{auth: auth, sessions: sessions, logger: log}
}

// Login authenticates with a username or email plus password and starts a
// session. Unknown accounts and wrong passwords share one response so the
// endpoint cannot be used to probe for addresses.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	account, err := h.auth.AuthenticateLocal(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrAccountDisabled, Status: http.StatusForbidden, Message: "account is not enabled"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	if err := h.sessions.Issue(c, account.ID); err != nil {
		h.logger.Error("session issue failed", zap.String("account_id", account.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Account: newAccountSummary(account)})
}

// Logout drops the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.Clear(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// Me returns the account behind the current session.
func (h *AuthHandler) Me(c *gin.Context) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	c.JSON(http.StatusOK, newAccountSummary(account))
}
