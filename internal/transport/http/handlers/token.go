package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/repository"
	"github.com/victor-wayward/ironode/internal/usecase"
)

// TokenHandler resolves mailed token links. The token's prefix selects the
// flow: registration confirmation, password reset or email change.
type TokenHandler struct {
	accounts     port.AccountRepository
	tokens       *usecase.TokenService
	registration *usecase.RegistrationService
	profile      *usecase.ProfileService
	logger       *zap.Logger
}

// NewTokenHandler builds a TokenHandler.
func NewTokenHandler(
	accounts port.AccountRepository,
	tokens *usecase.TokenService,
	registration *usecase.RegistrationService,
	profile *usecase.ProfileService,
	log *zap.Logger,
) *TokenHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenHandler{
		accounts:     accounts,
		tokens:       tokens,
		registration: registration,
		profile:      profile,
		logger:       log,
	}
}

// Resolve validates the token from the link and dispatches on its kind.
// Registration tokens activate the account, email-change tokens apply the
// pending address, and reset tokens are only checked here: the password
// itself arrives on the completion endpoint.
func (h *TokenHandler) Resolve(c *gin.Context) {
	username := c.Param("username")
	token := c.Param("token")

	account, err := h.accounts.FindByUsernameOrEmail(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "link is invalid"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "token resolution failed"))
		return
	}

	kind, err := h.tokens.Validate(account, token)
	if err != nil {
		h.respondTokenError(c, err)
		return
	}

	switch kind {
	case domain.TokenRegistration:
		if err := h.registration.Activate(c.Request.Context(), account); err != nil {
			RespondWithMappedError(c, err, commonErrorCases(), http.StatusInternalServerError, "activation failed")
			return
		}
		c.JSON(http.StatusOK, TokenResponse{Kind: "registration", Message: "account activated"})

	case domain.TokenReset:
		c.JSON(http.StatusOK, TokenResponse{Kind: "reset", Message: "token accepted, submit a new password"})

	case domain.TokenEmailChange:
		if err := h.profile.ApplyPendingEmail(c.Request.Context(), account); err != nil {
			RespondWithMappedError(c, err, []ErrorCase{
				{Err: usecase.ErrNoPendingEmail, Status: http.StatusBadRequest, Message: "no email change is pending"},
				{Err: repository.ErrConflict, Status: http.StatusConflict, Message: "account was modified concurrently, retry"},
			}, http.StatusInternalServerError, "email change failed")
			return
		}
		c.JSON(http.StatusOK, TokenResponse{Kind: "email_change", Message: "email address updated"})

	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "link is invalid"))
	}
}

func (h *TokenHandler) respondTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrTokenExpired):
		c.JSON(http.StatusGone, NewErrorResponse(c, "link has expired"))
	case errors.Is(err, usecase.ErrTokenMismatch), errors.Is(err, usecase.ErrTokenUnknownKind):
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "link is invalid"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "token resolution failed"))
	}
}
