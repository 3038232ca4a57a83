package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/core/port"
	"github.com/victor-wayward/ironode/internal/repository"
	"github.com/victor-wayward/ironode/internal/usecase"
)

// ResetHandler exposes the forgotten-password flow.
type ResetHandler struct {
	accounts port.AccountRepository
	tokens   *usecase.TokenService
	reset    *usecase.ResetService
}

// NewResetHandler builds a ResetHandler.
func NewResetHandler(accounts port.AccountRepository, tokens *usecase.TokenService, reset *usecase.ResetService) *ResetHandler {
	return &ResetHandler{accounts: accounts, tokens: tokens, reset: reset}
}

// Request mails a reset link to a registered address. Repeated requests are
// throttled with a growing backoff and a hard budget.
func (h *ResetHandler) Request(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	if err := h.reset.Request(c.Request.Context(), req.Email, req.Locale); err != nil {
		RespondWithMappedError(c, err, append(commonErrorCases(),
			ErrorCase{Err: usecase.ErrEmailUnknown, Status: http.StatusBadRequest, Message: "email address is not registered"},
			ErrorCase{Err: usecase.ErrEmailInvalid, Status: http.StatusBadRequest, Message: "email address is not valid"},
			ErrorCase{Err: usecase.ErrEmailRequired, Status: http.StatusBadRequest, Message: "email address is required"},
			ErrorCase{Err: usecase.ErrAccountDisabled, Status: http.StatusForbidden, Message: "account is not enabled"},
		), http.StatusInternalServerError, "reset request failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "reset email sent"})
}

// CompletePassword checks the mailed reset token and stores the new
// password, consuming the token and clearing the request budget.
func (h *ResetHandler) CompletePassword(c *gin.Context) {
	var req CompletePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	account, err := h.accounts.FindByUsernameOrEmail(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "link is invalid"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "password change failed"))
		return
	}

	kind, err := h.tokens.Validate(account, req.Token)
	if err != nil || kind != domain.TokenReset {
		switch {
		case errors.Is(err, usecase.ErrTokenExpired):
			c.JSON(http.StatusGone, NewErrorResponse(c, "link has expired"))
		default:
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "link is invalid"))
		}
		return
	}

	updated, err := h.reset.CompletePassword(c.Request.Context(), req.Username, req.Password, req.Verify)
	if err != nil {
		RespondWithMappedError(c, err, commonErrorCases(), http.StatusInternalServerError, "password change failed")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Account: newAccountSummary(updated)})
}
