package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victor-wayward/ironode/internal/usecase"
)

// RegistrationHandler exposes the account registration endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler builds a RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// Register creates a new account. When email confirmation is configured the
// account starts disabled and a confirmation link is mailed.
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	account, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		Verify:          req.Verify,
		CaptchaResponse: req.CaptchaResponse,
		Locale:          req.Locale,
	})
	if err != nil {
		RespondWithMappedError(c, err, commonErrorCases(), http.StatusInternalServerError, "registration failed")
		return
	}

	resp := RegisterResponse{
		Account:              newAccountSummary(account),
		RequiresConfirmation: !account.Login.Enabled,
	}
	if resp.RequiresConfirmation {
		resp.Message = "confirmation email sent"
	}

	c.JSON(http.StatusCreated, resp)
}
