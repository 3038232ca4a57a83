package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victor-wayward/ironode/internal/transport/http/middleware"
	"github.com/victor-wayward/ironode/internal/usecase"
)

// ValidationHandler backs live form validation. Unlike the submit endpoints,
// which only report an aggregate verdict, this channel names the failing
// rule per field.
type ValidationHandler struct {
	validator *usecase.AccountValidator
}

// NewValidationHandler builds a ValidationHandler.
func NewValidationHandler(validator *usecase.AccountValidator) *ValidationHandler {
	return &ValidationHandler{validator: validator}
}

// Check judges a single form field. When the caller has a session, their own
// username and email are exempt from the taken checks.
func (h *ValidationHandler) Check(c *gin.Context) {
	var req FieldCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid validation payload"))
		return
	}

	selfID := ""
	if account, ok := middleware.AccountFromContext(c); ok {
		selfID = account.ID
	}

	resp := FieldCheckResponse{Field: req.Field, Valid: true}

	var err error
	switch req.Field {
	case "username":
		err = h.validator.Username(c.Request.Context(), req.Value, selfID)
	case "email":
		err = h.validator.Email(c.Request.Context(), req.Value, selfID)
	case "reset_email":
		err = h.validator.ResetEmail(c.Request.Context(), req.Value)
	case "password":
		err = h.validator.Password(req.Value)
		score := h.validator.PasswordStrength(req.Value, req.Username, req.Email)
		resp.Strength = &score
	case "verify":
		err = h.validator.Verify(req.Value, req.Verify)
	case "contact_name":
		err = h.validator.ContactName(req.Value)
	case "contact_email":
		err = h.validator.ContactEmail(req.Value)
	case "contact_message":
		err = h.validator.ContactMessage(req.Value)
	default:
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown field"))
		return
	}

	if err != nil {
		resp.Valid = false
		resp.Detail = err.Error()
	}

	c.JSON(http.StatusOK, resp)
}
