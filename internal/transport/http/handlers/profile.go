package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/transport/http/middleware"
	"github.com/victor-wayward/ironode/internal/usecase"
)

// ProfileHandler exposes the authenticated account-management endpoints.
type ProfileHandler struct {
	profile *usecase.ProfileService
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(profile *usecase.ProfileService) *ProfileHandler {
	return &ProfileHandler{profile: profile}
}

func sessionAccount(c *gin.Context) (*domain.Account, bool) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
	}
	return account, ok
}

// UpdateAccount changes the username and primary email address. When email
// confirmation is configured the address switches only after the mailed
// token is followed.
func (h *ProfileHandler) UpdateAccount(c *gin.Context) {
	account, ok := sessionAccount(c)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid account payload"))
		return
	}

	if err := h.profile.UpdateAccount(c.Request.Context(), account, req.Username, req.Email, req.Locale); err != nil {
		RespondWithMappedError(c, err, commonErrorCases(), http.StatusInternalServerError, "account update failed")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

// UpdatePassword changes the password from a live session.
func (h *ProfileHandler) UpdatePassword(c *gin.Context) {
	account, ok := sessionAccount(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	if err := h.profile.UpdatePassword(c.Request.Context(), account, req.Password, req.Verify); err != nil {
		RespondWithMappedError(c, err, commonErrorCases(), http.StatusInternalServerError, "password update failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// UpdateProfile changes the display names.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	account, ok := sessionAccount(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	if err := h.profile.UpdateProfile(c.Request.Context(), account, req.GivenName, req.FamilyName); err != nil {
		RespondWithMappedError(c, err, commonErrorCases(), http.StatusInternalServerError, "profile update failed")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

// UpdateAddress replaces the postal address.
func (h *ProfileHandler) UpdateAddress(c *gin.Context) {
	account, ok := sessionAccount(c)
	if !ok {
		return
	}

	var req UpdateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid address payload"))
		return
	}

	address := domain.Address{
		Line1:    req.Line1,
		Line2:    req.Line2,
		City:     req.City,
		Region:   req.Region,
		Country:  req.Country,
		Postcode: req.Postcode,
	}
	if err := h.profile.UpdateAddress(c.Request.Context(), account, address); err != nil {
		RespondWithMappedError(c, err, commonErrorCases(), http.StatusInternalServerError, "address update failed")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

// UpdateAvatar points the profile at a new avatar path. An empty path falls
// back to the default avatar.
func (h *ProfileHandler) UpdateAvatar(c *gin.Context) {
	account, ok := sessionAccount(c)
	if !ok {
		return
	}

	var req UpdateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid avatar payload"))
		return
	}

	if err := h.profile.SetAvatar(c.Request.Context(), account, req.Path); err != nil {
		RespondWithMappedError(c, err, commonErrorCases(), http.StatusInternalServerError, "avatar update failed")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}
