package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victor-wayward/ironode/internal/usecase"
)

// ContactHandler exposes the contact form endpoint.
type ContactHandler struct {
	contact *usecase.ContactService
}

// NewContactHandler builds a ContactHandler.
func NewContactHandler(contact *usecase.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

// Submit stores a contact form message.
func (h *ContactHandler) Submit(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid contact payload"))
		return
	}

	err := h.contact.Submit(c.Request.Context(), usecase.ContactInput{
		Name:            req.Name,
		Email:           req.Email,
		Message:         req.Message,
		CaptchaResponse: req.CaptchaResponse,
	})
	if err != nil {
		RespondWithMappedError(c, err, commonErrorCases(), http.StatusInternalServerError, "message could not be stored")
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "message received"})
}
