package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victor-wayward/ironode/internal/repository"
	"github.com/victor-wayward/ironode/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// commonErrorCases cover sentinels shared by most form-handling endpoints.
// Credential-shaped failures collapse into one message so responses do not
// reveal which accounts exist.
func commonErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrBlankForm, Status: http.StatusBadRequest, Message: "form is empty"},
		{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Message: "form contains invalid fields"},
		{Err: usecase.ErrCaptchaRejected, Status: http.StatusBadRequest, Message: "captcha verification failed"},
		{Err: usecase.ErrEmailDispatch, Status: http.StatusBadGateway, Message: "email could not be sent, try again later"},
		{Err: usecase.ErrTooManyResets, Status: http.StatusTooManyRequests, Message: "too many reset requests"},
		{Err: usecase.ErrResetTooSoon, Status: http.StatusTooManyRequests, Message: "please wait before requesting again"},
		{Err: repository.ErrConflict, Status: http.StatusConflict, Message: "account was modified concurrently, retry"},
	}
}
